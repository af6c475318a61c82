package param

import (
	"errors"
	"testing"

	"github.com/danmuck/phawd/internal/testutil/testlog"
)

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)

	values := []Value{Float64(1.213), Int64(-12), Vector3{-1.4, 2, 3}}
	for _, v := range values {
		in, err := New("pw_"+v.Kind().String(), v)
		if err != nil {
			t.Fatalf("new %s: %v", v.Kind(), err)
		}
		var buf [RecordSize]byte
		if err := in.Encode(buf[:]); err != nil {
			t.Fatalf("encode %s: %v", v.Kind(), err)
		}
		out, err := Decode(buf[:])
		if err != nil {
			t.Fatalf("decode %s: %v", v.Kind(), err)
		}
		if out != in {
			t.Fatalf("round trip mismatch: in=%v out=%v", in, out)
		}
		got, err := out.Value()
		if err != nil {
			t.Fatalf("value %s: %v", v.Kind(), err)
		}
		if got != v {
			t.Fatalf("payload mismatch: got=%v want=%v", got, v)
		}
	}
}

func TestRecordEncodedWidthIsConstant(t *testing.T) {
	testlog.Start(t)

	f, _ := NewFloat64("f", 1)
	v, _ := NewVector3("v", [3]float64{1, 2, 3})
	if len(f.Append(nil)) != RecordSize || len(v.Append(nil)) != RecordSize {
		t.Fatalf("encoded width differs by kind")
	}
	buf := f.Append(nil)
	for i := payloadOffset + 8; i < RecordSize; i++ {
		if buf[i] != 0 {
			t.Fatalf("unused payload byte %d not zero: %d", i, buf[i])
		}
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	testlog.Start(t)

	r, _ := NewInt64("ps64", 7)
	buf := r.Append(nil)
	buf[0] = 3
	if _, err := Decode(buf); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	buf[0] = 0xFF
	if _, err := Decode(buf); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDecodeZeroSlotIsUnset(t *testing.T) {
	testlog.Start(t)

	var buf [RecordSize]byte
	if _, err := Decode(buf[:]); !errors.Is(err, ErrUnsetRecord) {
		t.Fatalf("expected ErrUnsetRecord, got %v", err)
	}
	if _, err := Decode(buf[:RecordSize-1]); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestAccessorTypeMismatch(t *testing.T) {
	testlog.Start(t)

	r, err := NewFloat64("pd", 3.5)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := r.Int64(); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := r.Vector3(); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if v, err := r.Float64(); err != nil || v != 3.5 {
		t.Fatalf("float64 read: v=%v err=%v", v, err)
	}
}

func TestSetKeepsKind(t *testing.T) {
	testlog.Start(t)

	r, _ := NewInt64("ps64", 1)
	if err := r.SetInt64(1213); err != nil {
		t.Fatalf("set int64: %v", err)
	}
	if v, _ := r.Int64(); v != 1213 {
		t.Fatalf("unexpected value: %d", v)
	}
	if err := r.SetFloat64(1.5); !errors.Is(err, ErrKindImmutable) {
		t.Fatalf("expected ErrKindImmutable, got %v", err)
	}
	if r.Kind() != KindInt64 {
		t.Fatalf("kind changed: %s", r.Kind())
	}
	if v, _ := r.Int64(); v != 1213 {
		t.Fatalf("failed set modified payload: %d", v)
	}
}

func TestNameValidation(t *testing.T) {
	testlog.Start(t)

	if _, err := NewFloat64("", 1); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName for empty name, got %v", err)
	}
	if _, err := NewFloat64("0123456789abcdef", 1); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName for 16 byte name, got %v", err)
	}
	r, err := NewFloat64("0123456789abcde", 1)
	if err != nil {
		t.Fatalf("15 byte name: %v", err)
	}
	if r.Name() != "0123456789abcde" {
		t.Fatalf("unexpected name: %q", r.Name())
	}
}

func TestParseKind(t *testing.T) {
	testlog.Start(t)

	cases := map[string]Kind{
		"double":       KindFloat64,
		"FLOAT64":      KindFloat64,
		"s64":          KindInt64,
		" vec3_double": KindVector3,
	}
	for raw, want := range cases {
		got, err := ParseKind(raw)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %s, %v", raw, got, err)
		}
	}
	if _, err := ParseKind("float"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
