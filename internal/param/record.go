package param

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Record wire layout: [tag:1][name:16][payload:24], little-endian.
// Every kind occupies the full payload so mixed-kind arrays index by
// i*RecordSize.
const (
	NameSize    = 16
	MaxNameLen  = NameSize - 1
	PayloadSize = 24
	RecordSize  = 1 + NameSize + PayloadSize

	tagOffset     = 0
	nameOffset    = 1
	payloadOffset = nameOffset + NameSize
)

// Value is one of Float64, Int64 or Vector3.
type Value interface {
	Kind() Kind
	put(payload *[PayloadSize]byte)
}

type Float64 float64

type Int64 int64

type Vector3 [3]float64

func (Float64) Kind() Kind { return KindFloat64 }
func (Int64) Kind() Kind   { return KindInt64 }
func (Vector3) Kind() Kind { return KindVector3 }

func (v Float64) put(p *[PayloadSize]byte) {
	*p = [PayloadSize]byte{}
	binary.LittleEndian.PutUint64(p[0:8], math.Float64bits(float64(v)))
}

func (v Int64) put(p *[PayloadSize]byte) {
	*p = [PayloadSize]byte{}
	binary.LittleEndian.PutUint64(p[0:8], uint64(v))
}

func (v Vector3) put(p *[PayloadSize]byte) {
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint64(p[i*8:i*8+8], math.Float64bits(v[i]))
	}
}

// Record is a named, typed, fixed-size parameter. The zero Record is unset.
type Record struct {
	name    [NameSize]byte
	kind    Kind
	payload [PayloadSize]byte
}

func New(name string, v Value) (Record, error) {
	var r Record
	if v == nil {
		return Record{}, fmt.Errorf("%w: nil value", ErrUnknownKind)
	}
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}
	copy(r.name[:], name)
	r.kind = v.Kind()
	v.put(&r.payload)
	return r, nil
}

func NewFloat64(name string, v float64) (Record, error) { return New(name, Float64(v)) }

func NewInt64(name string, v int64) (Record, error) { return New(name, Int64(v)) }

func NewVector3(name string, v [3]float64) (Record, error) { return New(name, Vector3(v)) }

// ValidateName enforces the fixed name field: non-empty, at most MaxNameLen
// bytes, no NUL.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q longer than %d bytes", ErrInvalidName, name, MaxNameLen)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidName, name)
	}
	return nil
}

func (r Record) Name() string {
	if i := bytes.IndexByte(r.name[:], 0); i >= 0 {
		return string(r.name[:i])
	}
	return string(r.name[:])
}

func (r Record) Kind() Kind { return r.kind }

func (r Record) IsSet() bool { return r.kind != KindUnset }

func (r Record) Float64() (float64, error) {
	if r.kind != KindFloat64 {
		return 0, r.mismatch(KindFloat64)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.payload[0:8])), nil
}

func (r Record) Int64() (int64, error) {
	if r.kind != KindInt64 {
		return 0, r.mismatch(KindInt64)
	}
	return int64(binary.LittleEndian.Uint64(r.payload[0:8])), nil
}

func (r Record) Vector3() ([3]float64, error) {
	if r.kind != KindVector3 {
		return [3]float64{}, r.mismatch(KindVector3)
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(r.payload[i*8 : i*8+8]))
	}
	return out, nil
}

// Value returns the typed payload.
func (r Record) Value() (Value, error) {
	switch r.kind {
	case KindFloat64:
		v, _ := r.Float64()
		return Float64(v), nil
	case KindInt64:
		v, _ := r.Int64()
		return Int64(v), nil
	case KindVector3:
		v, _ := r.Vector3()
		return Vector3(v), nil
	case KindUnset:
		return nil, ErrUnsetRecord
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownKind, uint8(r.kind))
	}
}

// Set overwrites the payload in place. The kind never changes after New.
func (r *Record) Set(v Value) error {
	if v == nil {
		return fmt.Errorf("%w: nil value", ErrKindImmutable)
	}
	if v.Kind() != r.kind {
		return fmt.Errorf("%w: record %q is %s, got %s", ErrKindImmutable, r.Name(), r.kind, v.Kind())
	}
	v.put(&r.payload)
	return nil
}

func (r *Record) SetFloat64(v float64) error { return r.Set(Float64(v)) }

func (r *Record) SetInt64(v int64) error { return r.Set(Int64(v)) }

func (r *Record) SetVector3(v [3]float64) error { return r.Set(Vector3(v)) }

func (r Record) String() string {
	v, err := r.Value()
	if err != nil {
		return fmt.Sprintf("%s(%s)", r.Name(), r.kind)
	}
	switch t := v.(type) {
	case Float64:
		return fmt.Sprintf("%s=%g", r.Name(), float64(t))
	case Int64:
		return fmt.Sprintf("%s=%d", r.Name(), int64(t))
	case Vector3:
		return fmt.Sprintf("%s=[%g %g %g]", r.Name(), t[0], t[1], t[2])
	}
	return r.Name()
}

func (r Record) mismatch(want Kind) error {
	return fmt.Errorf("%w: record %q is %s, read as %s", ErrTypeMismatch, r.Name(), r.kind, want)
}

// Encode writes the record into dst, which must be exactly RecordSize bytes.
func (r Record) Encode(dst []byte) error {
	if len(dst) != RecordSize {
		return fmt.Errorf("%w: record span %d, want %d", ErrSizeMismatch, len(dst), RecordSize)
	}
	dst[tagOffset] = byte(r.kind)
	copy(dst[nameOffset:payloadOffset], r.name[:])
	copy(dst[payloadOffset:RecordSize], r.payload[:])
	return nil
}

// Append appends the encoded record to dst.
func (r Record) Append(dst []byte) []byte {
	var buf [RecordSize]byte
	_ = r.Encode(buf[:])
	return append(dst, buf[:]...)
}

// Decode parses exactly RecordSize bytes. A zero tag reports ErrUnsetRecord;
// any other tag outside Kinds reports ErrUnknownKind.
func Decode(src []byte) (Record, error) {
	if len(src) != RecordSize {
		return Record{}, fmt.Errorf("%w: record span %d, want %d", ErrSizeMismatch, len(src), RecordSize)
	}
	kind := Kind(src[tagOffset])
	if kind == KindUnset {
		return Record{}, ErrUnsetRecord
	}
	if !kind.Valid() {
		return Record{}, fmt.Errorf("%w: tag %d", ErrUnknownKind, uint8(kind))
	}
	var r Record
	r.kind = kind
	copy(r.name[:], src[nameOffset:payloadOffset])
	copy(r.payload[:], src[payloadOffset:RecordSize])
	return r, nil
}
