package param

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Descriptor names one positional slot of a block or frame.
type Descriptor struct {
	Name string
	Kind Kind
}

// Layout is the ordered slot contract both ends of a block or frame agree on.
// Writes are positional, so order is part of the contract.
type Layout []Descriptor

func LayoutOf(records []Record) Layout {
	out := make(Layout, len(records))
	for i, r := range records {
		out[i] = Descriptor{Name: r.Name(), Kind: r.Kind()}
	}
	return out
}

func (l Layout) Validate() error {
	seen := make(map[string]int, len(l))
	for i, d := range l {
		if err := ValidateName(d.Name); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
		if !d.Kind.Valid() {
			return fmt.Errorf("slot %d: %w: %s", i, ErrUnknownKind, d.Kind)
		}
		if prev, ok := seen[d.Name]; ok {
			return fmt.Errorf("%w: slot %d duplicates name %q of slot %d", ErrLayoutMismatch, i, d.Name, prev)
		}
		seen[d.Name] = i
	}
	return nil
}

// Check reports the first slot whose name or kind differs from the layout.
func (l Layout) Check(records []Record) error {
	if len(records) != len(l) {
		return fmt.Errorf("%w: %d records for %d slots", ErrLayoutMismatch, len(records), len(l))
	}
	for i, r := range records {
		if r.Name() != l[i].Name || r.Kind() != l[i].Kind {
			return fmt.Errorf("%w: slot %d is %s/%s, want %s/%s",
				ErrLayoutMismatch, i, r.Name(), r.Kind(), l[i].Name, l[i].Kind)
		}
	}
	return nil
}

// Zero returns records named and typed per the layout with zero payloads.
func (l Layout) Zero() ([]Record, error) {
	out := make([]Record, len(l))
	for i, d := range l {
		var v Value
		switch d.Kind {
		case KindFloat64:
			v = Float64(0)
		case KindInt64:
			v = Int64(0)
		case KindVector3:
			v = Vector3{}
		default:
			return nil, fmt.Errorf("slot %d: %w: %s", i, ErrUnknownKind, d.Kind)
		}
		r, err := New(d.Name, v)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// Digest is a BLAKE3 hash of the ordered (kind, name) pairs, hex encoded.
func (l Layout) Digest() string {
	h := blake3.New()
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(l)))
	_, _ = h.Write(n[:])
	for _, d := range l {
		var name [NameSize]byte
		copy(name[:], d.Name)
		_, _ = h.Write([]byte{byte(d.Kind)})
		_, _ = h.Write(name[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
