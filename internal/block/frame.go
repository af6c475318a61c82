package block

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/phawd/internal/collection"
	"github.com/danmuck/phawd/internal/param"
)

const (
	FrameHeaderSize = 8
	LivenessSize    = 8
	BlockHeaderSize = LivenessSize + FrameHeaderSize
)

var (
	ErrSizeMismatch = param.ErrSizeMismatch
	ErrOutOfRange   = errors.New("block: slot index out of range")
)

func FrameSize(n int) int {
	return FrameHeaderSize + n*param.RecordSize
}

func BlockSize(n int) int {
	return BlockHeaderSize + n*param.RecordSize
}

// CountForFrameSize inverts FrameSize, failing when size has no whole record count.
func CountForFrameSize(size int) (int, error) {
	return countFor(size, FrameHeaderSize)
}

func CountForBlockSize(size int) (int, error) {
	return countFor(size, BlockHeaderSize)
}

func countFor(size, header int) (int, error) {
	body := size - header
	if body < 0 {
		return 0, fmt.Errorf("%w: size %d smaller than header %d", ErrSizeMismatch, size, header)
	}
	if body%param.RecordSize != 0 {
		return 0, fmt.Errorf("%w: size %d leaves %d trailing bytes after %d-byte header",
			ErrSizeMismatch, size, body%param.RecordSize, header)
	}
	return body / param.RecordSize, nil
}

// Frame is a view over [record_count][records...]. It does not own
// synchronization; callers drive one direction from one goroutine.
type Frame struct {
	buf   []byte
	slots int
}

// NewFrame allocates a zeroed frame with n slots and record_count = n.
func NewFrame(n int) *Frame {
	if n < 0 {
		n = 0
	}
	f := &Frame{buf: make([]byte, FrameSize(n)), slots: n}
	f.setDeclared(uint64(n))
	return f
}

// ViewFrame wraps buf without copying.
func ViewFrame(buf []byte) (*Frame, error) {
	n, err := CountForFrameSize(len(buf))
	if err != nil {
		return nil, err
	}
	return &Frame{buf: buf, slots: n}, nil
}

// Len is the number of record slots the buffer holds.
func (f *Frame) Len() int { return f.slots }

// Declared is the record_count field as currently stored.
func (f *Frame) Declared() uint64 {
	return binary.LittleEndian.Uint64(f.buf[0:FrameHeaderSize])
}

func (f *Frame) setDeclared(n uint64) {
	binary.LittleEndian.PutUint64(f.buf[0:FrameHeaderSize], n)
}

// Bytes exposes the backing buffer; writes through it are visible to the frame.
func (f *Frame) Bytes() []byte { return f.buf }

func (f *Frame) span(i int) ([]byte, error) {
	if i < 0 || i >= f.slots {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, i, f.slots)
	}
	off := FrameHeaderSize + i*param.RecordSize
	return f.buf[off : off+param.RecordSize], nil
}

func (f *Frame) Record(i int) (param.Record, error) {
	b, err := f.span(i)
	if err != nil {
		return param.Record{}, err
	}
	r, err := param.Decode(b)
	if err != nil {
		return param.Record{}, fmt.Errorf("slot %d: %w", i, err)
	}
	return r, nil
}

func (f *Frame) SetRecord(i int, r param.Record) error {
	b, err := f.span(i)
	if err != nil {
		return err
	}
	return r.Encode(b)
}

// SetRecords overwrites slots 0..len(rs)-1 by position. Trailing slots are
// left untouched.
func (f *Frame) SetRecords(rs []param.Record) error {
	if len(rs) > f.slots {
		return fmt.Errorf("%w: %d records for %d slots", ErrSizeMismatch, len(rs), f.slots)
	}
	for i, r := range rs {
		if err := f.SetRecord(i, r); err != nil {
			return err
		}
	}
	return nil
}

// Records decodes every slot. An unset slot fails with param.ErrUnsetRecord.
func (f *Frame) Records() ([]param.Record, error) {
	out := make([]param.Record, f.slots)
	for i := range out {
		r, err := f.Record(i)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Snapshot copies all written slots into a Collection. Unset slots are skipped;
// an unknown tag aborts the snapshot.
func (f *Frame) Snapshot() (*collection.Collection, error) {
	out := make([]param.Record, 0, f.slots)
	for i := 0; i < f.slots; i++ {
		r, err := f.Record(i)
		if errors.Is(err, param.ErrUnsetRecord) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return collection.Build(out), nil
}

// AllSet reports whether every slot has been written.
func (f *Frame) AllSet() bool {
	for i := 0; i < f.slots; i++ {
		off := FrameHeaderSize + i*param.RecordSize
		if param.Kind(f.buf[off]) == param.KindUnset {
			return false
		}
	}
	return true
}

// CopyFrom replaces this frame's bytes with src's. Both must have the same size.
func (f *Frame) CopyFrom(src []byte) error {
	if len(src) != len(f.buf) {
		return fmt.Errorf("%w: copy %d bytes into %d-byte frame", ErrSizeMismatch, len(src), len(f.buf))
	}
	copy(f.buf, src)
	return nil
}
