package block

import (
	"encoding/binary"
	"fmt"
)

// Raw is the shared-memory block: a liveness counter followed by a Frame.
//
// Raw is not synchronized. Every method is a plain load or store on memory
// that other processes map at the same time, with no lock and no atomic
// instruction. Two writers on one slot can tear it; a reader can observe a
// half-written record. Callers that need consistency add their own protocol
// on top (a lock slot, a sequence counter, double buffering).
type Raw struct {
	buf []byte
	*Frame
}

// ViewRaw wraps buf, which must be exactly BlockSize(n) bytes for some n.
func ViewRaw(buf []byte) (*Raw, error) {
	if _, err := CountForBlockSize(len(buf)); err != nil {
		return nil, err
	}
	f, err := ViewFrame(buf[LivenessSize:])
	if err != nil {
		return nil, err
	}
	return &Raw{buf: buf, Frame: f}, nil
}

// InitRaw zeroes buf and stamps record_count. Only the creator calls this.
func InitRaw(buf []byte) (*Raw, error) {
	b, err := ViewRaw(buf)
	if err != nil {
		return nil, err
	}
	clear(buf)
	b.setDeclared(uint64(b.Len()))
	return b, nil
}

// CheckDeclared reports a record_count that disagrees with the mapped size.
// A zero count is accepted: the creator may not have stamped it yet.
func (b *Raw) CheckDeclared() error {
	d := b.Declared()
	if d != 0 && d != uint64(b.Len()) {
		return fmt.Errorf("%w: block declares %d records, mapping holds %d", ErrSizeMismatch, d, b.Len())
	}
	return nil
}

// Liveness is the advisory count of attached handles.
func (b *Raw) Liveness() int64 {
	return int64(binary.LittleEndian.Uint64(b.buf[0:LivenessSize]))
}

// AddLiveness is an unsynchronized read-modify-write. Concurrent callers in
// different processes can lose updates.
func (b *Raw) AddLiveness(delta int64) int64 {
	v := b.Liveness() + delta
	binary.LittleEndian.PutUint64(b.buf[0:LivenessSize], uint64(v))
	return v
}

// Bytes returns the whole block including the liveness counter.
func (b *Raw) Bytes() []byte { return b.buf }
