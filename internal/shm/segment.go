package shm

import (
	"fmt"
	"os"
	"sync"

	"github.com/danmuck/phawd/internal/block"
	"github.com/danmuck/phawd/internal/collection"
	"github.com/danmuck/phawd/internal/param"
)

// Segment is one process's handle on a shared block. The handle state is
// guarded by mu; the mapped records are not.
type Segment struct {
	mu       sync.RWMutex
	name     string
	path     string
	size     int
	created  bool
	file     *os.File
	mem      []byte
	raw      *block.Raw
	detached bool
}

func (s *Segment) Name() string { return s.name }

func (s *Segment) Path() string { return s.path }

// Size is the total mapped size including the block header.
func (s *Segment) Size() int { return s.size }

// Created reports whether this handle created the segment file.
func (s *Segment) Created() bool { return s.created }

// Block returns the live view over the mapping. The view must not be used
// after Detach.
func (s *Segment) Block() (*block.Raw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detached {
		return nil, ErrDetached
	}
	return s.raw, nil
}

// SetParameters overwrites slots 0..len(rs)-1 by position.
func (s *Segment) SetParameters(rs []param.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detached {
		return ErrDetached
	}
	if err := s.raw.SetRecords(rs); err != nil {
		return fmt.Errorf("segment %s: %w", s.name, err)
	}
	return nil
}

// Collect snapshots the written slots into a Collection.
func (s *Segment) Collect() (*collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detached {
		return nil, ErrDetached
	}
	c, err := s.raw.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", s.name, err)
	}
	return c, nil
}

// AllSet reports whether every slot of the segment has been written.
func (s *Segment) AllSet() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detached {
		return false, ErrDetached
	}
	return s.raw.AllSet(), nil
}

// Liveness reads the shared attach counter.
func (s *Segment) Liveness() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detached {
		return 0, ErrDetached
	}
	return s.raw.Liveness(), nil
}
