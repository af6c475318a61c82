//go:build unix

package shm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"

	"github.com/danmuck/phawd/internal/block"
	"github.com/danmuck/phawd/internal/observability"
	logs "github.com/danmuck/smplog"
)

// Attach maps the segment called name, creating and zero-filling it when it
// does not exist yet. totalSize must be block.BlockSize(n) for some n, and
// an existing segment must have exactly that size.
func Attach(name string, totalSize int, opts ...Option) (*Segment, error) {
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("%w: %q", err, name)
	}
	if _, err := block.CountForBlockSize(totalSize); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	path := Path(name, WithDir(o.dir))

	seg, err := create(name, path, totalSize, o.mode)
	if errors.Is(err, fs.ErrExist) {
		seg, err = open(name, path, totalSize)
	}
	if err != nil {
		return nil, err
	}

	live := seg.raw.AddLiveness(1)
	observability.RecordSegmentAttach(name, seg.created, live)
	logs.Infof("shm.Segment attach name=%s path=%s size=%d created=%t liveness=%d",
		name, path, totalSize, seg.created, live)
	return seg, nil
}

func create(name, path string, totalSize int, mode os.FileMode) (*Segment, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, mode)
	if err != nil {
		return nil, fmt.Errorf("create segment %s: %w", path, err)
	}
	cleanup := func() {
		_ = file.Close()
		_ = os.Remove(path)
	}

	if err := unix.Ftruncate(int(file.Fd()), int64(totalSize)); err != nil {
		cleanup()
		return nil, fmt.Errorf("resize segment %s: %w", path, err)
	}
	mem, err := mapFile(file, totalSize)
	if err != nil {
		cleanup()
		return nil, err
	}
	raw, err := block.InitRaw(mem)
	if err != nil {
		_ = unix.Munmap(mem)
		cleanup()
		return nil, err
	}
	return &Segment{
		name:    name,
		path:    path,
		size:    totalSize,
		created: true,
		file:    file,
		mem:     mem,
		raw:     raw,
	}, nil
}

func open(name, path string, totalSize int) (*Segment, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open segment %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat segment %s: %w", path, err)
	}
	if info.Size() != int64(totalSize) {
		_ = file.Close()
		return nil, fmt.Errorf("%w: segment %s is %d bytes, want %d", ErrSizeMismatch, path, info.Size(), totalSize)
	}
	mem, err := mapFile(file, totalSize)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	raw, err := block.ViewRaw(mem)
	if err == nil {
		err = raw.CheckDeclared()
	}
	if err != nil {
		_ = unix.Munmap(mem)
		_ = file.Close()
		return nil, fmt.Errorf("segment %s: %w", path, err)
	}
	return &Segment{
		name: name,
		path: path,
		size: totalSize,
		file: file,
		mem:  mem,
		raw:  raw,
	}, nil
}

func mapFile(file *os.File, size int) ([]byte, error) {
	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", file.Name(), err)
	}
	return mem, nil
}

// Detach decrements liveness and releases this handle's mapping. It never
// removes the segment file. Calling it again is a no-op.
func (s *Segment) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return nil
	}
	s.detached = true

	live := s.raw.AddLiveness(-1)
	s.raw = nil
	var errs []error
	if err := unix.Munmap(s.mem); err != nil {
		errs = append(errs, fmt.Errorf("munmap %s: %w", s.path, err))
	}
	s.mem = nil
	if err := s.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", s.path, err))
	}
	s.file = nil

	observability.RecordSegmentDetach(s.name, live)
	logs.Infof("shm.Segment detach name=%s liveness=%d", s.name, live)
	return errors.Join(errs...)
}

// Unlink removes the segment file. Existing mappings stay valid until
// they detach; the next Attach creates a fresh segment.
func Unlink(name string, opts ...Option) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}
	path := Path(name, opts...)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("unlink segment %s: %w", path, err)
	}
	logs.Debugf("shm.Unlink name=%s path=%s", name, path)
	return nil
}
