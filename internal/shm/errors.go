package shm

import (
	"errors"

	"github.com/danmuck/phawd/internal/block"
)

var (
	ErrSizeMismatch = block.ErrSizeMismatch
	ErrInvalidName  = errors.New("shm: invalid segment name")
	ErrDetached     = errors.New("shm: segment detached")
	ErrUnsupported  = errors.New("shm: shared memory not supported on this platform")
)
