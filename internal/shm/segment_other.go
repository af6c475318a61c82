//go:build !unix

package shm

func Attach(name string, totalSize int, opts ...Option) (*Segment, error) {
	return nil, ErrUnsupported
}

func (s *Segment) Detach() error {
	return ErrUnsupported
}

func Unlink(name string, opts ...Option) error {
	return ErrUnsupported
}
