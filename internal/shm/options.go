package shm

import (
	"os"
	"path/filepath"
	"strings"
)

const filePrefix = "phawd_"

type options struct {
	dir  string
	mode os.FileMode
}

type Option func(*options)

// WithDir places segment files in dir instead of /dev/shm.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithMode sets the permission bits used when the segment is created.
func WithMode(mode os.FileMode) Option {
	return func(o *options) { o.mode = mode }
}

func buildOptions(opts []Option) options {
	o := options{mode: 0o600}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.dir == "" {
		o.dir = defaultDir()
	}
	return o
}

func defaultDir() string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return ErrInvalidName
	}
	return nil
}

// Path is the file backing segment name under the given options.
func Path(name string, opts ...Option) string {
	o := buildOptions(opts)
	return filepath.Join(o.dir, filePrefix+name)
}
