package param

import "errors"

var (
	ErrTypeMismatch   = errors.New("param: type mismatch")
	ErrKindImmutable  = errors.New("param: kind is immutable")
	ErrUnknownKind    = errors.New("param: unknown kind")
	ErrUnsetRecord    = errors.New("param: record slot never written")
	ErrInvalidName    = errors.New("param: invalid name")
	ErrSizeMismatch   = errors.New("param: size mismatch")
	ErrLayoutMismatch = errors.New("param: layout mismatch")
)
