package wire

import (
	"errors"
	"fmt"

	"github.com/danmuck/phawd/internal/block"
)

var (
	ErrSizeMismatch      = block.ErrSizeMismatch
	ErrConnection        = errors.New("wire: connection failed")
	ErrNotConnected      = errors.New("wire: not connected")
	ErrPartialWrite      = errors.New("wire: partial frame write")
	ErrHandshakeRejected = errors.New("wire: handshake rejected")
	ErrInvalidHello      = errors.New("wire: invalid hello")
	ErrInvalidHelloAck   = errors.New("wire: invalid hello ack")
	ErrHelloTooLarge     = errors.New("wire: hello line too large")
)

// ErrPeerClosed is returned once the peer ends the stream.
var ErrPeerClosed = fmt.Errorf("%w: peer closed connection", ErrNotConnected)
