package wire

import (
	"fmt"
	"time"

	"github.com/danmuck/phawd/internal/block"
	"github.com/danmuck/phawd/internal/param"
)

// HandshakeConfig enables the JSON-line hello sent right after dialing.
// Layouts are optional; when set their digests travel in the hello.
type HandshakeConfig struct {
	Enabled        bool
	Timeout        time.Duration
	OutboundLayout param.Layout
	InboundLayout  param.Layout
}

type Config struct {
	OutboundSize   int
	InboundSize    int
	ConnectTimeout time.Duration
	ReadPoll       time.Duration
	WriteTimeout   time.Duration
	Handshake      HandshakeConfig
}

// DefaultConfig returns the transport defaults for the given frame sizes.
func DefaultConfig(outboundSize, inboundSize int) Config {
	return Config{
		OutboundSize:   outboundSize,
		InboundSize:    inboundSize,
		ConnectTimeout: 5 * time.Second,
		ReadPoll:       time.Millisecond,
		WriteTimeout:   time.Second,
		Handshake: HandshakeConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// WithDefaults fills zero or negative durations from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig(c.OutboundSize, c.InboundSize)
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadPoll <= 0 {
		c.ReadPoll = d.ReadPoll
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.Handshake.Timeout <= 0 {
		c.Handshake.Timeout = d.Handshake.Timeout
	}
	return c
}

func (c Config) Validate() error {
	if _, err := block.CountForFrameSize(c.OutboundSize); err != nil {
		return fmt.Errorf("outbound: %w", err)
	}
	if _, err := block.CountForFrameSize(c.InboundSize); err != nil {
		return fmt.Errorf("inbound: %w", err)
	}
	if c.Handshake.Enabled {
		if err := checkLayout("outbound", c.Handshake.OutboundLayout, c.OutboundSize); err != nil {
			return err
		}
		if err := checkLayout("inbound", c.Handshake.InboundLayout, c.InboundSize); err != nil {
			return err
		}
	}
	return nil
}

func checkLayout(dir string, l param.Layout, size int) error {
	if l == nil {
		return nil
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("%s layout: %w", dir, err)
	}
	if block.FrameSize(len(l)) != size {
		return fmt.Errorf("%w: %s layout has %d slots for %d-byte frames", ErrSizeMismatch, dir, len(l), size)
	}
	return nil
}

func layoutDigest(l param.Layout) string {
	if l == nil {
		return ""
	}
	return l.Digest()
}
