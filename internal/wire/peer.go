package wire

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	logs "github.com/danmuck/smplog"
)

// Peer is the far end of a Client: it reads the client's outbound frames
// and writes the client's inbound frames. It exists for demos and tests;
// it does not listen on its own.
type Peer struct {
	conn net.Conn
	r    *bufio.Reader
	// Sizes as seen by the client.
	clientOutbound int
	clientInbound  int
}

// Expect describes the hello a Peer will accept. Empty digests are not
// compared.
type Expect struct {
	OutboundSize   int
	InboundSize    int
	OutboundDigest string
	InboundDigest  string
	Timeout        time.Duration
}

// NewPeer wraps conn without a hello exchange.
func NewPeer(conn net.Conn, clientOutbound, clientInbound int) *Peer {
	return &Peer{
		conn:           conn,
		r:              bufio.NewReaderSize(conn, max(4096, clientOutbound)),
		clientOutbound: clientOutbound,
		clientInbound:  clientInbound,
	}
}

// Accept reads the client's hello, checks it against expect and answers
// with an ack. A rejected hello is acked as rejected and reported with
// ErrHandshakeRejected.
func Accept(conn net.Conn, expect Expect) (*Peer, Hello, error) {
	p := NewPeer(conn, expect.OutboundSize, expect.InboundSize)
	if expect.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(expect.Timeout))
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	hello, err := ReadHello(p.r)
	if err != nil {
		return nil, Hello{}, err
	}
	ack := HelloAck{
		Status:       AckStatusAccepted,
		SessionID:    hello.SessionID,
		OutboundSize: hello.OutboundSize,
		InboundSize:  hello.InboundSize,
	}
	reason := expect.mismatch(hello)
	if reason != "" {
		ack.Status = AckStatusRejected
		ack.Message = reason
	}
	if err := WriteHelloAck(conn, ack); err != nil {
		return nil, hello, err
	}
	if reason != "" {
		logs.Warnf("wire.Peer reject session=%s reason=%s", hello.SessionID, reason)
		return nil, hello, fmt.Errorf("%w: %s", ErrHandshakeRejected, reason)
	}
	logs.Debugf("wire.Peer accept session=%s", hello.SessionID)
	return p, hello, nil
}

func (e Expect) mismatch(h Hello) string {
	switch {
	case h.OutboundSize != e.OutboundSize:
		return fmt.Sprintf("outbound_size %d, want %d", h.OutboundSize, e.OutboundSize)
	case h.InboundSize != e.InboundSize:
		return fmt.Sprintf("inbound_size %d, want %d", h.InboundSize, e.InboundSize)
	case e.OutboundDigest != "" && h.OutboundDigest != e.OutboundDigest:
		return "outbound layout digest differs"
	case e.InboundDigest != "" && h.InboundDigest != e.InboundDigest:
		return "inbound layout digest differs"
	}
	return ""
}

// ReadFrame blocks until one full client frame has been read into a new
// buffer.
func (p *Peer) ReadFrame() ([]byte, error) {
	buf := make([]byte, p.clientOutbound)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFrame sends one frame to the client. buf must be exactly the
// client's inbound size.
func (p *Peer) WriteFrame(buf []byte) error {
	if len(buf) != p.clientInbound {
		return fmt.Errorf("%w: frame %d bytes, client reads %d", ErrSizeMismatch, len(buf), p.clientInbound)
	}
	n, err := p.conn.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrPartialWrite, n, len(buf))
	}
	return nil
}

func (p *Peer) Close() error { return p.conn.Close() }
