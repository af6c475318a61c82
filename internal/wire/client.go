package wire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/phawd/internal/block"
	"github.com/danmuck/phawd/internal/observability"
	logs "github.com/danmuck/smplog"
)

type State uint8

const (
	StateUnconnected State = iota
	StateConnected
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "UNCONNECTED"
	case StateConnected:
		return "CONNECTED"
	case StateStreaming:
		return "STREAMING"
	case StateClosed:
		return "CLOSED"
	default:
		return "STATE(" + strconv.Itoa(int(s)) + ")"
	}
}

// Client sends one fixed-size outbound frame and receives one fixed-size
// inbound frame over a TCP stream. One goroutine may Send while another
// Reads; each direction is serialized by its own lock.
type Client struct {
	cfg Config

	mu    sync.Mutex
	state State
	conn  net.Conn
	in    io.Reader
	peer  string

	sendMu   sync.Mutex
	outbound *block.Frame

	readMu   sync.Mutex
	inbound  *block.Frame
	pending  []byte
	received int
}

// NewClient allocates zeroed frames with record_count already stamped.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nOut, _ := block.CountForFrameSize(cfg.OutboundSize)
	nIn, _ := block.CountForFrameSize(cfg.InboundSize)
	return &Client{
		cfg:      cfg,
		outbound: block.NewFrame(nOut),
		inbound:  block.NewFrame(nIn),
		pending:  make([]byte, cfg.InboundSize),
	}, nil
}

func (c *Client) Config() Config { return c.cfg }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SendFrame is the outbound frame; fill it, then call Send.
func (c *Client) SendFrame() *block.Frame { return c.outbound }

// ReadFrame is the most recent fully received inbound frame.
func (c *Client) ReadFrame() *block.Frame { return c.inbound }

// Connect dials host:port and, when configured, runs the hello exchange.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrConnection, port)
	}
	if st := c.State(); st != StateUnconnected {
		return fmt.Errorf("%w: client is %s", ErrConnection, st)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logs.Warnf("wire.Client connect addr=%s err=%v", addr, err)
		return fmt.Errorf("%w: %s: %w", ErrConnection, addr, err)
	}
	return c.Use(conn)
}

// Use adopts an already connected stream.
func (c *Client) Use(conn net.Conn) error {
	if conn == nil {
		return fmt.Errorf("%w: nil conn", ErrConnection)
	}
	var in io.Reader = conn
	if c.cfg.Handshake.Enabled {
		r, err := c.handshake(conn)
		if err != nil {
			_ = conn.Close()
			c.mu.Lock()
			if c.state == StateUnconnected {
				c.state = StateClosed
			}
			c.mu.Unlock()
			observability.RecordSocketClose(remoteAddr(conn), "handshake")
			logs.Warnf("wire.Client handshake peer=%s err=%v", remoteAddr(conn), err)
			return err
		}
		in = r
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUnconnected {
		_ = conn.Close()
		return fmt.Errorf("%w: client is %s", ErrConnection, c.state)
	}
	c.conn = conn
	c.in = in
	c.peer = remoteAddr(conn)
	c.state = StateConnected
	logs.Infof("wire.Client connected peer=%s outbound=%d inbound=%d handshake=%t",
		c.peer, c.cfg.OutboundSize, c.cfg.InboundSize, c.cfg.Handshake.Enabled)
	return nil
}

// handshake returns the reader to use for frames, since the ack reader may
// have buffered bytes past the ack line.
func (c *Client) handshake(conn net.Conn) (*bufio.Reader, error) {
	_ = conn.SetDeadline(time.Now().Add(c.cfg.Handshake.Timeout))
	defer func() { _ = conn.SetDeadline(time.Time{}) }()

	hello := newHello(c.cfg)
	if err := WriteHello(conn, hello); err != nil {
		return nil, fmt.Errorf("%w: write hello: %w", ErrConnection, err)
	}
	r := bufio.NewReaderSize(conn, max(4096, c.cfg.InboundSize))
	ack, err := ReadHelloAck(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read hello ack: %w", ErrConnection, err)
	}
	if err := checkAck(hello, ack); err != nil {
		return nil, err
	}
	logs.Debugf("wire.Client hello accepted session=%s", hello.SessionID)
	return r, nil
}

func (c *Client) active() (net.Conn, io.Reader, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateConnected, StateStreaming:
		return c.conn, c.in, c.peer, nil
	default:
		return nil, nil, "", fmt.Errorf("%w: client is %s", ErrNotConnected, c.state)
	}
}

func (c *Client) markStreaming() {
	c.mu.Lock()
	if c.state == StateConnected {
		c.state = StateStreaming
	}
	c.mu.Unlock()
}

// Send writes the whole outbound frame. Any failure closes the client.
func (c *Client) Send() (int, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	conn, _, peer, err := c.active()
	if err != nil {
		return 0, err
	}
	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	buf := c.outbound.Bytes()
	n, err := conn.Write(buf)
	switch {
	case n > 0 && n < len(buf):
		c.closeWith("partial_write")
		if err != nil {
			return n, fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrPartialWrite, n, len(buf), err)
		}
		return n, fmt.Errorf("%w: wrote %d of %d bytes", ErrPartialWrite, n, len(buf))
	case err != nil:
		c.closeWith("write_error")
		return n, fmt.Errorf("wire: send to %s: %w", peer, err)
	case n == 0:
		c.closeWith("partial_write")
		return 0, fmt.Errorf("%w: wrote 0 of %d bytes", ErrPartialWrite, len(buf))
	}

	c.markStreaming()
	observability.RecordFrameSent(peer)
	return n, nil
}

// Read polls the stream for up to ReadPoll. It returns InboundSize once a
// full frame has arrived and been copied into ReadFrame, or 0 with a nil
// error when no complete frame is available yet. Partial bytes carry over
// to the next call. When several frames arrive in one poll the newest wins.
// If the peer sends a frame and then closes, that frame is reported and the
// client moves to Closed.
func (c *Client) Read() (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	conn, in, peer, err := c.active()
	if err != nil {
		return 0, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadPoll))

	completed := 0
	for {
		n, err := in.Read(c.pending[c.received:])
		c.received += n
		if c.received == len(c.pending) {
			if cerr := c.inbound.CopyFrom(c.pending); cerr != nil {
				return 0, cerr
			}
			c.received = 0
			completed++
		}
		if err == nil {
			continue
		}
		if isTimeout(err) {
			break
		}
		if errors.Is(err, net.ErrClosed) {
			return 0, fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
		reason := "read_error"
		if errors.Is(err, io.EOF) {
			reason = "peer_closed"
		}
		c.closeWith(reason)
		// A frame that landed before the stream ended is still reported;
		// the next call sees ErrNotConnected.
		if completed > 0 {
			observability.RecordFrameReceived(peer, completed-1)
			return len(c.pending), nil
		}
		if errors.Is(err, io.EOF) {
			return 0, ErrPeerClosed
		}
		return 0, fmt.Errorf("wire: read from %s: %w", peer, err)
	}

	if completed == 0 {
		return 0, nil
	}
	c.markStreaming()
	observability.RecordFrameReceived(peer, completed-1)
	return len(c.pending), nil
}

func (c *Client) Close() error {
	return c.closeWith("closed")
}

func (c *Client) closeWith(reason string) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	prev := c.state
	conn, peer := c.conn, c.peer
	c.state = StateClosed
	c.conn = nil
	c.in = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	observability.RecordSocketClose(peer, reason)
	logs.Infof("wire.Client close peer=%s from=%s reason=%s", peer, prev, reason)
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
