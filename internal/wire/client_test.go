package wire

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/phawd/internal/block"
	"github.com/danmuck/phawd/internal/param"
	"github.com/danmuck/phawd/internal/testutil/testlog"
)

func demoRecords(t *testing.T) []param.Record {
	t.Helper()
	d, err := param.NewFloat64("pw_d", 1.213)
	if err != nil {
		t.Fatalf("new float64: %v", err)
	}
	s, err := param.NewInt64("pw_s64", 12)
	if err != nil {
		t.Fatalf("new int64: %v", err)
	}
	v, err := param.NewVector3("pw_vec3d", [3]float64{-1.4, 2, 3})
	if err != nil {
		t.Fatalf("new vector3: %v", err)
	}
	return []param.Record{d, s, v}
}

func demoFrame(t *testing.T, scale float64) []byte {
	t.Helper()
	f := block.NewFrame(3)
	recs := demoRecords(t)
	if err := recs[0].SetFloat64(1.213 * scale); err != nil {
		t.Fatalf("scale: %v", err)
	}
	if err := f.SetRecords(recs); err != nil {
		t.Fatalf("set records: %v", err)
	}
	return f.Bytes()
}

// listen returns a port and a channel yielding the first accepted conn.
func listen(t *testing.T) (int, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	ch := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(ch)
			return
		}
		t.Cleanup(func() { _ = conn.Close() })
		ch <- conn
	}()
	return ln.Addr().(*net.TCPAddr).Port, ch
}

func accepted(t *testing.T, ch <-chan net.Conn) net.Conn {
	t.Helper()
	select {
	case conn, ok := <-ch:
		if !ok {
			t.Fatalf("accept failed")
		}
		return conn
	case <-time.After(2 * time.Second):
		t.Fatalf("accept timeout")
	}
	return nil
}

func connectedClient(t *testing.T, cfg Config) (*Client, net.Conn) {
	t.Helper()
	port, ch := listen(t)
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Connect(context.Background(), "127.0.0.1", port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return c, accepted(t, ch)
}

// readFrame polls Read until a frame lands or the deadline passes.
func readFrame(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := c.Read()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if n == c.Config().InboundSize {
			return
		}
		if n != 0 {
			t.Fatalf("unexpected read size: %d", n)
		}
	}
	t.Fatalf("no frame within deadline")
}

func TestClientSendsFrame(t *testing.T) {
	testlog.Start(t)

	size := block.FrameSize(3)
	c, conn := connectedClient(t, DefaultConfig(size, size))
	if c.State() != StateConnected {
		t.Fatalf("expected CONNECTED, got %s", c.State())
	}
	if c.SendFrame().Declared() != 3 || c.ReadFrame().Declared() != 3 {
		t.Fatalf("frames should carry record_count before first use")
	}

	if err := c.SendFrame().SetRecords(demoRecords(t)); err != nil {
		t.Fatalf("set records: %v", err)
	}
	n, err := c.Send()
	if err != nil || n != size {
		t.Fatalf("send: n=%d err=%v", n, err)
	}
	if c.State() != StateStreaming {
		t.Fatalf("expected STREAMING, got %s", c.State())
	}

	peer := NewPeer(conn, size, size)
	buf, err := peer.ReadFrame()
	if err != nil {
		t.Fatalf("peer read: %v", err)
	}
	f, err := block.ViewFrame(buf)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	got, err := f.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	vec, err := got.Lookup("pw_vec3d")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if v, _ := vec.Vector3(); v != [3]float64{-1.4, 2, 3} {
		t.Fatalf("unexpected pw_vec3d: %v", v)
	}
}

func TestReadIsAdvisoryUntilFrameCompletes(t *testing.T) {
	testlog.Start(t)

	size := block.FrameSize(3)
	c, conn := connectedClient(t, DefaultConfig(size, size))

	n, err := c.Read()
	if err != nil || n != 0 {
		t.Fatalf("read before peer wrote: n=%d err=%v", n, err)
	}

	frame := demoFrame(t, 1)
	if _, err := conn.Write(frame[:size/2]); err != nil {
		t.Fatalf("peer write first half: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	n, err = c.Read()
	if err != nil || n != 0 {
		t.Fatalf("read of half frame: n=%d err=%v", n, err)
	}
	if _, err := conn.Write(frame[size/2:]); err != nil {
		t.Fatalf("peer write second half: %v", err)
	}
	readFrame(t, c)

	got, err := c.ReadFrame().Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	d, _ := got.Lookup("pw_d")
	if v, _ := d.Float64(); v != 1.213 {
		t.Fatalf("unexpected pw_d: %v", v)
	}
	s, _ := got.Lookup("pw_s64")
	if v, _ := s.Int64(); v != 12 {
		t.Fatalf("unexpected pw_s64: %v", v)
	}
}

func TestReadKeepsNewestFrame(t *testing.T) {
	testlog.Start(t)

	size := block.FrameSize(3)
	c, conn := connectedClient(t, DefaultConfig(size, size))

	both := append(append([]byte{}, demoFrame(t, 1)...), demoFrame(t, 2)...)
	if _, err := conn.Write(both); err != nil {
		t.Fatalf("peer write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := c.Read(); err != nil {
			t.Fatalf("read: %v", err)
		}
		got, err := c.ReadFrame().Record(0)
		if err != nil {
			continue
		}
		if v, _ := got.Float64(); v == 1.213*2 {
			return
		}
	}
	t.Fatalf("newest frame never published")
}

func TestPeerCloseEndsClient(t *testing.T) {
	testlog.Start(t)

	size := block.FrameSize(1)
	c, conn := connectedClient(t, DefaultConfig(size, size))
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := c.Read()
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrPeerClosed) || !errors.Is(err, ErrNotConnected) {
			t.Fatalf("expected ErrPeerClosed, got %v", err)
		}
		if c.State() != StateClosed {
			t.Fatalf("expected CLOSED, got %s", c.State())
		}
		if _, err := c.Send(); !errors.Is(err, ErrNotConnected) {
			t.Fatalf("expected ErrNotConnected after close, got %v", err)
		}
		return
	}
	t.Fatalf("peer close never observed")
}

func TestFrameBeforePeerCloseIsReported(t *testing.T) {
	testlog.Start(t)

	size := block.FrameSize(3)
	c, conn := connectedClient(t, DefaultConfig(size, size))
	if _, err := conn.Write(demoFrame(t, 2)); err != nil {
		t.Fatalf("peer write: %v", err)
	}
	_ = conn.Close()
	time.Sleep(50 * time.Millisecond)

	n, err := c.Read()
	if err != nil {
		t.Fatalf("expected final frame before close error, got %v", err)
	}
	if n != size {
		t.Fatalf("expected %d, got %d", size, n)
	}
	got, err := c.ReadFrame().Record(0)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if v, _ := got.Float64(); v != 1.213*2 {
		t.Fatalf("unexpected value: %v", v)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := c.Read()
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotConnected) {
			t.Fatalf("expected ErrNotConnected, got %v", err)
		}
		if c.State() != StateClosed {
			t.Fatalf("expected CLOSED, got %s", c.State())
		}
		return
	}
	t.Fatalf("peer close never observed")
}

func TestNotConnectedAndConnectErrors(t *testing.T) {
	testlog.Start(t)

	size := block.FrameSize(1)
	c, err := NewClient(DefaultConfig(size, size))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.State() != StateUnconnected {
		t.Fatalf("expected UNCONNECTED, got %s", c.State())
	}
	if _, err := c.Send(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected from Send, got %v", err)
	}
	if _, err := c.Read(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected from Read, got %v", err)
	}
	if err := c.Connect(context.Background(), "127.0.0.1", 0); !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection for port 0, got %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	if err := c.Connect(context.Background(), "127.0.0.1", port); !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection for refused dial, got %v", err)
	}
	if c.State() != StateUnconnected {
		t.Fatalf("failed dial should leave client UNCONNECTED, got %s", c.State())
	}
}

func TestConfigValidateRejectsRaggedSize(t *testing.T) {
	testlog.Start(t)

	if _, err := NewClient(DefaultConfig(block.FrameSize(2)+3, block.FrameSize(1))); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
	if _, err := NewClient(DefaultConfig(block.FrameSize(1), 4)); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

type shortConn struct {
	writes int
	closed bool
}

func (c *shortConn) Read([]byte) (int, error)         { return 0, nil }
func (c *shortConn) Write(b []byte) (int, error)      { c.writes++; return len(b) / 2, nil }
func (c *shortConn) Close() error                     { c.closed = true; return nil }
func (c *shortConn) LocalAddr() net.Addr              { return &net.TCPAddr{} }
func (c *shortConn) RemoteAddr() net.Addr             { return &net.TCPAddr{} }
func (c *shortConn) SetDeadline(time.Time) error      { return nil }
func (c *shortConn) SetReadDeadline(time.Time) error  { return nil }
func (c *shortConn) SetWriteDeadline(time.Time) error { return nil }

func TestWithDefaultsFillsEveryDuration(t *testing.T) {
	size := block.FrameSize(1)
	cfg := Config{OutboundSize: size, InboundSize: size}.WithDefaults()
	d := DefaultConfig(size, size)
	if cfg.ConnectTimeout != d.ConnectTimeout || cfg.ReadPoll != d.ReadPoll {
		t.Fatalf("unexpected dial/poll defaults: %+v", cfg)
	}
	if cfg.WriteTimeout != d.WriteTimeout {
		t.Fatalf("expected write timeout %s, got %s", d.WriteTimeout, cfg.WriteTimeout)
	}
	if cfg.Handshake.Timeout != d.Handshake.Timeout {
		t.Fatalf("expected handshake timeout %s, got %s", d.Handshake.Timeout, cfg.Handshake.Timeout)
	}
}

func TestShortWriteClosesClient(t *testing.T) {
	testlog.Start(t)

	size := block.FrameSize(3)
	c, err := NewClient(DefaultConfig(size, size))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	conn := &shortConn{}
	if err := c.Use(conn); err != nil {
		t.Fatalf("use: %v", err)
	}
	n, err := c.Send()
	if !errors.Is(err, ErrPartialWrite) {
		t.Fatalf("expected ErrPartialWrite, got n=%d err=%v", n, err)
	}
	if n != size/2 {
		t.Fatalf("unexpected partial count: %d", n)
	}
	if c.State() != StateClosed || !conn.closed {
		t.Fatalf("short write should close: state=%s closed=%t", c.State(), conn.closed)
	}
	if _, err := c.Send(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if conn.writes != 1 {
		t.Fatalf("closed client kept writing: %d", conn.writes)
	}
}
