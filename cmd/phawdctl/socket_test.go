package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/danmuck/phawd/internal/config"
	"github.com/danmuck/phawd/internal/testutil/testlog"
)

func TestSocketClientAgainstEchoPeer(t *testing.T) {
	testlog.Start(t)

	cfg := config.Default()
	cfg.Socket.Port = freePort(t)
	cfg.Socket.Handshake = true
	cfg.Segment.IntervalMS = 5
	cfg.Socket.ConnectAttempts = 0
	cfg.Socket.Retry.InitialDelayMS = 5

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	peerErr := make(chan error, 1)
	go func() { peerErr <- runEchoPeer(ctx, cfg) }()

	if err := runSocketClient(ctx, cfg, 5); err != nil {
		t.Fatalf("socket-client: %v", err)
	}
	cancel()
	if perr := <-peerErr; perr != nil {
		t.Fatalf("echo-peer: %v", perr)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
