package main

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/danmuck/phawd/internal/config"
	"github.com/danmuck/phawd/internal/wire"
	logs "github.com/danmuck/smplog"
)

// connectWithRetry repeats Connect while the dial itself fails, up to
// sock.ConnectAttempts tries (0 keeps trying until ctx ends), waiting
// sock.Retry.Delay between tries. Once a connection exists nothing is
// retried.
func connectWithRetry(ctx context.Context, c *wire.Client, sock config.SocketConfig) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for attempt := 1; ; attempt++ {
		err := c.Connect(ctx, sock.Host, sock.Port)
		if err == nil {
			return nil
		}
		if c.State() != wire.StateUnconnected {
			return err
		}
		if sock.ConnectAttempts > 0 && attempt >= sock.ConnectAttempts {
			return err
		}
		delay := sock.Retry.Delay(attempt, rng.Float64())
		logs.Warnf("phawdctl dial attempt=%d addr=%s:%d retry_in=%s err=%v", attempt, sock.Host, sock.Port, delay, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
