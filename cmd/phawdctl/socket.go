package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danmuck/phawd/internal/block"
	"github.com/danmuck/phawd/internal/config"
	"github.com/danmuck/phawd/internal/wire"
	logs "github.com/danmuck/smplog"
)

func newSocketClientCommand(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "socket-client",
		Short: "Connect to a peer, send the configured parameters and read its frames",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSocketClient(cmd.Context(), a.cfg, count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many sends (0 runs until interrupted)")
	return cmd
}

func newEchoPeerCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echo-peer",
		Short: "Accept one socket-client and echo its frames back",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEchoPeer(cmd.Context(), a.cfg)
		},
	}
	return cmd
}

func runSocketClient(ctx context.Context, cfg config.Config, count int) error {
	records, err := cfg.Records()
	if err != nil {
		return err
	}
	wc, err := cfg.Wire()
	if err != nil {
		return err
	}
	client, err := wire.NewClient(wc)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := connectWithRetry(ctx, client, cfg.Socket); err != nil {
		return err
	}

	return tick(ctx, cfg.SegmentInterval(), count, func(i int) error {
		if i > 0 {
			advance(records)
		}
		if err := client.SendFrame().SetRecords(records); err != nil {
			return err
		}
		if _, err := client.Send(); err != nil {
			return err
		}
		n, err := client.Read()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		c, err := client.ReadFrame().Snapshot()
		if err != nil {
			return err
		}
		for _, name := range c.Names() {
			r, _ := c.Lookup(name)
			logs.Infof("phawdctl socket-client read=%d %s", i, r)
		}
		return nil
	})
}

func runEchoPeer(ctx context.Context, cfg config.Config) error {
	wc, err := cfg.Wire()
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(cfg.Socket.Host, strconv.Itoa(cfg.Socket.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("echo-peer listen %s: %w", addr, err)
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	logs.Infof("phawdctl echo-peer listening addr=%s outbound=%d inbound=%d", addr, wc.OutboundSize, wc.InboundSize)

	conn, err := ln.Accept()
	_ = ln.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	var peer *wire.Peer
	if wc.Handshake.Enabled {
		expect := wire.Expect{
			OutboundSize: wc.OutboundSize,
			InboundSize:  wc.InboundSize,
			Timeout:      wc.Handshake.Timeout,
		}
		if wc.Handshake.OutboundLayout != nil {
			expect.OutboundDigest = wc.Handshake.OutboundLayout.Digest()
		}
		p, hello, err := wire.Accept(conn, expect)
		if err != nil {
			_ = conn.Close()
			return err
		}
		logs.Infof("phawdctl echo-peer hello session=%s", hello.SessionID)
		peer = p
	} else {
		peer = wire.NewPeer(conn, wc.OutboundSize, wc.InboundSize)
	}
	defer peer.Close()

	nIn, _ := block.CountForFrameSize(wc.InboundSize)
	reply := block.NewFrame(nIn)
	for {
		buf, err := peer.ReadFrame()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logs.Warnf("phawdctl echo-peer read err=%v", err)
			}
			logs.Infof("phawdctl echo-peer session ended")
			return nil
		}
		if err := echoInto(reply, buf); err != nil {
			return err
		}
		if err := peer.WriteFrame(reply.Bytes()); err != nil {
			logs.Infof("phawdctl echo-peer session ended err=%v", err)
			return nil
		}
	}
}

// echoInto copies received records into reply by position, as many as fit.
func echoInto(reply *block.Frame, received []byte) error {
	in, err := block.ViewFrame(received)
	if err != nil {
		return err
	}
	n := min(in.Len(), reply.Len())
	for i := 0; i < n; i++ {
		r, err := in.Record(i)
		if err != nil {
			continue
		}
		if err := reply.SetRecord(i, r); err != nil {
			return err
		}
	}
	return nil
}
