package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danmuck/phawd/internal/config"
	"github.com/danmuck/phawd/internal/param"
	"github.com/danmuck/phawd/internal/shm"
	logs "github.com/danmuck/smplog"
)

func newShmWriterCommand(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "shm-writer",
		Short: "Attach the segment and publish the configured parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShmWriter(cmd.Context(), a.cfg, count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many publishes (0 runs until interrupted)")
	return cmd
}

func newShmReaderCommand(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "shm-reader",
		Short: "Attach the segment and log its records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShmReader(cmd.Context(), a.cfg, count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many reads (0 runs until interrupted)")
	return cmd
}

func attachSegment(cfg config.Config) (*shm.Segment, error) {
	var opts []shm.Option
	if cfg.Segment.Dir != "" {
		opts = append(opts, shm.WithDir(cfg.Segment.Dir))
	}
	return shm.Attach(cfg.Segment.Name, cfg.SegmentSize(), opts...)
}

func releaseSegment(cfg config.Config, seg *shm.Segment) {
	if err := seg.Detach(); err != nil {
		logs.Warnf("phawdctl detach segment=%s err=%v", seg.Name(), err)
	}
	if !cfg.Segment.Unlink || !seg.Created() {
		return
	}
	var opts []shm.Option
	if cfg.Segment.Dir != "" {
		opts = append(opts, shm.WithDir(cfg.Segment.Dir))
	}
	if err := shm.Unlink(seg.Name(), opts...); err != nil {
		logs.Warnf("phawdctl unlink segment=%s err=%v", seg.Name(), err)
	}
}

func runShmWriter(ctx context.Context, cfg config.Config, count int) error {
	records, err := cfg.Records()
	if err != nil {
		return err
	}
	seg, err := attachSegment(cfg)
	if err != nil {
		return err
	}
	defer releaseSegment(cfg, seg)

	return tick(ctx, cfg.SegmentInterval(), count, func(i int) error {
		if i > 0 {
			advance(records)
		}
		if err := seg.SetParameters(records); err != nil {
			return err
		}
		logs.Debugf("phawdctl shm-writer publish=%d records=%d", i, len(records))
		return nil
	})
}

func runShmReader(ctx context.Context, cfg config.Config, count int) error {
	seg, err := attachSegment(cfg)
	if err != nil {
		return err
	}
	defer releaseSegment(cfg, seg)

	return tick(ctx, cfg.SegmentInterval(), count, func(i int) error {
		c, err := seg.Collect()
		if err != nil {
			return err
		}
		live, _ := seg.Liveness()
		if full, _ := seg.AllSet(); !full {
			logs.Debugf("phawdctl shm-reader read=%d partial=%d/%d", i, c.Len(), len(cfg.Parameters))
		}
		for _, name := range c.Names() {
			r, _ := c.Lookup(name)
			logs.Infof("phawdctl shm-reader read=%d liveness=%d %s", i, live, r)
		}
		return nil
	})
}

// advance moves every record forward a step so readers can see updates.
func advance(records []param.Record) {
	for i := range records {
		r := &records[i]
		switch r.Kind() {
		case param.KindFloat64:
			v, _ := r.Float64()
			_ = r.SetFloat64(v + 0.001)
		case param.KindInt64:
			v, _ := r.Int64()
			_ = r.SetInt64(v + 1)
		case param.KindVector3:
			v, _ := r.Vector3()
			_ = r.SetVector3([3]float64{v[0] + 0.001, v[1], v[2]})
		}
	}
}

// tick calls fn immediately and then once per interval until ctx ends or
// count calls have run.
func tick(ctx context.Context, interval time.Duration, count int, fn func(i int) error) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; count <= 0 || i < count; i++ {
		if err := fn(i); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		if count > 0 && i == count-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
