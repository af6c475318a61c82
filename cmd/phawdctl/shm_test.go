package main

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/danmuck/phawd/internal/config"
	"github.com/danmuck/phawd/internal/shm"
	"github.com/danmuck/phawd/internal/testutil/testlog"
)

func TestShmWriterThenReader(t *testing.T) {
	testlog.Start(t)

	cfg := config.Default()
	cfg.Segment.Name = "phawdctl_" + uuid.NewString()[:8]
	cfg.Segment.Dir = t.TempDir()
	cfg.Segment.IntervalMS = 1

	if err := runShmWriter(context.Background(), cfg, 3); err != nil {
		t.Fatalf("writer: %v", err)
	}
	seg, err := shm.Attach(cfg.Segment.Name, cfg.SegmentSize(), shm.WithDir(cfg.Segment.Dir))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer seg.Detach()
	if seg.Created() {
		t.Fatalf("writer should have left the segment in place")
	}
	if live, _ := seg.Liveness(); live != 1 {
		t.Fatalf("writer liveness not released: %d", live)
	}
	c, err := seg.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	r, err := c.Lookup("pw_s64")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if v, _ := r.Int64(); v != 14 {
		t.Fatalf("expected two advances on pw_s64, got %d", v)
	}
	if err := runShmReader(context.Background(), cfg, 1); err != nil {
		t.Fatalf("reader: %v", err)
	}
}
