package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	sweeps atomic.Int32
}

func (c *countingSweeper) SweepIdle() int {
	c.sweeps.Add(1)
	return 1
}

func (c *countingSweeper) Len() int { return 0 }

func TestSchedulerSweepsPeriodically(t *testing.T) {
	sw := &countingSweeper{}
	s := New(sw, 20*time.Millisecond, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sw.sweeps.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected repeated sweeps, got %d", sw.sweeps.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedulerWithoutSweeper(t *testing.T) {
	s := New(nil, 0, nil)
	if s.interval != DefaultInterval {
		t.Fatalf("expected default interval, got %v", s.interval)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}
