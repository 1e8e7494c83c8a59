package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingTicker struct {
	calls atomic.Int32
	ctxs  chan context.Context
}

func (c *countingTicker) Tick(ctx context.Context) {
	c.calls.Add(1)
	select {
	case c.ctxs <- ctx:
	default:
	}
}

func TestSchedulerTicksImmediately(t *testing.T) {
	ticker := &countingTicker{ctxs: make(chan context.Context, 1)}
	s := New(ticker, time.Hour, time.UTC)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var ctx context.Context
	select {
	case ctx = <-ticker.ctxs:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate tick")
	}

	s.Stop()
	if ctx.Err() == nil {
		t.Fatal("expected tick context to be cancelled on stop")
	}
	if got := ticker.calls.Load(); got != 1 {
		t.Fatalf("expected 1 tick with an hourly interval, got %d", got)
	}
}
