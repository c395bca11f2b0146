package sim

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestDriverRunStopsOnCancel(t *testing.T) {
	var ticks atomic.Int64
	d := &Driver{
		Name:     "test",
		Interval: 5 * time.Millisecond,
		log:      slog.Default(),
		Tick: func(ctx context.Context) error {
			ticks.Add(1)
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := d.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if ticks.Load() == 0 {
		t.Fatalf("expected at least one tick")
	}
}

func TestDriverKeepsGoingAfterTickError(t *testing.T) {
	var ticks atomic.Int64
	d := &Driver{
		Name:     "flaky",
		Interval: 5 * time.Millisecond,
		log:      slog.Default(),
		Tick: func(ctx context.Context) error {
			if ticks.Add(1) == 1 {
				return errors.New("boom")
			}
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_ = d.Run(ctx)
	if ticks.Load() < 2 {
		t.Fatalf("driver must survive a failing tick, got %d ticks", ticks.Load())
	}
}
