package world

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRun_AdvancesOnClockUntilCancelled(t *testing.T) {
	w, _ := newTestWorld(t, 3, 1)
	id := mustAdd(t, w, miner("m", 0, 0, 1, 10), 0)
	mustAdd(t, w, ore(0, 2), 0)

	ctx, cancel := context.WithCancel(context.Background())
	var now int64
	clock := func() int64 { now += 10; return now }
	calls := 0
	after := func(w *World) {
		calls++
		if calls == 5 {
			cancel()
		}
	}

	err := w.Run(ctx, time.Millisecond, clock, after, func(err error) { t.Errorf("advance: %v", err) })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err=%v", err)
	}
	if w.Now() != 50 {
		t.Fatalf("now=%d want 50", w.Now())
	}
	if v := mustView(t, w, id); v.Load != 1 {
		t.Fatalf("miner did not act: %+v", v)
	}
}

func TestRun_ReportsAdvanceErrors(t *testing.T) {
	w, _ := newTestWorld(t, 1, 1)
	mustAdvance(t, w, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var errs int
	err := w.Run(ctx, time.Millisecond, func() int64 { return 50 }, nil, func(err error) {
		errs++
		cancel()
	})
	if !errors.Is(err, context.Canceled) || errs == 0 {
		t.Fatalf("err=%v errs=%d", err, errs)
	}
}
