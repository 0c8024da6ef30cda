package world

import (
	"context"
	"time"
)

// Clock supplies the timestamp passed to AdvanceTo, in milliseconds.
type Clock func() int64

func WallClock() int64 { return time.Now().UnixMilli() }

// Run drives the world on a fixed cadence until ctx is done. After every advance
// it calls after (may be nil) on the same goroutine, so after may read the world.
// Errors from AdvanceTo are reported through onErr and do not stop the loop.
func (w *World) Run(ctx context.Context, every time.Duration, clock Clock, after func(*World), onErr func(error)) error {
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	if clock == nil {
		clock = WallClock
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.AdvanceTo(clock()); err != nil && onErr != nil {
				onErr(err)
			}
			if after != nil {
				after(w)
			}
		}
	}
}
