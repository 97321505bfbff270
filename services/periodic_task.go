package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PeriodicTask runs Run every Interval and whenever Trigger fires, one run at
// a time. Cancelling the Start context stops the loop; a run in progress is
// not cancelled and completes first.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
	Trigger  <-chan struct{}
	Log      zerolog.Logger
}

// Start launches the loop. The returned channel is closed once the loop has
// exited.
func (t *PeriodicTask) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	runCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(done)
		ticker := time.NewTicker(t.Interval)
		defer ticker.Stop()
		trigger := t.Trigger

		t.Log.Debug().Str("task", t.Name).Dur("interval", t.Interval).Msg("⏱️ Task started")
		for {
			select {
			case <-ctx.Done():
				t.Log.Debug().Str("task", t.Name).Msg("⏹️ Task stopped")
				return
			case <-ticker.C:
			case _, ok := <-trigger:
				if !ok {
					trigger = nil
					continue
				}
			}
			if ctx.Err() != nil {
				return
			}
			t.Run(runCtx)
		}
	}()
	return done
}
