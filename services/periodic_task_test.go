package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicTask_RunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	task := &PeriodicTask{
		Name:     "tick",
		Interval: 5 * time.Millisecond,
		Run:      func(context.Context) { runs.Add(1) },
		Log:      zerolog.Nop(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := task.Start(ctx)

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestPeriodicTask_RunsOnTrigger(t *testing.T) {
	trigger := make(chan struct{})
	ran := make(chan struct{}, 1)
	task := &PeriodicTask{
		Name:     "poke",
		Interval: time.Hour,
		Run:      func(context.Context) { ran <- struct{}{} },
		Trigger:  trigger,
		Log:      zerolog.Nop(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := task.Start(ctx)

	trigger <- struct{}{}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not run the task")
	}

	// a closed trigger is ignored and the loop keeps going
	close(trigger)
	cancel()
	<-done
}

func TestPeriodicTask_CancelLetsRunFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runErr atomic.Value

	task := &PeriodicTask{
		Name:     "slow",
		Interval: time.Millisecond,
		Run: func(ctx context.Context) {
			select {
			case started <- struct{}{}:
			default:
				return
			}
			<-release
			runErr.Store(ctx.Err() == nil)
		},
		Log: zerolog.Nop(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := task.Start(ctx)

	<-started
	cancel()
	select {
	case <-done:
		t.Fatal("loop exited while a run was in progress")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after the run finished")
	}
	require.NotNil(t, runErr.Load())
	assert.True(t, runErr.Load().(bool), "run context must outlive cancellation")
}
