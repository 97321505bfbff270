package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kubolab-io/takkapp-v1-sub000/testutil"
)

func TestEpochTimer_Countdown(t *testing.T) {
	clock := testutil.NewFakeClock(wednesday)
	timer := NewEpochTimer(NewEpochCalculator(time.UTC), clock)

	assert.Equal(t, "2026-W29", timer.Current().ID)
	assert.Equal(t, int64(388799), timer.RemainingSeconds())
	assert.False(t, timer.Tick())
	assert.False(t, timer.CanGenerate())

	clock.Advance(24 * time.Hour)
	assert.Equal(t, int64(388799-86400), timer.RemainingSeconds())
}

func TestEpochTimer_RollsOverAtEnd(t *testing.T) {
	clock := testutil.NewFakeClock(wednesday)
	timer := NewEpochTimer(NewEpochCalculator(time.UTC), clock)
	end := timer.Current().End

	clock.Set(end)
	assert.Equal(t, time.Duration(0), timer.Remaining())
	require.True(t, timer.Tick())
	assert.True(t, timer.CanGenerate())
	assert.Equal(t, "2026-W30", timer.Current().ID)
	assert.True(t, timer.Current().End.After(end))

	select {
	case <-timer.Ready():
	default:
		t.Fatal("expected a ready signal")
	}

	timer.MarkGenerated()
	assert.False(t, timer.CanGenerate())
	assert.False(t, timer.Tick())
}

func TestEpochTimer_JumpsOverMissedEpochs(t *testing.T) {
	clock := testutil.NewFakeClock(wednesday)
	timer := NewEpochTimer(NewEpochCalculator(time.UTC), clock)

	clock.Set(time.Date(2026, time.August, 5, 9, 0, 0, 0, time.UTC))
	require.True(t, timer.Tick())
	assert.Equal(t, "2026-W32", timer.Current().ID)
	assert.Positive(t, timer.RemainingSeconds())
}

func TestEpochTimer_RemainingNeverNegative(t *testing.T) {
	clock := testutil.NewFakeClock(wednesday)
	timer := NewEpochTimer(NewEpochCalculator(time.UTC), clock)
	clock.Advance(30 * 24 * time.Hour)
	assert.Equal(t, int64(0), timer.RemainingSeconds())
}

func TestEpochTimer_Run(t *testing.T) {
	clock := testutil.NewFakeClock(wednesday)
	timer := NewEpochTimer(NewEpochCalculator(time.UTC), clock)
	clock.Set(timer.Current().End.Add(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		timer.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-timer.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not roll over")
	}
	cancel()
	<-done
	assert.True(t, timer.CanGenerate())
}
