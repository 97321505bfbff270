package services

import (
	"context"
	"sync"
	"time"
)

// EpochTimer counts down to the end of the current epoch. When the end is
// reached it sets canGenerate, rolls over to the next epoch and signals Ready.
type EpochTimer struct {
	calc  EpochCalculator
	clock Clock

	mu          sync.Mutex
	epoch       Epoch
	canGenerate bool
	ready       chan struct{}
}

func NewEpochTimer(calc EpochCalculator, clock Clock) *EpochTimer {
	return &EpochTimer{
		calc:  calc,
		clock: clock,
		epoch: calc.Epoch(clock.Now()),
		ready: make(chan struct{}, 1),
	}
}

// Current returns the epoch the timer is counting down.
func (t *EpochTimer) Current() Epoch {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Remaining returns the time left until the current epoch ends, never negative.
func (t *EpochTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.epoch.End.Sub(t.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

func (t *EpochTimer) RemainingSeconds() int64 {
	return int64(t.Remaining() / time.Second)
}

func (t *EpochTimer) CanGenerate() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canGenerate
}

// MarkGenerated clears canGenerate once the caller has run generation.
func (t *EpochTimer) MarkGenerated() {
	t.mu.Lock()
	t.canGenerate = false
	t.mu.Unlock()
}

// Ready receives a value each time the timer rolls over. Signals are
// coalesced when nobody is reading.
func (t *EpochTimer) Ready() <-chan struct{} {
	return t.ready
}

// Tick advances the countdown and reports whether this call rolled the epoch.
func (t *EpochTimer) Tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if now.Before(t.epoch.End) {
		return false
	}

	at := now
	if !at.After(t.epoch.End) {
		at = t.epoch.End.Add(time.Millisecond)
	}
	t.epoch = t.calc.Epoch(at)
	t.canGenerate = true

	select {
	case t.ready <- struct{}{}:
	default:
	}
	return true
}

// Run ticks every interval until ctx is done.
func (t *EpochTimer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}
