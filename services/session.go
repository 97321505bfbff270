package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

// ChangeSubscriber is implemented by notifiers that can also deliver changes.
type ChangeSubscriber interface {
	Subscribe(userID string) (<-chan MatchChange, func())
}

// Session update reasons.
const (
	UpdateInitial   = "initial"
	UpdateNewEpoch  = "epoch"
	UpdateReconcile = "reconcile"
)

// SessionUpdate is pushed to the session owner whenever the user's entries
// may have changed.
type SessionUpdate struct {
	UserID           string              `json:"userId"`
	EpochID          string              `json:"epochId"`
	Entries          []models.MatchEntry `json:"matches"`
	RemainingSeconds int64               `json:"remainingSeconds"`
	Reason           string              `json:"reason"`
}

// Session drives one active user: an epoch countdown that generates when the
// epoch rolls over, and a reconciliation poll that change notifications can
// run early.
type Session struct {
	UserID string

	ms       *MatchingService
	timer    *EpochTimer
	onUpdate func(SessionUpdate)
	log      zerolog.Logger

	emitMu    sync.Mutex
	lastTotal int
	last      *SessionUpdate
	cancel    context.CancelFunc
	done      []<-chan struct{}
	unsub     func()
	once      sync.Once
}

// StartSession runs GetOrGenerate once, then starts the session tasks. They
// stop when ctx is done or Stop is called.
func (ms *MatchingService) StartSession(ctx context.Context, userID string, onUpdate func(SessionUpdate)) *Session {
	if onUpdate == nil {
		onUpdate = func(SessionUpdate) {}
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		UserID:   userID,
		ms:       ms,
		timer:    ms.NewEpochTimer(),
		onUpdate: onUpdate,
		log:      ms.log.With().Str("userId", userID).Logger(),
		cancel:   cancel,
		unsub:    func() {},
	}

	s.generate(sctx, UpdateInitial)

	trigger := make(chan struct{}, 1)
	if sub, ok := ms.Notifier.(ChangeSubscriber); ok {
		changes, unsub := sub.Subscribe(userID)
		s.unsub = unsub
		s.done = append(s.done, forward(sctx, changes, trigger))
	}

	countdown := &PeriodicTask{
		Name:     "countdown",
		Interval: orDefault(ms.Config.CountdownInterval, time.Second),
		Run:      s.countdown,
		Log:      s.log,
	}
	poll := &PeriodicTask{
		Name:     "reconcile",
		Interval: orDefault(ms.Config.ReconcileInterval, 30*time.Second),
		Run:      s.reconcile,
		Trigger:  trigger,
		Log:      s.log,
	}
	s.done = append(s.done, countdown.Start(sctx), poll.Start(sctx))

	s.log.Info().Msg("▶️ Matching session started")
	return s
}

// Stop cancels both tasks and waits for them to exit.
func (s *Session) Stop() {
	s.once.Do(func() {
		s.cancel()
		for _, done := range s.done {
			<-done
		}
		s.unsub()
		s.log.Info().Msg("⏹️ Matching session stopped")
	})
}

// Timer exposes the session countdown.
func (s *Session) Timer() *EpochTimer {
	return s.timer
}

func (s *Session) countdown(ctx context.Context) {
	s.timer.Tick()
	if !s.timer.CanGenerate() {
		return
	}
	s.generate(ctx, UpdateNewEpoch)
	s.timer.MarkGenerated()
}

func (s *Session) generate(ctx context.Context, reason string) {
	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	gen, err := s.ms.GetOrGenerate(ctx, s.UserID)
	if err != nil {
		s.log.Error().Err(err).Bool("transient", IsTransient(err)).Msg("❌ Generation failed, keeping previous state")
		return
	}
	s.emit(gen.EpochID, gen.Entries, reason)
}

func (s *Session) reconcile(ctx context.Context) {
	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	result, err := s.ms.Reconcile(ctx, s.UserID)
	if err != nil {
		s.log.Warn().Err(err).Msg("⚠️ Reconcile failed, retrying next tick")
		return
	}
	if result.Updated == 0 && result.Checked == s.emittedTotal() {
		return
	}
	entries, err := s.ms.ListEntries(ctx, s.UserID, result.EpochID)
	if err != nil {
		s.log.Warn().Err(err).Msg("⚠️ Failed to reload entries after reconcile")
		return
	}
	s.emit(result.EpochID, entries, UpdateReconcile)
}

func (s *Session) emit(epochID string, entries []models.MatchEntry, reason string) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.lastTotal = len(entries)
	update := SessionUpdate{
		UserID:           s.UserID,
		EpochID:          epochID,
		Entries:          entries,
		RemainingSeconds: s.timer.RemainingSeconds(),
		Reason:           reason,
	}
	s.last = &update
	s.onUpdate(update)
}

// Last returns the most recent update with a fresh countdown.
func (s *Session) Last() (SessionUpdate, bool) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.last == nil {
		return SessionUpdate{}, false
	}
	update := *s.last
	update.RemainingSeconds = s.timer.RemainingSeconds()
	return update, true
}

func (s *Session) emittedTotal() int {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	return s.lastTotal
}

func (s *Session) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.ms.Config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.ms.Config.RequestTimeout)
}

// forward turns changes into non-blocking pokes on trigger.
func forward(ctx context.Context, changes <-chan MatchChange, trigger chan<- struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				select {
				case trigger <- struct{}{}:
				default:
				}
			}
		}
	}()
	return done
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
