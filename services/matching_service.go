package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
)

// ProfileSource is what generation needs from the profile store.
type ProfileSource interface {
	ProfileReader
	EligiblePool(ctx context.Context, requesterID string) []models.ProfileSnapshot
}

// Generation is the outcome of GetOrGenerate.
type Generation struct {
	EpochID string              `json:"epochId"`
	Entries []models.MatchEntry `json:"matches"`
	// Created is true when this call wrote the view.
	Created bool `json:"created"`
	// Denied is true when the requester may not take part in matching.
	Denied bool `json:"denied"`
}

// ChatHandoff is what the chat subsystem receives for a mutual pair.
type ChatHandoff struct {
	MatchID string    `json:"matchId"`
	UserIDs [2]string `json:"userIds"`
}

// MatchingService is the matching engine. It holds no per-user state; every
// call reads what it needs from the store.
type MatchingService struct {
	Store      store.DocumentStore
	Profiles   ProfileSource
	Pairs      *MatchPairStore
	Views      *UserViewStore
	Reconciler *Reconciler
	Selector   CandidateSelector
	Epochs     EpochCalculator
	Clock      Clock
	Notifier   Notifier
	Metrics    Metrics
	Config     config.MatchingConfig
	log        zerolog.Logger
}

func NewMatchingService(
	st store.DocumentStore,
	profiles ProfileSource,
	clock Clock,
	rnd Random,
	notifier Notifier,
	metrics Metrics,
	conf *config.Config,
	logger zerolog.Logger,
) *MatchingService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	pairs := NewMatchPairStore(st, clock, logger)
	views := NewUserViewStore(st, clock, logger)
	return &MatchingService{
		Store:      st,
		Profiles:   profiles,
		Pairs:      pairs,
		Views:      views,
		Reconciler: NewReconciler(pairs, views, profiles, logger),
		Selector: CandidateSelector{
			Random:     rnd,
			MinMatches: conf.Matching.MinMatches,
			MaxMatches: conf.Matching.MaxMatches,
		},
		Epochs:   NewEpochCalculator(conf.Location()),
		Clock:    clock,
		Notifier: notifier,
		Metrics:  metrics,
		Config:   conf.Matching,
		log:      logger.With().Str("component", "matching").Logger(),
	}
}

func (ms *MatchingService) CurrentEpoch() Epoch {
	return ms.Epochs.Epoch(ms.Clock.Now())
}

func (ms *MatchingService) CurrentEpochID() string {
	return ms.CurrentEpoch().ID
}

// NewEpochTimer returns a countdown for the current epoch.
func (ms *MatchingService) NewEpochTimer() *EpochTimer {
	return NewEpochTimer(ms.Epochs, ms.Clock)
}

// GetOrGenerate returns the user's view for the current epoch, running a
// generation cycle when none exists. A user that fails the gate, or whose
// profile cannot be read, gets an empty denied result and nothing is written.
func (ms *MatchingService) GetOrGenerate(ctx context.Context, userID string) (*Generation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}
	epoch := ms.CurrentEpoch()

	view, err := ms.Views.GetView(ctx, userID, epoch.ID)
	if err == nil {
		ms.Metrics.IncGeneration(OutcomeExisting)
		return &Generation{EpochID: epoch.ID, Entries: view.Matches}, nil
	}
	if !errors.Is(err, ErrViewNotFound) {
		ms.Metrics.IncGeneration(OutcomeFailed)
		return nil, err
	}

	requester, err := ms.Profiles.GetProfile(ctx, userID)
	if err != nil {
		ms.log.Warn().Err(err).Str("userId", userID).Msg("⚠️ Requester profile unavailable, skipping generation")
		ms.Metrics.IncGeneration(OutcomeDenied)
		return deniedGeneration(epoch.ID), nil
	}
	if !CanRequestMatches(*requester) {
		ms.log.Debug().Str("userId", userID).Msg("Matching gate denied")
		ms.Metrics.IncGeneration(OutcomeDenied)
		return deniedGeneration(epoch.ID), nil
	}

	pool := ms.Profiles.EligiblePool(ctx, userID)
	selected := ms.Selector.Select(pool, userID, ms.Selector.RequestedCount())

	var gen *Generation
	if bw, ok := ms.Store.(store.BatchWriter); ok && ms.Config.AtomicGeneration {
		gen, err = ms.generateAtomic(ctx, bw, *requester, selected, epoch)
	} else {
		if ms.Config.AtomicGeneration {
			ms.log.Warn().Msg("⚠️ Store does not support batches, generating sequentially")
		}
		gen, err = ms.generateSequential(ctx, *requester, selected, epoch)
	}
	if err != nil {
		ms.Metrics.IncGeneration(OutcomeFailed)
		return nil, err
	}
	if gen.Created {
		ms.Metrics.IncGeneration(OutcomeCreated)
		ms.Metrics.AddEntriesCreated(len(gen.Entries))
		ms.log.Info().Str("userId", userID).Str("epochId", epoch.ID).Int("matches", len(gen.Entries)).Msg("✅ Matches generated")
	} else {
		ms.Metrics.IncGeneration(OutcomeExisting)
	}
	return gen, nil
}

func deniedGeneration(epochID string) *Generation {
	return &Generation{EpochID: epochID, Entries: []models.MatchEntry{}, Denied: true}
}

// generateSequential writes, per candidate, the pair, the requester's entry
// and the counterpart's entry as independent writes. An error stops the cycle
// and leaves whatever was written in place.
func (ms *MatchingService) generateSequential(ctx context.Context, requester models.ProfileSnapshot, selected []models.ProfileSnapshot, epoch Epoch) (*Generation, error) {
	view, created, err := ms.Views.EnsureView(ctx, requester.ID, epoch)
	if err != nil {
		return nil, err
	}
	if !created {
		return &Generation{EpochID: epoch.ID, Entries: view.Matches}, nil
	}

	partial := func(written int, err error) error {
		return &PartialGenerationError{
			UserID:   requester.ID,
			EpochID:  epoch.ID,
			Written:  written,
			Intended: len(selected),
			Err:      err,
		}
	}

	for i, candidate := range selected {
		pair, err := ms.Pairs.CreatePair(ctx, requester, candidate, epoch)
		if err != nil {
			return nil, partial(i, err)
		}
		own := newEntry(pair.ID, candidate)
		if err := ms.Views.AppendEntry(ctx, requester.ID, epoch.ID, own); err != nil {
			return nil, partial(i, err)
		}
		if err := ms.Views.AppendEntry(ctx, candidate.ID, epoch.ID, newEntry(pair.ID, requester)); err != nil {
			return nil, partial(i, err)
		}
		view.Append(own)
		ms.notifyCounterpart(*pair, candidate.ID)
	}

	return &Generation{EpochID: epoch.ID, Entries: view.Matches, Created: true}, nil
}

// generateAtomic reads the counterparts' views, then commits every pair and
// view of the cycle in one batch. Counterpart views are written whole, so an
// entry appended to one of them between the read and the commit is lost.
func (ms *MatchingService) generateAtomic(ctx context.Context, bw store.BatchWriter, requester models.ProfileSnapshot, selected []models.ProfileSnapshot, epoch Epoch) (*Generation, error) {
	writes := make([]store.Write, 0, 2*len(selected)+1)
	view := models.NewUserView(requester.ID, epoch.ID, ms.Clock.Now())
	pairs := make([]models.MatchPair, 0, len(selected))

	for _, candidate := range selected {
		pair := ms.Pairs.BuildPair(requester, candidate, epoch)
		doc, err := pair.ToDocument()
		if err != nil {
			return nil, fmt.Errorf("failed to encode pair %s: %w", pair.ID, err)
		}
		writes = append(writes, store.Write{Collection: models.MatchPairsCollection, ID: pair.ID, Doc: doc})

		existing, err := ms.Views.GetView(ctx, candidate.ID, epoch.ID)
		if err != nil && !errors.Is(err, ErrViewNotFound) {
			return nil, err
		}
		counterpartView := ms.Views.BuildAppend(existing, candidate.ID, epoch.ID, newEntry(pair.ID, requester))
		if doc, err = counterpartView.ToDocument(); err != nil {
			return nil, fmt.Errorf("failed to encode view %s: %w", counterpartView.ID, err)
		}
		writes = append(writes, store.Write{Collection: models.WeeklyMatchesCollection, ID: counterpartView.ID, Doc: doc})

		view.Append(newEntry(pair.ID, candidate))
		pairs = append(pairs, pair)
	}

	doc, err := view.ToDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to encode view %s: %w", view.ID, err)
	}
	writes = append(writes, store.Write{Collection: models.WeeklyMatchesCollection, ID: view.ID, Doc: doc})

	if err := bw.CommitBatch(ctx, writes); err != nil {
		return nil, fmt.Errorf("failed to commit generation for %s: %w", requester.ID, err)
	}
	for i, pair := range pairs {
		ms.notifyCounterpart(pair, selected[i].ID)
	}
	return &Generation{EpochID: epoch.ID, Entries: view.Matches, Created: true}, nil
}

func newEntry(matchID string, counterpart models.ProfileSnapshot) models.MatchEntry {
	return models.MatchEntry{
		MatchID:             matchID,
		CounterpartUserID:   counterpart.ID,
		CounterpartSnapshot: counterpart,
		Status:              models.MatchStatusPending,
	}
}

func (ms *MatchingService) notifyCounterpart(pair models.MatchPair, counterpartID string) {
	ms.Notifier.Publish(MatchChange{
		MatchID: pair.ID,
		EpochID: pair.EpochID,
		UserID:  counterpartID,
		Status:  EntryStatusFor(pair, counterpartID),
	})
}

// Accept records userID's acceptance on the pair and mirrors the derived
// status into userID's own view entry. The counterpart's view is not written;
// it only receives a change notification.
func (ms *MatchingService) Accept(ctx context.Context, userID, matchID string) (*models.MatchPair, error) {
	pair, err := ms.acceptPair(ctx, userID, matchID)
	if err != nil {
		ms.Metrics.IncDecision("accept", OutcomeFailed)
		return nil, err
	}
	outcome := OutcomeOK
	if pair.Status == models.MatchStatusMutual {
		outcome = string(models.MatchStatusMutual)
	}
	ms.Metrics.IncDecision("accept", outcome)
	return pair, nil
}

// acceptPair refuses a user whose own entry is already rejected with
// ErrEntryRejected: rejecting is final for that side, even though the pair
// itself would still take the accept.
func (ms *MatchingService) acceptPair(ctx context.Context, userID, matchID string) (*models.MatchPair, error) {
	if userID == "" || matchID == "" {
		return nil, fmt.Errorf("%w: userId and matchId are required", ErrInvalidArgument)
	}
	pair, err := ms.Pairs.GetPair(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !pair.HasUser(userID) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotAParticipant, userID, matchID)
	}

	view, err := ms.Views.GetView(ctx, userID, pair.EpochID)
	switch {
	case err == nil:
		if i := view.EntryIndex(matchID); i >= 0 && view.Matches[i].Status == models.MatchStatusRejected {
			return nil, fmt.Errorf("%w: %s", ErrEntryRejected, matchID)
		}
	case !errors.Is(err, ErrViewNotFound):
		return nil, err
	}

	updated, becameMutual, err := ms.Pairs.Accept(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}

	status := EntryStatusFor(*updated, userID)
	err = ms.Views.SetEntryStatus(ctx, userID, updated.EpochID, matchID, status)
	switch {
	case errors.Is(err, ErrViewNotFound), errors.Is(err, ErrEntryNotFound):
		ms.log.Warn().Str("userId", userID).Str("matchId", matchID).Msg("⚠️ Accepted pair has no entry in the user's view")
	case err != nil:
		return nil, err
	}

	counterpartID, _, _ := updated.CounterpartOf(userID)
	ms.notifyCounterpart(*updated, counterpartID)
	if becameMutual {
		ms.log.Info().Str("matchId", matchID).Msg("💞 Match is mutual")
	}
	return updated, nil
}

// Reject marks userID's own entry as rejected. The canonical pair and the
// counterpart's view are not touched.
func (ms *MatchingService) Reject(ctx context.Context, userID, matchID string) error {
	err := ms.rejectEntry(ctx, userID, matchID)
	if err != nil {
		ms.Metrics.IncDecision("reject", OutcomeFailed)
		return err
	}
	ms.Metrics.IncDecision("reject", OutcomeOK)
	return nil
}

func (ms *MatchingService) rejectEntry(ctx context.Context, userID, matchID string) error {
	if userID == "" || matchID == "" {
		return fmt.Errorf("%w: userId and matchId are required", ErrInvalidArgument)
	}
	pair, err := ms.Pairs.GetPair(ctx, matchID)
	if err != nil {
		return err
	}
	if !pair.HasUser(userID) {
		return fmt.Errorf("%w: %s in %s", ErrNotAParticipant, userID, matchID)
	}
	if err := ms.Views.SetEntryStatus(ctx, userID, pair.EpochID, matchID, models.MatchStatusRejected); err != nil {
		return err
	}
	ms.log.Info().Str("userId", userID).Str("matchId", matchID).Msg("👋 Match rejected")
	return nil
}

// ListEntries returns userID's entries for epochID, or the current epoch when
// epochID is empty.
func (ms *MatchingService) ListEntries(ctx context.Context, userID, epochID string) ([]models.MatchEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}
	if epochID == "" {
		epochID = ms.CurrentEpochID()
	}
	return ms.Views.ListEntries(ctx, userID, epochID)
}

// Reconcile repairs userID's view for the current epoch.
func (ms *MatchingService) Reconcile(ctx context.Context, userID string) (ReconcileResult, error) {
	return ms.ReconcileEpoch(ctx, userID, ms.CurrentEpochID())
}

func (ms *MatchingService) ReconcileEpoch(ctx context.Context, userID, epochID string) (ReconcileResult, error) {
	if userID == "" || epochID == "" {
		return ReconcileResult{EpochID: epochID}, fmt.Errorf("%w: userId and epochId are required", ErrInvalidArgument)
	}
	result, err := ms.Reconciler.Reconcile(ctx, userID, epochID)
	ms.Metrics.AddReconciled(result.Updated, result.Orphaned, result.Failed)
	return result, err
}

func (ms *MatchingService) GetPair(ctx context.Context, matchID string) (*models.MatchPair, error) {
	if matchID == "" {
		return nil, fmt.Errorf("%w: matchId is required", ErrInvalidArgument)
	}
	return ms.Pairs.GetPair(ctx, matchID)
}

// ChatChannel hands a mutual pair over to the chat subsystem.
func (ms *MatchingService) ChatChannel(ctx context.Context, matchID string) (*ChatHandoff, error) {
	pair, err := ms.GetPair(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if pair.Status != models.MatchStatusMutual {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotMutual, matchID, pair.Status)
	}
	return &ChatHandoff{MatchID: pair.ID, UserIDs: [2]string{pair.UserIDA, pair.UserIDB}}, nil
}
