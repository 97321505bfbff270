package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
)

// MatchPairStore owns the canonical pair records.
type MatchPairStore struct {
	Store store.DocumentStore
	Clock Clock
	log   zerolog.Logger
}

func NewMatchPairStore(st store.DocumentStore, clock Clock, logger zerolog.Logger) *MatchPairStore {
	return &MatchPairStore{
		Store: st,
		Clock: clock,
		log:   logger.With().Str("component", "pairs").Logger(),
	}
}

// BuildPair returns a new pending pair without writing it.
func (s *MatchPairStore) BuildPair(initiator, counterpart models.ProfileSnapshot, epoch Epoch) models.MatchPair {
	return models.MatchPair{
		ID:        models.PairID(initiator.ID, counterpart.ID, epoch.ID),
		EpochID:   epoch.ID,
		UserIDA:   initiator.ID,
		UserIDB:   counterpart.ID,
		SnapshotA: initiator,
		SnapshotB: counterpart,
		Status:    models.MatchStatusPending,
		CreatedAt: s.Clock.Now(),
		ExpiresAt: epoch.End,
	}
}

// CreatePair writes a new pending pair. An existing pair with the same id is
// overwritten; nothing checks for the reversed pair B_A.
func (s *MatchPairStore) CreatePair(ctx context.Context, initiator, counterpart models.ProfileSnapshot, epoch Epoch) (*models.MatchPair, error) {
	pair := s.BuildPair(initiator, counterpart, epoch)
	doc, err := pair.ToDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to encode pair %s: %w", pair.ID, err)
	}
	if err := s.Store.SetDocument(ctx, models.MatchPairsCollection, pair.ID, doc, false); err != nil {
		return nil, fmt.Errorf("failed to create pair %s: %w", pair.ID, err)
	}
	s.log.Debug().Str("matchId", pair.ID).Msg("🆕 Pair created")
	return &pair, nil
}

func (s *MatchPairStore) GetPair(ctx context.Context, pairID string) (*models.MatchPair, error) {
	doc, err := s.Store.GetDocument(ctx, models.MatchPairsCollection, pairID)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, pairID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pair %s: %w", pairID, err)
	}
	pair, err := models.DecodeMatchPair(doc)
	if err != nil {
		return nil, err
	}
	if !pair.StatusConsistent() {
		if err := s.repairStatus(ctx, pair); err != nil {
			return nil, err
		}
	}
	return pair, nil
}

// repairStatus rewrites a status left behind by two accepts racing on the
// same pair. Only the status fields are written.
func (s *MatchPairStore) repairStatus(ctx context.Context, pair *models.MatchPair) error {
	stale := pair.Status
	pair.Recompute(s.Clock.Now())
	fields := models.Document{"status": string(pair.Status)}
	if pair.MutualAt != nil {
		fields["mutualAt"] = pair.MutualAt.Format(time.RFC3339Nano)
	}
	if err := s.Store.UpdateDocument(ctx, models.MatchPairsCollection, pair.ID, fields); err != nil {
		return fmt.Errorf("failed to repair pair %s: %w", pair.ID, err)
	}
	s.log.Warn().Str("matchId", pair.ID).Str("from", string(stale)).Str("to", string(pair.Status)).Msg("🔧 Pair status repaired")
	return nil
}

// Accept sets the acting user's flag and the status derived from the flags as
// read just before the write. Only those fields are written, so a concurrent
// accept from the other side is never overwritten, but the status written here
// may lag behind it until the next GetPair repairs it. The returned bool is
// true when this call moved the pair to mutual.
func (s *MatchPairStore) Accept(ctx context.Context, pairID, actingUserID string) (*models.MatchPair, bool, error) {
	pair, err := s.GetPair(ctx, pairID)
	if err != nil {
		return nil, false, err
	}

	var flagField string
	switch pair.Side(actingUserID) {
	case models.SideA:
		if pair.UserAAccepted {
			return pair, false, nil
		}
		pair.UserAAccepted = true
		flagField = "userAAccepted"
	case models.SideB:
		if pair.UserBAccepted {
			return pair, false, nil
		}
		pair.UserBAccepted = true
		flagField = "userBAccepted"
	default:
		return nil, false, fmt.Errorf("%w: %s in %s", ErrNotAParticipant, actingUserID, pairID)
	}

	becameMutual := pair.Recompute(s.Clock.Now())
	fields := models.Document{
		flagField: true,
		"status":  string(pair.Status),
	}
	if becameMutual {
		fields["mutualAt"] = pair.MutualAt.Format(time.RFC3339Nano)
	}

	if err := s.Store.UpdateDocument(ctx, models.MatchPairsCollection, pairID, fields); err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, false, fmt.Errorf("%w: %s", ErrPairNotFound, pairID)
		}
		return nil, false, fmt.Errorf("failed to accept pair %s: %w", pairID, err)
	}

	s.log.Info().Str("matchId", pairID).Str("userId", actingUserID).Str("status", string(pair.Status)).Msg("✅ Pair accepted")
	return pair, becameMutual, nil
}

// EntryStatusFor derives the view status a participant should see for pair.
// A user reads accepted only once they accepted themselves; the counterpart's
// flag alone leaves their entry pending until both sides have accepted.
func EntryStatusFor(pair models.MatchPair, userID string) models.MatchStatus {
	var own, other bool
	switch pair.Side(userID) {
	case models.SideA:
		own, other = pair.UserAAccepted, pair.UserBAccepted
	case models.SideB:
		own, other = pair.UserBAccepted, pair.UserAAccepted
	default:
		return pair.Status
	}
	switch {
	case own && other:
		return models.MatchStatusMutual
	case own:
		return models.MatchStatusAccepted
	}
	return models.MatchStatusPending
}
