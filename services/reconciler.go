package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

// ReconcileResult summarizes one reconciliation pass over a view.
type ReconcileResult struct {
	EpochID  string `json:"epochId"`
	Checked  int    `json:"checked"`
	Updated  int    `json:"updated"`
	Orphaned int    `json:"orphaned"`
	Failed   int    `json:"failed"`
}

// Reconciler re-derives a user's view entries from the canonical pairs.
type Reconciler struct {
	Pairs    *MatchPairStore
	Views    *UserViewStore
	Profiles ProfileReader
	log      zerolog.Logger
}

func NewReconciler(pairs *MatchPairStore, views *UserViewStore, profiles ProfileReader, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		Pairs:    pairs,
		Views:    views,
		Profiles: profiles,
		log:      logger.With().Str("component", "reconciler").Logger(),
	}
}

// Reconcile refreshes status and counterpart snapshot of every entry in the
// user's view for epochID. Rejected entries are left alone. The view is written
// at most once, and only when an entry changed. A missing view is not an error.
func (r *Reconciler) Reconcile(ctx context.Context, userID, epochID string) (ReconcileResult, error) {
	result := ReconcileResult{EpochID: epochID}

	view, err := r.Views.GetView(ctx, userID, epochID)
	if errors.Is(err, ErrViewNotFound) {
		return result, nil
	}
	if err != nil {
		return result, err
	}

	for i := range view.Matches {
		entry := &view.Matches[i]
		result.Checked++
		if entry.Status == models.MatchStatusRejected {
			continue
		}

		pair, err := r.Pairs.GetPair(ctx, entry.MatchID)
		if errors.Is(err, ErrPairNotFound) {
			result.Orphaned++
			r.log.Warn().Str("userId", userID).Str("matchId", entry.MatchID).Msg("⚠️ View entry has no canonical pair")
			continue
		}
		if err != nil {
			result.Failed++
			r.log.Error().Err(err).Str("userId", userID).Str("matchId", entry.MatchID).Msg("❌ Failed to load pair")
			continue
		}
		if !pair.HasUser(userID) {
			result.Failed++
			r.log.Warn().Str("userId", userID).Str("matchId", entry.MatchID).Msg("⚠️ View entry references a pair the user is not part of")
			continue
		}

		changed := false
		if status := EntryStatusFor(*pair, userID); status != entry.Status {
			entry.Status = status
			changed = true
		}
		if r.refreshSnapshot(ctx, entry) {
			changed = true
		}
		if changed {
			result.Updated++
		}
	}

	if result.Updated == 0 {
		return result, nil
	}
	if err := r.Views.ReplaceEntries(ctx, view); err != nil {
		return result, err
	}
	r.log.Info().Str("userId", userID).Str("epochId", epochID).Int("updated", result.Updated).Msg("🔄 View reconciled")
	return result, nil
}

func (r *Reconciler) refreshSnapshot(ctx context.Context, entry *models.MatchEntry) bool {
	if r.Profiles == nil {
		return false
	}
	current, err := r.Profiles.GetProfile(ctx, entry.CounterpartUserID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			r.log.Debug().Err(err).Str("userId", entry.CounterpartUserID).Msg("Snapshot refresh skipped")
		}
		return false
	}
	if current.Equal(entry.CounterpartSnapshot) {
		return false
	}
	entry.CounterpartSnapshot = *current
	return true
}
