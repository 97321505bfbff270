package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
)

// UserViewStore owns the per-user, per-epoch lists of entries. Every mutation
// is a read followed by a write with nothing in between to stop a concurrent
// writer.
type UserViewStore struct {
	Store store.DocumentStore
	Clock Clock
	log   zerolog.Logger
}

func NewUserViewStore(st store.DocumentStore, clock Clock, logger zerolog.Logger) *UserViewStore {
	return &UserViewStore{
		Store: st,
		Clock: clock,
		log:   logger.With().Str("component", "views").Logger(),
	}
}

func (s *UserViewStore) GetView(ctx context.Context, userID, epochID string) (*models.UserView, error) {
	id := models.ViewID(userID, epochID)
	doc, err := s.Store.GetDocument(ctx, models.WeeklyMatchesCollection, id)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch view %s: %w", id, err)
	}
	return models.UserViewFromDocument(doc)
}

// EnsureView returns the existing view for the epoch or writes an empty one.
// created is true when this call wrote it.
func (s *UserViewStore) EnsureView(ctx context.Context, userID string, epoch Epoch) (*models.UserView, bool, error) {
	view, err := s.GetView(ctx, userID, epoch.ID)
	if err == nil {
		return view, false, nil
	}
	if !errors.Is(err, ErrViewNotFound) {
		return nil, false, err
	}

	view = models.NewUserView(userID, epoch.ID, s.Clock.Now())
	if err := s.put(ctx, view); err != nil {
		return nil, false, err
	}
	return view, true, nil
}

// BuildAppend returns existing (or a new view when nil) with entry appended.
func (s *UserViewStore) BuildAppend(existing *models.UserView, userID, epochID string, entry models.MatchEntry) *models.UserView {
	view := existing
	if view == nil {
		view = models.NewUserView(userID, epochID, s.Clock.Now())
	}
	view.Append(entry)
	return view
}

// AppendEntry adds entry to the user's view, creating the view when missing.
// Duplicate match ids are not detected.
func (s *UserViewStore) AppendEntry(ctx context.Context, userID, epochID string, entry models.MatchEntry) error {
	view, err := s.GetView(ctx, userID, epochID)
	switch {
	case errors.Is(err, ErrViewNotFound):
		return s.put(ctx, s.BuildAppend(nil, userID, epochID, entry))
	case err != nil:
		return err
	}
	view.Append(entry)
	return s.writeEntries(ctx, view)
}

// SetEntryStatus sets the status of every entry for matchID in the user's view.
// No write happens when the status is already set.
func (s *UserViewStore) SetEntryStatus(ctx context.Context, userID, epochID, matchID string, status models.MatchStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidArgument, status)
	}
	view, err := s.GetView(ctx, userID, epochID)
	if err != nil {
		return err
	}

	found, changed := false, false
	for i := range view.Matches {
		if view.Matches[i].MatchID != matchID {
			continue
		}
		found = true
		if view.Matches[i].Status != status {
			view.Matches[i].Status = status
			changed = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s for %s", ErrEntryNotFound, matchID, userID)
	}
	if !changed {
		return nil
	}
	return s.writeEntries(ctx, view)
}

// ListEntries returns the user's entries for the epoch; no view means no entries.
func (s *UserViewStore) ListEntries(ctx context.Context, userID, epochID string) ([]models.MatchEntry, error) {
	view, err := s.GetView(ctx, userID, epochID)
	if errors.Is(err, ErrViewNotFound) {
		return []models.MatchEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return view.Matches, nil
}

// ReplaceEntries writes view's entries over the stored ones.
func (s *UserViewStore) ReplaceEntries(ctx context.Context, view *models.UserView) error {
	return s.writeEntries(ctx, view)
}

func (s *UserViewStore) put(ctx context.Context, view *models.UserView) error {
	doc, err := view.ToDocument()
	if err != nil {
		return fmt.Errorf("failed to encode view %s: %w", view.ID, err)
	}
	if err := s.Store.SetDocument(ctx, models.WeeklyMatchesCollection, view.ID, doc, false); err != nil {
		return fmt.Errorf("failed to write view %s: %w", view.ID, err)
	}
	return nil
}

func (s *UserViewStore) writeEntries(ctx context.Context, view *models.UserView) error {
	doc, err := view.ToDocument()
	if err != nil {
		return fmt.Errorf("failed to encode view %s: %w", view.ID, err)
	}
	fields := models.Document{
		"matches":      doc["matches"],
		"totalMatches": doc["totalMatches"],
	}
	if err := s.Store.SetDocument(ctx, models.WeeklyMatchesCollection, view.ID, fields, true); err != nil {
		return fmt.Errorf("failed to write view %s: %w", view.ID, err)
	}
	return nil
}
