package models

import (
	"fmt"
	"time"
)

// MatchEntry is one counterpart shown to a user in an epoch.
type MatchEntry struct {
	MatchID             string          `json:"matchId"`
	CounterpartUserID   string          `json:"counterpartUserId"`
	CounterpartSnapshot ProfileSnapshot `json:"counterpartSnapshot"`
	Status              MatchStatus     `json:"status"`
}

// UserView is a user's denormalized list of entries for one epoch.
type UserView struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	EpochID      string       `json:"epochId"`
	Matches      []MatchEntry `json:"matches"`
	TotalMatches int          `json:"totalMatches"`
	CreatedAt    time.Time    `json:"createdAt"`
}

func ViewID(userID, epochID string) string {
	return userID + "_" + epochID
}

// NewUserView returns an empty view.
func NewUserView(userID, epochID string, now time.Time) *UserView {
	return &UserView{
		ID:        ViewID(userID, epochID),
		UserID:    userID,
		EpochID:   epochID,
		Matches:   []MatchEntry{},
		CreatedAt: now,
	}
}

// UserViewFromDocument is the read boundary for views.
func UserViewFromDocument(doc Document) (*UserView, error) {
	if err := requireKeys(doc, "id", "userId", "epochId", "matches", "createdAt"); err != nil {
		return nil, err
	}
	entries, ok := doc["matches"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: matches is not a list", ErrMalformedDocument)
	}
	for i, raw := range entries {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: entry %d is not an object", ErrMalformedDocument, i)
		}
		if err := requireKeys(m, "matchId", "counterpartUserId", "counterpartSnapshot", "status"); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if err := decodeSnapshot(m["counterpartSnapshot"], "counterpartSnapshot"); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	var view UserView
	if err := decodeDocument(doc, &view); err != nil {
		return nil, err
	}
	if view.ID != ViewID(view.UserID, view.EpochID) {
		return nil, fmt.Errorf("%w: view id %q does not match %s/%s", ErrMalformedDocument, view.ID, view.UserID, view.EpochID)
	}
	for _, e := range view.Matches {
		if !e.Status.Valid() {
			return nil, fmt.Errorf("%w: entry %s has status %q", ErrMalformedDocument, e.MatchID, e.Status)
		}
	}
	if view.Matches == nil {
		view.Matches = []MatchEntry{}
	}
	view.TotalMatches = len(view.Matches)
	return &view, nil
}

func (v UserView) ToDocument() (Document, error) {
	v.TotalMatches = len(v.Matches)
	if v.Matches == nil {
		v.Matches = []MatchEntry{}
	}
	return toDocument(v)
}

// Append adds an entry without checking for duplicates.
func (v *UserView) Append(entry MatchEntry) {
	v.Matches = append(v.Matches, entry)
	v.TotalMatches = len(v.Matches)
}

// EntryIndex returns the index of the first entry for matchID, or -1.
func (v UserView) EntryIndex(matchID string) int {
	for i, e := range v.Matches {
		if e.MatchID == matchID {
			return i
		}
	}
	return -1
}
