package services

import (
	"errors"
	"fmt"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrPairNotFound    = errors.New("match pair not found")
	ErrNotAParticipant = errors.New("user is not a participant of this match")
	ErrViewNotFound    = errors.New("user view not found")
	ErrEntryNotFound   = errors.New("match entry not found in user view")
	ErrEntryRejected   = errors.New("match entry was rejected")
	ErrNotMutual       = errors.New("match is not mutual")
	ErrInvalidArgument = errors.New("invalid argument")
)

// PartialGenerationError reports a generation sequence that stopped after some
// candidates were written. Nothing is rolled back.
type PartialGenerationError struct {
	UserID   string
	EpochID  string
	Written  int
	Intended int
	Err      error
}

func (e *PartialGenerationError) Error() string {
	return fmt.Sprintf("generation for %s in %s stopped after %d of %d candidates: %v",
		e.UserID, e.EpochID, e.Written, e.Intended, e.Err)
}

func (e *PartialGenerationError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a store failure worth retrying, as opposed
// to a missing record, a bad request or a corrupt document.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	for _, known := range []error{
		store.ErrDocumentNotFound, models.ErrMalformedDocument,
		ErrProfileNotFound, ErrPairNotFound, ErrNotAParticipant, ErrViewNotFound,
		ErrEntryNotFound, ErrEntryRejected, ErrNotMutual, ErrInvalidArgument,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
