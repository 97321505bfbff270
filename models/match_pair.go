package models

import (
	"fmt"
	"time"
)

// Side identifies which participant of a pair a user is.
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

// MatchPair is the canonical record of one proposed pairing within an epoch.
// UserIDA is always the user whose generation cycle created the pair.
type MatchPair struct {
	ID            string          `json:"id"`
	EpochID       string          `json:"epochId"`
	UserIDA       string          `json:"userIdA"`
	UserIDB       string          `json:"userIdB"`
	SnapshotA     ProfileSnapshot `json:"snapshotA"`
	SnapshotB     ProfileSnapshot `json:"snapshotB"`
	UserAAccepted bool            `json:"userAAccepted"`
	UserBAccepted bool            `json:"userBAccepted"`
	Status        MatchStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
	MutualAt      *time.Time      `json:"mutualAt"`
}

var matchPairRequired = []string{
	"id", "epochId", "userIdA", "userIdB", "snapshotA", "snapshotB",
	"userAAccepted", "userBAccepted", "status", "createdAt", "expiresAt",
}

// PairID builds the pair id. It depends on who initiated: A_B and B_A are different pairs.
func PairID(initiatorID, counterpartID, epochID string) string {
	return initiatorID + "_" + counterpartID + "_" + epochID
}

// MatchPairFromDocument is the read boundary for pairs. It rejects a status
// that disagrees with the acceptance flags.
func MatchPairFromDocument(doc Document) (*MatchPair, error) {
	pair, err := DecodeMatchPair(doc)
	if err != nil {
		return nil, err
	}
	if !pair.StatusConsistent() {
		return nil, fmt.Errorf("%w: pair %s status %q disagrees with acceptance flags", ErrMalformedDocument, pair.ID, pair.Status)
	}
	return pair, nil
}

// DecodeMatchPair checks shape and enum values but lets a lagging status
// through so the owner of the record can repair it.
func DecodeMatchPair(doc Document) (*MatchPair, error) {
	if err := requireKeys(doc, matchPairRequired...); err != nil {
		return nil, err
	}
	for _, field := range []string{"snapshotA", "snapshotB"} {
		if err := decodeSnapshot(doc[field], field); err != nil {
			return nil, err
		}
	}
	var pair MatchPair
	if err := decodeDocument(doc, &pair); err != nil {
		return nil, err
	}
	if !pair.Status.ValidForPair() {
		return nil, fmt.Errorf("%w: pair %s has status %q", ErrMalformedDocument, pair.ID, pair.Status)
	}
	if pair.UserIDA == pair.UserIDB {
		return nil, fmt.Errorf("%w: pair %s matches a user with themselves", ErrMalformedDocument, pair.ID)
	}
	return &pair, nil
}

func (p MatchPair) ToDocument() (Document, error) {
	return toDocument(p)
}

func (p MatchPair) HasUser(userID string) bool {
	return p.Side(userID) != SideNone
}

func (p MatchPair) Side(userID string) Side {
	switch userID {
	case p.UserIDA:
		return SideA
	case p.UserIDB:
		return SideB
	}
	return SideNone
}

// CounterpartOf returns the other participant's id and snapshot.
func (p MatchPair) CounterpartOf(userID string) (string, ProfileSnapshot, bool) {
	switch p.Side(userID) {
	case SideA:
		return p.UserIDB, p.SnapshotB, true
	case SideB:
		return p.UserIDA, p.SnapshotA, true
	}
	return "", ProfileSnapshot{}, false
}

func (p MatchPair) StatusConsistent() bool {
	return p.Status == DeriveStatus(p.UserAAccepted, p.UserBAccepted)
}

// Recompute derives the status from the flags and stamps MutualAt on the
// transition to mutual. It reports whether that transition happened.
func (p *MatchPair) Recompute(now time.Time) bool {
	p.Status = DeriveStatus(p.UserAAccepted, p.UserBAccepted)
	if p.Status == MatchStatusMutual && p.MutualAt == nil {
		at := now
		p.MutualAt = &at
		return true
	}
	return false
}
