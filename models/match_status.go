package models

// MatchStatus is the lifecycle state of a pair or of a user's view entry.
type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusMutual   MatchStatus = "mutual"
	// MatchStatusRejected only exists inside a UserView; pairs never carry it.
	MatchStatusRejected MatchStatus = "rejected"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusPending, MatchStatusAccepted, MatchStatusMutual, MatchStatusRejected:
		return true
	}
	return false
}

// ValidForPair reports whether s may appear on a canonical MatchPair.
func (s MatchStatus) ValidForPair() bool {
	return s.Valid() && s != MatchStatusRejected
}

// DeriveStatus maps the two acceptance flags of a pair to its status.
func DeriveStatus(aAccepted, bAccepted bool) MatchStatus {
	switch {
	case aAccepted && bAccepted:
		return MatchStatusMutual
	case aAccepted || bAccepted:
		return MatchStatusAccepted
	default:
		return MatchStatusPending
	}
}
