package services

import "github.com/Kubolab-io/takkapp-v1-sub000/models"

// CandidateSelector draws the counterparts offered to a user in one epoch.
type CandidateSelector struct {
	Random     Random
	MinMatches int
	MaxMatches int
}

// RequestedCount draws the number of candidates to request, uniform in [MinMatches, MaxMatches].
func (cs CandidateSelector) RequestedCount() int {
	lo, hi := cs.MinMatches, cs.MaxMatches
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return lo + cs.Random.Intn(hi-lo+1)
}

// Select returns a uniformly random subset of pool without replacement. The
// requester and repeated ids are dropped first; a pool smaller than requested
// is returned whole.
func (cs CandidateSelector) Select(pool []models.ProfileSnapshot, requesterID string, requested int) []models.ProfileSnapshot {
	seen := make(map[string]struct{}, len(pool))
	candidates := make([]models.ProfileSnapshot, 0, len(pool))
	for _, p := range pool {
		if p.ID == "" || p.ID == requesterID {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		candidates = append(candidates, p)
	}

	if requested <= 0 || len(candidates) == 0 {
		return []models.ProfileSnapshot{}
	}
	if requested > len(candidates) {
		requested = len(candidates)
	}

	// partial Fisher-Yates: the first `requested` slots end up uniformly drawn
	for i := 0; i < requested; i++ {
		j := i + cs.Random.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:requested]
}
