package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/testutil"
)

func snapshots(ids ...string) []models.ProfileSnapshot {
	out := make([]models.ProfileSnapshot, len(ids))
	for i, id := range ids {
		out[i] = models.ProfileSnapshot{ID: id}
	}
	return out
}

func TestCandidateSelector_RequestedCount(t *testing.T) {
	cs := CandidateSelector{Random: NewRandom(7), MinMatches: 1, MaxMatches: 3}
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		n := cs.RequestedCount()
		require.GreaterOrEqual(t, n, 1)
		require.LessOrEqual(t, n, 3)
		seen[n] = true
	}
	assert.Len(t, seen, 3)

	assert.Equal(t, 3, CandidateSelector{Random: testutil.MaxRandom{}, MinMatches: 1, MaxMatches: 3}.RequestedCount())
	assert.Equal(t, 1, CandidateSelector{Random: testutil.MaxRandom{}}.RequestedCount(), "unset bounds request one")
	assert.Equal(t, 4, CandidateSelector{Random: testutil.MaxRandom{}, MinMatches: 4, MaxMatches: 2}.RequestedCount())
}

func TestCandidateSelector_SelectProperties(t *testing.T) {
	pool := snapshots("me", "a", "b", "c", "d", "e", "f", "g")
	for seed := int64(0); seed < 50; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			cs := CandidateSelector{Random: NewRandom(seed), MinMatches: 1, MaxMatches: 3}
			in := append([]models.ProfileSnapshot(nil), pool...)
			got := cs.Select(in, "me", cs.RequestedCount())

			require.NotEmpty(t, got)
			require.LessOrEqual(t, len(got), 3)
			ids := map[string]bool{}
			for _, p := range got {
				assert.NotEqual(t, "me", p.ID)
				assert.False(t, ids[p.ID], "duplicate %s", p.ID)
				ids[p.ID] = true
			}
		})
	}
}

func TestCandidateSelector_SmallPool(t *testing.T) {
	cs := CandidateSelector{Random: testutil.MaxRandom{}, MinMatches: 1, MaxMatches: 3}

	got := cs.Select(snapshots("me", "a", "a", ""), "me", 3)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	assert.Empty(t, cs.Select(nil, "me", 3))
	assert.Empty(t, cs.Select(snapshots("me"), "me", 3))
	assert.Empty(t, cs.Select(snapshots("a", "b"), "me", 0))
}

func TestCandidateSelector_Uniform(t *testing.T) {
	cs := CandidateSelector{Random: NewRandom(42)}
	counts := map[string]int{}
	const rounds = 6000
	for i := 0; i < rounds; i++ {
		for _, p := range cs.Select(snapshots("a", "b", "c"), "me", 1) {
			counts[p.ID]++
		}
	}
	for _, id := range []string{"a", "b", "c"} {
		assert.InDelta(t, rounds/3, counts[id], rounds/10, id)
	}
}
