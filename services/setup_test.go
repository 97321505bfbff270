package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
	"github.com/Kubolab-io/takkapp-v1-sub000/testutil"
)

// Wednesday of 2026-W29; the epoch ends Sunday 2026-07-19 23:59:59.999 UTC.
var wednesday = time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Matching: config.MatchingConfig{
			MinMatches:        1,
			MaxMatches:        3,
			Timezone:          "UTC",
			CountdownInterval: 10 * time.Millisecond,
			ReconcileInterval: time.Hour,
			RequestTimeout:    time.Second,
		},
	}
}

type engine struct {
	ms    *MatchingService
	st    *testutil.RecordingStore
	clock *testutil.FakeClock
	feed  *ChangeFeed
}

type engineOption func(conf *config.Config, rnd *Random, st *store.DocumentStore)

func withAtomic() engineOption {
	return func(conf *config.Config, _ *Random, _ *store.DocumentStore) {
		conf.Matching.AtomicGeneration = true
	}
}

func withRandom(r Random) engineOption {
	return func(_ *config.Config, rnd *Random, _ *store.DocumentStore) {
		*rnd = r
	}
}

func withoutBatch() engineOption {
	return func(_ *config.Config, _ *Random, st *store.DocumentStore) {
		*st = testutil.NoBatch{DocumentStore: *st}
	}
}

// newEngine wires a MatchingService over a recording memory store. The
// default random source always picks the largest option.
func newEngine(t *testing.T, opts ...engineOption) *engine {
	t.Helper()
	conf := testConfig()
	rec := testutil.NewRecordingStore()
	var st store.DocumentStore = rec
	var rnd Random = testutil.MaxRandom{}
	for _, opt := range opts {
		opt(conf, &rnd, &st)
	}

	clock := testutil.NewFakeClock(wednesday)
	feed := NewChangeFeed()
	logger := zerolog.Nop()
	profiles := NewProfileService(st, nil, logger)
	ms := NewMatchingService(st, profiles, clock, rnd, feed, NoopMetrics{}, conf, logger)
	return &engine{ms: ms, st: rec, clock: clock, feed: feed}
}

func (e *engine) seed(t *testing.T, ids ...string) {
	t.Helper()
	require.NoError(t, testutil.SeedProfiles(context.Background(), e.st.Inner, ids...))
}

func (e *engine) seedDoc(t *testing.T, collection, id string, doc models.Document) {
	t.Helper()
	require.NoError(t, e.st.Inner.SetDocument(context.Background(), collection, id, doc, false))
}

func (e *engine) pair(t *testing.T, id string) *models.MatchPair {
	t.Helper()
	doc, err := e.st.Inner.GetDocument(context.Background(), models.MatchPairsCollection, id)
	require.NoError(t, err)
	pair, err := models.MatchPairFromDocument(doc)
	require.NoError(t, err)
	return pair
}

func (e *engine) entries(t *testing.T, userID, epochID string) []models.MatchEntry {
	t.Helper()
	entries, err := e.ms.Views.ListEntries(context.Background(), userID, epochID)
	require.NoError(t, err)
	return entries
}

func entryFor(entries []models.MatchEntry, matchID string) *models.MatchEntry {
	for i := range entries {
		if entries[i].MatchID == matchID {
			return &entries[i]
		}
	}
	return nil
}
