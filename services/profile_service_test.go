package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/testutil"
)

func TestIsEligible(t *testing.T) {
	base := models.ProfileSnapshot{ID: "bob", HasMatchingConsent: true, MatchingEnabled: true, IsPublic: true}
	cases := []struct {
		name   string
		mutate func(p *models.ProfileSnapshot)
		want   bool
	}{
		{"eligible", func(*models.ProfileSnapshot) {}, true},
		{"no consent", func(p *models.ProfileSnapshot) { p.HasMatchingConsent = false }, false},
		{"matching disabled", func(p *models.ProfileSnapshot) { p.MatchingEnabled = false }, false},
		{"private", func(p *models.ProfileSnapshot) { p.IsPublic = false }, false},
		{"requester", func(p *models.ProfileSnapshot) { p.ID = "alice" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			assert.Equal(t, tc.want, IsEligible(p, "alice"))
		})
	}
}

func TestCanRequestMatches(t *testing.T) {
	assert.True(t, CanRequestMatches(models.ProfileSnapshot{HasMatchingConsent: true, MatchingEnabled: true, IsPublic: true}))
	assert.False(t, CanRequestMatches(models.ProfileSnapshot{HasMatchingConsent: true, MatchingEnabled: true, IsPublic: false}),
		"a private requester would leak into counterpart views")
	assert.False(t, CanRequestMatches(models.ProfileSnapshot{HasMatchingConsent: true}))
	assert.False(t, CanRequestMatches(models.ProfileSnapshot{MatchingEnabled: true}))
}

func TestProfileService_GetProfile(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewRecordingStore()
	require.NoError(t, testutil.SeedProfiles(ctx, st.Inner, "alice"))
	ps := NewProfileService(st, nil, zerolog.Nop())

	p, err := ps.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.ID)
	assert.Equal(t, 28, p.Age)
	assert.Equal(t, []string{"climbing", "coffee"}, p.Hobbies)

	_, err = ps.GetProfile(ctx, "ghost")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	st.FailReads = true
	_, err = ps.GetProfile(ctx, "alice")
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.True(t, IsTransient(err))
}

func TestProfileService_QueryEligibleProfiles(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewRecordingStore()
	require.NoError(t, testutil.SeedProfiles(ctx, st.Inner, "alice", "bob", "carol"))

	private := testutil.Profile("dave")
	private["isPublic"] = false
	require.NoError(t, st.Inner.SetDocument(ctx, models.UsersCollection, "dave", private, false))
	noConsent := testutil.Profile("erin")
	delete(noConsent, "hasMatchingConsent")
	require.NoError(t, st.Inner.SetDocument(ctx, models.UsersCollection, "erin", noConsent, false))
	broken := testutil.Profile("frank")
	broken["age"] = "old"
	require.NoError(t, st.Inner.SetDocument(ctx, models.UsersCollection, "frank", broken, false))

	ps := NewProfileService(st, nil, zerolog.Nop())
	pool, err := ps.QueryEligibleProfiles(ctx, "alice")
	require.NoError(t, err)

	var ids []string
	for _, p := range pool {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"bob", "carol"}, ids)
}

func TestProfileService_EligiblePoolFailsClosed(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewRecordingStore()
	require.NoError(t, testutil.SeedProfiles(ctx, st.Inner, "alice", "bob"))
	ps := NewProfileService(st, nil, zerolog.Nop())

	assert.Len(t, ps.EligiblePool(ctx, "alice"), 1)

	st.FailReadCollection = models.UsersCollection
	_, err := ps.QueryEligibleProfiles(ctx, "alice")
	assert.True(t, errors.Is(err, testutil.ErrInjected))
	assert.Empty(t, ps.EligiblePool(ctx, "alice"))
}

func TestProfileService_CachesSnapshots(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewRecordingStore()
	require.NoError(t, testutil.SeedProfiles(ctx, st.Inner, "bob"))

	conf := &config.Config{Cache: config.CacheConfig{Enabled: true, SizeMB: 1, TTL: time.Minute}}
	ps := NewProfileService(st, NewSnapshotCache(conf, zerolog.Nop()), zerolog.Nop())

	first, err := ps.GetProfile(ctx, "bob")
	require.NoError(t, err)

	st.FailReads = true
	cached, err := ps.GetProfile(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, first.Equal(*cached))
}

func TestSnapshotCache_OversizedEntryIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	conf := &config.Config{Cache: config.CacheConfig{Enabled: true, SizeMB: 1, TTL: time.Minute}}
	cache := NewSnapshotCache(conf, logger)

	cache.Set(models.ProfileSnapshot{ID: "bob", Description: strings.Repeat("x", 4096)})
	_, ok := cache.Get("bob")
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "Profile not cached")
	assert.Contains(t, buf.String(), `"userId":"bob"`)

	cache.Set(models.ProfileSnapshot{ID: "carol"})
	_, ok = cache.Get("carol")
	assert.True(t, ok)
}

func TestNewSnapshotCache_Disabled(t *testing.T) {
	cache := NewSnapshotCache(&config.Config{}, zerolog.Nop())
	cache.Set(models.ProfileSnapshot{ID: "bob"})
	_, ok := cache.Get("bob")
	assert.False(t, ok)
}
