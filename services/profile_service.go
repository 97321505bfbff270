package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
)

// ProfileReader is the read side of the external profile store.
type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (*models.ProfileSnapshot, error)
}

// ProfileService reads profiles and applies the matching gate. It never writes
// profiles or consent flags.
type ProfileService struct {
	Store store.DocumentStore
	cache SnapshotCache
	log   zerolog.Logger
}

func NewProfileService(st store.DocumentStore, cache SnapshotCache, logger zerolog.Logger) *ProfileService {
	if cache == nil {
		cache = noopSnapshots{}
	}
	return &ProfileService{
		Store: st,
		cache: cache,
		log:   logger.With().Str("component", "profiles").Logger(),
	}
}

// IsEligible reports whether profile may be offered to requesterID.
func IsEligible(profile models.ProfileSnapshot, requesterID string) bool {
	return profile.HasMatchingConsent &&
		profile.MatchingEnabled &&
		profile.IsPublic &&
		profile.ID != requesterID
}

// CanRequestMatches reports whether a user may run a generation cycle at all.
// The requester is written into every counterpart view, so it must pass the
// same visibility flags a candidate does.
func CanRequestMatches(profile models.ProfileSnapshot) bool {
	return profile.HasMatchingConsent && profile.MatchingEnabled && profile.IsPublic
}

func (ps *ProfileService) GetProfile(ctx context.Context, id string) (*models.ProfileSnapshot, error) {
	if p, ok := ps.cache.Get(id); ok {
		return p, nil
	}

	doc, err := ps.Store.GetDocument(ctx, models.UsersCollection, id)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile %s: %w", id, err)
	}

	profile, err := models.ProfileSnapshotFromDocument(id, doc)
	if err != nil {
		return nil, err
	}
	ps.cache.Set(*profile)
	return profile, nil
}

// QueryEligibleProfiles returns every profile that passes the gate for excludeID.
// The consent flags are filtered by the store, then checked again here.
func (ps *ProfileService) QueryEligibleProfiles(ctx context.Context, excludeID string) ([]models.ProfileSnapshot, error) {
	docs, err := ps.Store.QueryDocuments(ctx, models.UsersCollection, []store.Filter{
		{Field: models.FieldHasMatchingConsent, Value: true},
		{Field: models.FieldMatchingEnabled, Value: true},
		{Field: models.FieldIsPublic, Value: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible profiles: %w", err)
	}

	var pool []models.ProfileSnapshot
	for _, doc := range docs {
		id, _ := doc["id"].(string)
		profile, err := models.ProfileSnapshotFromDocument(id, doc)
		if err != nil {
			ps.log.Warn().Err(err).Str("profileId", id).Msg("⚠️ Skipping malformed profile")
			continue
		}
		if !IsEligible(*profile, excludeID) {
			continue
		}
		ps.cache.Set(*profile)
		pool = append(pool, *profile)
	}
	return pool, nil
}

// EligiblePool is QueryEligibleProfiles failing closed: a store failure yields
// an empty pool.
func (ps *ProfileService) EligiblePool(ctx context.Context, requesterID string) []models.ProfileSnapshot {
	pool, err := ps.QueryEligibleProfiles(ctx, requesterID)
	if err != nil {
		ps.log.Error().Err(err).Str("userId", requesterID).Msg("❌ Profile store unavailable, using empty candidate pool")
		return nil
	}
	return pool
}
