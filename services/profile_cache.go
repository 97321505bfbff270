package services

import (
	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

// SnapshotCache holds recently read profiles so reconciliation polls do not
// hit the profile store for every entry.
type SnapshotCache interface {
	Get(id string) (*models.ProfileSnapshot, bool)
	Set(profile models.ProfileSnapshot)
}

type freecacheSnapshots struct {
	cache *freecache.Cache
	ttl   int
	log   zerolog.Logger
}

func NewSnapshotCache(conf *config.Config, logger zerolog.Logger) SnapshotCache {
	if !conf.Cache.Enabled || conf.Cache.SizeMB <= 0 {
		logger.Info().Msg("Profile cache disabled")
		return noopSnapshots{}
	}

	ttl := max(int(conf.Cache.TTL.Seconds()), 1)
	logger.Info().Int("sizeMB", conf.Cache.SizeMB).Int("ttlSeconds", ttl).Msg("Profile cache initialized")
	return &freecacheSnapshots{
		cache: freecache.NewCache(conf.Cache.SizeMB * 1024 * 1024),
		ttl:   ttl,
		log:   logger.With().Str("component", "cache").Logger(),
	}
}

func (c *freecacheSnapshots) Get(id string) (*models.ProfileSnapshot, bool) {
	raw, err := c.cache.Get([]byte(id))
	if err != nil {
		return nil, false
	}
	var p models.ProfileSnapshot
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *freecacheSnapshots) Set(profile models.ProfileSnapshot) {
	raw, err := json.Marshal(profile)
	if err != nil {
		c.log.Debug().Err(err).Str("userId", profile.ID).Msg("Profile not cached")
		return
	}
	if err := c.cache.Set([]byte(profile.ID), raw, c.ttl); err != nil {
		c.log.Debug().Err(err).Str("userId", profile.ID).Int("bytes", len(raw)).Msg("Profile not cached")
	}
}

type noopSnapshots struct{}

func (noopSnapshots) Get(string) (*models.ProfileSnapshot, bool) { return nil, false }
func (noopSnapshots) Set(models.ProfileSnapshot)                 {}
