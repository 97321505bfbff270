package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
)

// NewFromConfig creates the DocumentStore named by cfg.Type. The returned
// cleanup func releases backend resources.
func NewFromConfig(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (DocumentStore, func(), error) {
	switch cfg.Type {
	case "dynamodb":
		client, err := NewDynamoClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("region", cfg.Region).Str("tablePrefix", cfg.TablePrefix).Msg("DynamoDB client initialized")
		return NewDynamoStore(client, cfg.TablePrefix, logger), func() {}, nil
	case "sqlite":
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("SQLite store opened")
		return s, func() { s.Close() }, nil
	case "memory":
		logger.Warn().Msg("Using in-memory store, data is lost on exit")
		return NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
