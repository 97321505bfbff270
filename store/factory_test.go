package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
)

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, cleanup, err := NewFromConfig(ctx, config.StoreConfig{Type: "memory"}, zerolog.Nop())
		require.NoError(t, err)
		defer cleanup()
		assert.IsType(t, &MemoryStore{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, cleanup, err := NewFromConfig(ctx, config.StoreConfig{Type: "sqlite", SQLitePath: ":memory:"}, zerolog.Nop())
		require.NoError(t, err)
		defer cleanup()
		assert.IsType(t, &SQLiteStore{}, s)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := NewFromConfig(ctx, config.StoreConfig{Type: "redis"}, zerolog.Nop())
		assert.Error(t, err)
	})
}
