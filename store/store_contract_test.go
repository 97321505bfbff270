package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

// runContract checks the behaviour every DocumentStore backend shares.
func runContract(t *testing.T, newStore func(t *testing.T) DocumentStore) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetDocument(ctx, "users", "ghost")
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetDocument(ctx, "users", "bob", models.Document{
			"displayName": "Bob",
			"age":         31,
			"isPublic":    true,
			"hobbies":     []interface{}{"chess"},
		}, false))

		doc, err := s.GetDocument(ctx, "users", "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", doc["id"])
		assert.Equal(t, "Bob", doc["displayName"])
		assert.Equal(t, float64(31), doc["age"])
		assert.Equal(t, true, doc["isPublic"])
		assert.Equal(t, []interface{}{"chess"}, doc["hobbies"])
	})

	t.Run("set without merge replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetDocument(ctx, "users", "bob", models.Document{"a": "1", "b": "2"}, false))
		require.NoError(t, s.SetDocument(ctx, "users", "bob", models.Document{"b": "3"}, false))

		doc, err := s.GetDocument(ctx, "users", "bob")
		require.NoError(t, err)
		assert.NotContains(t, doc, "a")
		assert.Equal(t, "3", doc["b"])
	})

	t.Run("set with merge keeps other fields and creates missing", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetDocument(ctx, "users", "bob", models.Document{"a": "1", "b": "2"}, false))
		require.NoError(t, s.SetDocument(ctx, "users", "bob", models.Document{"b": "3"}, true))
		require.NoError(t, s.SetDocument(ctx, "users", "carol", models.Document{"a": "x"}, true))

		doc, err := s.GetDocument(ctx, "users", "bob")
		require.NoError(t, err)
		assert.Equal(t, "1", doc["a"])
		assert.Equal(t, "3", doc["b"])

		doc, err = s.GetDocument(ctx, "users", "carol")
		require.NoError(t, err)
		assert.Equal(t, "x", doc["a"])
		assert.Equal(t, "carol", doc["id"])
	})

	t.Run("update requires an existing document", func(t *testing.T) {
		s := newStore(t)
		err := s.UpdateDocument(ctx, "matchPairs", "missing", models.Document{"status": "accepted"})
		assert.ErrorIs(t, err, ErrDocumentNotFound)

		require.NoError(t, s.SetDocument(ctx, "matchPairs", "p1", models.Document{"status": "pending", "userAAccepted": false}, false))
		require.NoError(t, s.UpdateDocument(ctx, "matchPairs", "p1", models.Document{"userAAccepted": true, "status": "accepted"}))

		doc, err := s.GetDocument(ctx, "matchPairs", "p1")
		require.NoError(t, err)
		assert.Equal(t, true, doc["userAAccepted"])
		assert.Equal(t, "accepted", doc["status"])
	})

	t.Run("query with equality filters", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetDocument(ctx, "users", "a", models.Document{"isPublic": true, "age": 30}, false))
		require.NoError(t, s.SetDocument(ctx, "users", "b", models.Document{"isPublic": false, "age": 30}, false))
		require.NoError(t, s.SetDocument(ctx, "users", "c", models.Document{"isPublic": true, "age": 40}, false))
		require.NoError(t, s.SetDocument(ctx, "weeklyMatches", "a_2026-W29", models.Document{"isPublic": true}, false))

		docs, err := s.QueryDocuments(ctx, "users", []Filter{{Field: "isPublic", Value: true}})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "c"}, ids(docs))

		docs, err = s.QueryDocuments(ctx, "users", []Filter{{Field: "isPublic", Value: true}, {Field: "age", Value: 30}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(docs))

		docs, err = s.QueryDocuments(ctx, "users", nil)
		require.NoError(t, err)
		assert.Len(t, docs, 3)
	})

	t.Run("batch", func(t *testing.T) {
		s := newStore(t)
		bw, ok := s.(BatchWriter)
		require.True(t, ok)

		require.NoError(t, bw.CommitBatch(ctx, []Write{
			{Collection: "matchPairs", ID: "p1", Doc: models.Document{"status": "pending"}},
			{Collection: "weeklyMatches", ID: "a_2026-W29", Doc: models.Document{"totalMatches": 1}},
		}))

		doc, err := s.GetDocument(ctx, "matchPairs", "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", doc["id"])

		doc, err = s.GetDocument(ctx, "weeklyMatches", "a_2026-W29")
		require.NoError(t, err)
		assert.Equal(t, float64(1), doc["totalMatches"])
	})
}

func ids(docs []models.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		id, _ := d["id"].(string)
		out = append(out, id)
	}
	return out
}

func TestMemoryStore_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) DocumentStore { return NewMemoryStore() })
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	input := models.Document{"name": "Bob"}
	require.NoError(t, s.SetDocument(ctx, "users", "bob", input, false))
	input["name"] = "Changed"

	doc, err := s.GetDocument(ctx, "users", "bob")
	require.NoError(t, err)
	doc["name"] = "Mutated"

	again, err := s.GetDocument(ctx, "users", "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", again["name"])
	assert.Equal(t, 1, s.Len("users"))
}

func TestMemoryStore_UpdateDoesNotAliasCaller(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SetDocument(ctx, "matchPairs", "p1", models.Document{"status": "pending"}, false))

	fields := models.Document{"status": "accepted"}
	require.NoError(t, s.UpdateDocument(ctx, "matchPairs", "p1", fields))
	assert.NotContains(t, fields, "id")
}
