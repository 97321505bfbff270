package store

import (
	"context"
	"errors"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

// ErrDocumentNotFound is returned when a document id does not resolve.
// Any other error from a DocumentStore is a transient store failure.
var ErrDocumentNotFound = errors.New("document not found")

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value interface{}
}

// DocumentStore is the persistence boundary: a generic managed document database.
type DocumentStore interface {
	GetDocument(ctx context.Context, collection, id string) (models.Document, error)
	// SetDocument writes doc under id. With merge the fields are written over the
	// existing document, otherwise the document is replaced.
	SetDocument(ctx context.Context, collection, id string, doc models.Document, merge bool) error
	// UpdateDocument writes fields onto an existing document.
	UpdateDocument(ctx context.Context, collection, id string, fields models.Document) error
	QueryDocuments(ctx context.Context, collection string, filters []Filter) ([]models.Document, error)
}

// Write is a full-document put inside a batch.
type Write struct {
	Collection string
	ID         string
	Doc        models.Document
}

// BatchWriter is implemented by stores that can apply several puts atomically.
type BatchWriter interface {
	CommitBatch(ctx context.Context, writes []Write) error
}

func matches(doc models.Document, filters []Filter) bool {
	for _, f := range filters {
		if !equalValue(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

// equalValue compares scalars after JSON normalisation (numbers are float64).
func equalValue(stored, want interface{}) bool {
	switch w := want.(type) {
	case int:
		want = float64(w)
	case int64:
		want = float64(w)
	}
	switch stored.(type) {
	case string, bool, float64, nil:
		return stored == want
	}
	return false
}
