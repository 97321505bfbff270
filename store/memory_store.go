package store

import (
	"context"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

// MemoryStore keeps documents in process. Values are normalised through JSON so
// readers see the same shapes a remote store would return.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) GetDocument(_ context.Context, collection, id string) (models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return decode(raw)
}

func (m *MemoryStore) SetDocument(_ context.Context, collection, id string, doc models.Document, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(collection, id, doc, merge)
}

func (m *MemoryStore) UpdateDocument(_ context.Context, collection, id string, fields models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection][id]; !ok {
		return ErrDocumentNotFound
	}
	return m.put(collection, id, fields, true)
}

func (m *MemoryStore) QueryDocuments(_ context.Context, collection string, filters []Filter) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.collections[collection]))
	for id := range m.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var docs []models.Document
	for _, id := range ids {
		doc, err := decode(m.collections[collection][id])
		if err != nil {
			return nil, err
		}
		if matches(doc, filters) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// CommitBatch applies every write under one lock.
func (m *MemoryStore) CommitBatch(_ context.Context, writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	encoded := make([][]byte, len(writes))
	for i, w := range writes {
		raw, err := json.Marshal(withID(w.ID, w.Doc))
		if err != nil {
			return err
		}
		encoded[i] = raw
	}
	for i, w := range writes {
		m.bucket(w.Collection)[w.ID] = encoded[i]
	}
	return nil
}

// Len returns the number of documents in a collection.
func (m *MemoryStore) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func (m *MemoryStore) put(collection, id string, doc models.Document, merge bool) error {
	bucket := m.bucket(collection)
	next := models.Document{}
	if merge {
		if raw, ok := bucket[id]; ok {
			existing, err := decode(raw)
			if err != nil {
				return err
			}
			next = existing
		}
	}
	for k, v := range doc {
		next[k] = v
	}
	next["id"] = id
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	bucket[id] = raw
	return nil
}

func (m *MemoryStore) bucket(collection string) map[string][]byte {
	b, ok := m.collections[collection]
	if !ok {
		b = make(map[string][]byte)
		m.collections[collection] = b
	}
	return b
}

func decode(raw []byte) (models.Document, error) {
	doc := models.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// withID copies doc and sets its id field, matching how the DynamoDB hash key
// comes back as a regular attribute.
func withID(id string, doc models.Document) models.Document {
	out := make(models.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["id"] = id
	return out
}
