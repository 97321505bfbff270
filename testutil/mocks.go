package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
)

// ErrInjected is returned by RecordingStore when a failure is armed.
var ErrInjected = errors.New("injected store failure")

// FakeClock is a settable clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SeqRandom replays Values in order, reduced modulo n; once exhausted it returns 0.
type SeqRandom struct {
	mu     sync.Mutex
	Values []int
	calls  int
}

func (r *SeqRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls >= len(r.Values) {
		r.calls++
		return 0
	}
	v := r.Values[r.calls] % n
	r.calls++
	return v
}

// MaxRandom always returns n-1.
type MaxRandom struct{}

func (MaxRandom) Intn(n int) int { return n - 1 }

// WriteCall records one write that reached a RecordingStore.
type WriteCall struct {
	Op         string
	Collection string
	ID         string
	Fields     models.Document
}

// RecordingStore wraps a MemoryStore, records writes and can inject failures.
type RecordingStore struct {
	Inner *store.MemoryStore

	mu    sync.Mutex
	calls []WriteCall
	reads int

	// FailWriteAt makes the n-th write (1-based) and every later one fail.
	FailWriteAt int
	// FailReads makes every read fail.
	FailReads bool
	// FailReadCollection makes every read of that collection fail.
	FailReadCollection string
	// FailCollection makes every write to that collection fail.
	FailCollection string
}

func NewRecordingStore() *RecordingStore {
	return &RecordingStore{Inner: store.NewMemoryStore()}
}

func (s *RecordingStore) GetDocument(ctx context.Context, collection, id string) (models.Document, error) {
	if err := s.read(collection); err != nil {
		return nil, err
	}
	return s.Inner.GetDocument(ctx, collection, id)
}

func (s *RecordingStore) QueryDocuments(ctx context.Context, collection string, filters []store.Filter) ([]models.Document, error) {
	if err := s.read(collection); err != nil {
		return nil, err
	}
	return s.Inner.QueryDocuments(ctx, collection, filters)
}

func (s *RecordingStore) SetDocument(ctx context.Context, collection, id string, doc models.Document, merge bool) error {
	op := "set"
	if merge {
		op = "merge"
	}
	if err := s.write(WriteCall{Op: op, Collection: collection, ID: id, Fields: doc}); err != nil {
		return err
	}
	return s.Inner.SetDocument(ctx, collection, id, doc, merge)
}

func (s *RecordingStore) UpdateDocument(ctx context.Context, collection, id string, fields models.Document) error {
	if err := s.write(WriteCall{Op: "update", Collection: collection, ID: id, Fields: fields}); err != nil {
		return err
	}
	return s.Inner.UpdateDocument(ctx, collection, id, fields)
}

func (s *RecordingStore) CommitBatch(ctx context.Context, writes []store.Write) error {
	for _, w := range writes {
		if err := s.write(WriteCall{Op: "batch", Collection: w.Collection, ID: w.ID, Fields: w.Doc}); err != nil {
			return err
		}
	}
	return s.Inner.CommitBatch(ctx, writes)
}

func (s *RecordingStore) read(collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.FailReads || (s.FailReadCollection != "" && collection == s.FailReadCollection) {
		return ErrInjected
	}
	return nil
}

func (s *RecordingStore) write(call WriteCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCollection != "" && call.Collection == s.FailCollection {
		return ErrInjected
	}
	if s.FailWriteAt > 0 && len(s.calls)+1 >= s.FailWriteAt {
		return ErrInjected
	}
	s.calls = append(s.calls, call)
	return nil
}

// Writes returns the writes that succeeded so far.
func (s *RecordingStore) Writes() []WriteCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WriteCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *RecordingStore) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// WritesTo counts successful writes to one collection.
func (s *RecordingStore) WritesTo(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Collection == collection {
			n++
		}
	}
	return n
}

func (s *RecordingStore) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.reads = 0
	s.FailWriteAt = 0
	s.FailReads = false
	s.FailReadCollection = ""
	s.FailCollection = ""
	s.mu.Unlock()
}

// NoBatch hides CommitBatch of the wrapped store.
type NoBatch struct {
	store.DocumentStore
}

// Profile returns an eligible profile document for id.
func Profile(id string) models.Document {
	return models.Document{
		"id":                 id,
		"displayName":        "User " + id,
		"photoURL":           "https://cdn.example.com/" + id + ".jpg",
		"age":                28,
		"location":           "Lisbon",
		"description":        "hi",
		"hobbies":            []interface{}{"climbing", "coffee"},
		"email":              id + "@example.com",
		"hasMatchingConsent": true,
		"matchingEnabled":    true,
		"isPublic":           true,
	}
}

// SeedProfiles writes eligible profiles for ids straight into the inner store.
func SeedProfiles(ctx context.Context, st store.DocumentStore, ids ...string) error {
	for _, id := range ids {
		if err := st.SetDocument(ctx, models.UsersCollection, id, Profile(id), false); err != nil {
			return err
		}
	}
	return nil
}
