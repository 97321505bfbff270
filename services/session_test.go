package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

type updateSink chan SessionUpdate

func (s updateSink) push(u SessionUpdate) { s <- u }

func (s updateSink) waitFor(t *testing.T, reason string) SessionUpdate {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-s:
			if u.Reason == reason {
				return u
			}
		case <-deadline:
			t.Fatalf("no %q update", reason)
		}
	}
}

func TestSession_InitialUpdate(t *testing.T) {
	e := newEngine(t)
	e.seed(t, "alice", "bob")
	sink := make(updateSink, 32)

	s := e.ms.StartSession(context.Background(), "alice", sink.push)
	defer s.Stop()

	select {
	case u := <-sink:
		assert.Equal(t, UpdateInitial, u.Reason)
		assert.Equal(t, "alice", u.UserID)
		assert.Equal(t, w29, u.EpochID)
		assert.Len(t, u.Entries, 1)
		assert.Equal(t, int64(388799), u.RemainingSeconds)
	default:
		t.Fatal("initial update must be delivered before StartSession returns")
	}
	assert.Equal(t, 1, e.feed.Subscribers("alice"))

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, UpdateInitial, last.Reason)
	assert.Len(t, last.Entries, 1)
}

func TestSession_CounterpartAcceptTriggersReconcile(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.seed(t, "alice", "bob")
	sink := make(updateSink, 32)
	s := e.ms.StartSession(ctx, "alice", sink.push)
	defer s.Stop()
	sink.waitFor(t, UpdateInitial)

	_, err := e.ms.Accept(ctx, "alice", "alice_bob_"+w29)
	require.NoError(t, err)
	_, err = e.ms.Accept(ctx, "bob", "alice_bob_"+w29)
	require.NoError(t, err)

	u := sink.waitFor(t, UpdateReconcile)
	require.Len(t, u.Entries, 1)
	assert.Equal(t, models.MatchStatusMutual, u.Entries[0].Status)
}

func TestSession_PushesEntriesAddedByOthers(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.seed(t, "alice")
	sink := make(updateSink, 32)
	s := e.ms.StartSession(ctx, "alice", sink.push)
	defer s.Stop()
	assert.Empty(t, sink.waitFor(t, UpdateInitial).Entries)

	e.seed(t, "bob")
	_, err := e.ms.GetOrGenerate(ctx, "bob")
	require.NoError(t, err)

	u := sink.waitFor(t, UpdateReconcile)
	require.Len(t, u.Entries, 1)
	assert.Equal(t, "bob", u.Entries[0].CounterpartUserID)
}

func TestSession_GeneratesOnRollover(t *testing.T) {
	e := newEngine(t)
	e.seed(t, "alice", "bob")
	sink := make(updateSink, 32)
	s := e.ms.StartSession(context.Background(), "alice", sink.push)
	defer s.Stop()
	sink.waitFor(t, UpdateInitial)

	e.clock.Set(s.Timer().Current().End.Add(time.Second))

	u := sink.waitFor(t, UpdateNewEpoch)
	assert.Equal(t, "2026-W30", u.EpochID)
	require.Len(t, u.Entries, 1)
	assert.Equal(t, "alice_bob_2026-W30", u.Entries[0].MatchID)
	assert.Eventually(t, func() bool { return !s.Timer().CanGenerate() }, time.Second, time.Millisecond)
}

func TestSession_Stop(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.seed(t, "alice", "bob")
	sink := make(updateSink, 32)
	s := e.ms.StartSession(ctx, "alice", sink.push)
	sink.waitFor(t, UpdateInitial)

	s.Stop()
	s.Stop()
	assert.Zero(t, e.feed.Subscribers("alice"))

	_, err := e.ms.Accept(ctx, "bob", "alice_bob_"+w29)
	require.NoError(t, err)
	select {
	case u := <-sink:
		t.Fatalf("update after stop: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSession_ParentContextStops(t *testing.T) {
	e := newEngine(t)
	e.seed(t, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	s := e.ms.StartSession(ctx, "alice", nil)

	cancel()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}
