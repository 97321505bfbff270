package services

import (
	"sync"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
)

// MatchChange tells UserID that a pair it takes part in changed.
type MatchChange struct {
	MatchID string             `json:"matchId"`
	EpochID string             `json:"epochId"`
	UserID  string             `json:"userId"`
	Status  models.MatchStatus `json:"status"`
}

// Notifier receives pair changes.
type Notifier interface {
	Publish(change MatchChange)
}

const feedBuffer = 16

// ChangeFeed is an in-process fan-out of MatchChange values keyed by user.
type ChangeFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan MatchChange
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: make(map[string]map[int]chan MatchChange)}
}

// Subscribe returns a channel receiving changes for userID and a func that
// ends the subscription and closes the channel.
func (f *ChangeFeed) Subscribe(userID string) (<-chan MatchChange, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	ch := make(chan MatchChange, feedBuffer)
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[int]chan MatchChange)
	}
	f.subs[userID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs[userID], id)
			if len(f.subs[userID]) == 0 {
				delete(f.subs, userID)
			}
			close(ch)
		})
	}
}

// Publish delivers change to the subscribers of change.UserID. A subscriber
// whose buffer is full misses the change.
func (f *ChangeFeed) Publish(change MatchChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[change.UserID] {
		select {
		case ch <- change:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions for userID.
func (f *ChangeFeed) Subscribers(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[userID])
}

type noopNotifier struct{}

func (noopNotifier) Publish(MatchChange) {}
