package app

import (
	"sync"
	"time"

	"learnworld-service/internal/domain"
)

// LeaderboardHub fans leaderboard snapshots out to live subscribers.
type LeaderboardHub struct {
	now         func() time.Time
	mu          sync.Mutex
	last        domain.Leaderboard
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return newLeaderboardHubWithClock(time.Now)
}

// newLeaderboardHubWithClock allows deterministic timestamps in tests.
func newLeaderboardHubWithClock(now func() time.Time) *LeaderboardHub {
	return &LeaderboardHub{
		now:         now,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Publish stores entries as the latest snapshot and pushes it to every subscriber.
func (h *LeaderboardHub) Publish(entries []domain.LeaderboardEntry) domain.Leaderboard {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = domain.Leaderboard{Entries: entries, UpdatedAt: h.now()}
	for ch := range h.subscribers {
		select {
		case ch <- h.last:
		default:
			// drop the stale update so a slow reader never blocks a commit
			select {
			case <-ch:
			default:
			}
			ch <- h.last
		}
	}
	return h.last
}

// Subscribe returns a channel primed with the latest snapshot (if any).
// The caller must invoke the returned cancel function to avoid leaks.
func (h *LeaderboardHub) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	if !h.last.UpdatedAt.IsZero() {
		ch <- h.last
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports how many live subscriptions exist.
func (h *LeaderboardHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
