package http

import (
	"sync"

	"routing-arena/internal/app"
	"routing-arena/internal/domain"
)

// Update is one published board.
type Update struct {
	Board   app.Board                 `json:"-"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// Hub fans board updates out to websocket subscribers. It implements
// app.LeaderboardPublisher and remembers the last update of every board so
// new subscribers start from the current state.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Update]struct{}
	latest      map[app.Board]Update
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Update]struct{}),
		latest:      make(map[app.Board]Update),
	}
}

func (h *Hub) Publish(board app.Board, entries []domain.LeaderboardEntry) {
	u := Update{Board: board, Entries: append([]domain.LeaderboardEntry(nil), entries...)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[board] = u
	for ch := range h.subscribers {
		select {
		case ch <- u:
		default:
			// Slow subscriber: drop its oldest pending update.
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

// Snapshot returns the last update of every board, leaderboard first.
func (h *Hub) Snapshot() []Update {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() []Update {
	var out []Update
	for _, b := range []app.Board{app.BoardLeaderboard, app.BoardWinners} {
		if u, ok := h.latest[b]; ok {
			out = append(out, u)
		}
	}
	return out
}

// Subscribe returns a channel of updates primed with the current snapshot.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	for _, u := range h.snapshotLocked() {
		ch <- u
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

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
