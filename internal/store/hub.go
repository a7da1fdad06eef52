package store

import (
	"context"
	"sync"
)

// Subscription is a live feed of snapshots for one account. Reads come from C;
// Cancel (or cancelling the subscribe context) closes C.
type Subscription struct {
	C      <-chan Snapshot
	cancel context.CancelFunc
}

// Cancel ends the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Hub fans snapshots out to per-account subscribers. Channels are buffered
// with capacity one and publishing replaces any undelivered snapshot, so a
// slow subscriber always observes the latest state rather than a backlog.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan Snapshot
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Snapshot)}
}

// Subscribe registers a subscriber for accountID. The feed closes when ctx is
// cancelled or CloseAccount is called for the account.
func (h *Hub) Subscribe(ctx context.Context, accountID string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)

	ch := make(chan Snapshot, 1)
	h.mu.Lock()
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[int]chan Snapshot)
	}
	key := h.next
	h.next++
	h.subs[accountID][key] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if set, ok := h.subs[accountID]; ok {
			if c, ok := set[key]; ok {
				delete(set, key)
				close(c)
			}
			if len(set) == 0 {
				delete(h.subs, accountID)
			}
		}
		h.mu.Unlock()
	}()

	return &Subscription{C: ch, cancel: cancel}
}

// Publish delivers snap to every subscriber of the account. Undelivered
// older snapshots are discarded first: latest wins.
func (h *Hub) Publish(accountID string, snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[accountID] {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// CloseAccount drops every subscriber of the account, closing their channels.
// Used on logout so in-flight pushes cannot reach a dead session.
func (h *Hub) CloseAccount(accountID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, ch := range h.subs[accountID] {
		delete(h.subs[accountID], key)
		close(ch)
	}
	delete(h.subs, accountID)
}

// Subscribers returns the number of live subscriptions for the account.
func (h *Hub) Subscribers(accountID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[accountID])
}
