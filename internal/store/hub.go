package store

import (
	"context"
	"sync"

	"github.com/BerylCAtieno/getreach/internal/models"
)

// Hub delivers replaced report documents to live viewers.
type Hub interface {
	Publish(ctx context.Context, reportID string, report *models.ReachReport) error
	// Subscribe calls fn for every document published for reportID until the
	// returned subscription is closed. fn must not block.
	Subscribe(ctx context.Context, reportID string, fn func(*models.ReachReport)) (*Subscription, error)
}

// Subscription is an owned handle on a live feed. Close is idempotent and
// returns once no further calls to the callback will be made.
type Subscription struct {
	closeOnce sync.Once
	doneOnce  sync.Once
	stop      func() error
	done      chan struct{}
	err       error
}

func newSubscription(stop func() error) *Subscription {
	return &Subscription{stop: stop, done: make(chan struct{})}
}

// Done is closed when the subscription ends, by Close or because the
// underlying feed went away.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.err = s.stop()
		s.finish()
	})
	return s.err
}

func (s *Subscription) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// MemoryHub is an in-process Hub.
type MemoryHub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func(*models.ReachReport)

	// serialises delivery with Close so no callback runs after Close returns
	deliver sync.RWMutex
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[string]map[int]func(*models.ReachReport))}
}

var _ Hub = (*MemoryHub)(nil)

func (h *MemoryHub) Publish(_ context.Context, reportID string, report *models.ReachReport) error {
	h.deliver.RLock()
	defer h.deliver.RUnlock()

	h.mu.Lock()
	fns := make([]func(*models.ReachReport), 0, len(h.subs[reportID]))
	for _, fn := range h.subs[reportID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(report)
	}
	return nil
}

func (h *MemoryHub) Subscribe(_ context.Context, reportID string, fn func(*models.ReachReport)) (*Subscription, error) {
	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[reportID] == nil {
		h.subs[reportID] = make(map[int]func(*models.ReachReport))
	}
	h.subs[reportID][id] = fn
	h.mu.Unlock()

	return newSubscription(func() error {
		h.mu.Lock()
		delete(h.subs[reportID], id)
		if len(h.subs[reportID]) == 0 {
			delete(h.subs, reportID)
		}
		h.mu.Unlock()
		// wait out any in-flight delivery
		h.deliver.Lock()
		defer h.deliver.Unlock()
		return nil
	}), nil
}

// Subscribers reports how many live subscriptions exist for reportID.
func (h *MemoryHub) Subscribers(reportID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[reportID])
}
