// Package realtime fans out change notifications to connected dashboards.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Actions carried by Event.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionImported = "imported"
)

// Event says that a collection changed. Subscribers react by loading a
// fresh snapshot of the collection.
type Event struct {
	Collection string `json:"collection"`
	Action     string `json:"action"`
	ID         string `json:"id,omitempty"`
}

// Notifier publishes change events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Subscription is one listener. Close must be called when the listener goes away.
type Subscription struct {
	id         uint64
	collection string
	events     chan Event
	hub        *Hub
	once       sync.Once
}

// Events delivers matching events until Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unregisters the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

// Hub manages in-process subscriptions.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
	buffer int
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: 16,
		logger: logger,
	}
}

// Subscribe registers a listener for collection; "" listens to everything.
func (h *Hub) Subscribe(collection string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{
		id:         h.nextID,
		collection: collection,
		events:     make(chan Event, h.buffer),
		hub:        h,
	}
	h.subs[sub.id] = sub
	h.logger.Debug("realtime subscriber added",
		zap.Uint64("id", sub.id), zap.String("collection", collection), zap.Int("total", len(h.subs)))
	return sub
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		close(sub.events)
		delete(h.subs, id)
		h.logger.Debug("realtime subscriber removed", zap.Uint64("id", id), zap.Int("total", len(h.subs)))
	}
}

// Publish delivers e to every matching subscriber without blocking. A
// subscriber with a full buffer already has a pending refresh, so the event
// is dropped for it.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.collection != "" && sub.collection != e.Collection {
			continue
		}
		select {
		case sub.events <- e:
		default:
			h.logger.Debug("realtime subscriber buffer full", zap.Uint64("id", sub.id))
		}
	}
}

// Notify implements Notifier for single-instance deployments.
func (h *Hub) Notify(_ context.Context, e Event) error {
	h.Publish(e)
	return nil
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
