// Package realtime fans row changes out to subscribers. Events come from the
// Postgres LISTEN/NOTIFY listener in production and from the in-memory store
// in tests.
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"archon-backend/internal/domain"

	"go.uber.org/zap"
)

// Hub is an in-process change feed. It implements domain.ChangeFeed and
// domain.ChangePublisher.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscription
	log    *zap.Logger
}

type subscription struct {
	id     uint64
	hub    *Hub
	filter domain.ChangeFilter
	fn     func(domain.ChangeEvent)
	once   sync.Once
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs: make(map[uint64]*subscription),
		log:  log,
	}
}

// Subscribe registers fn for events matching filter. The returned handle
// must be released with Unsubscribe when the owner goes away.
func (h *Hub) Subscribe(filter domain.ChangeFilter, fn func(domain.ChangeEvent)) domain.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := &subscription{id: h.nextID, hub: h, filter: filter, fn: fn}
	h.subs[s.id] = s
	return s
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers event to every matching subscriber. Callbacks run on the
// caller's goroutine, outside the hub lock.
func (h *Hub) Publish(event domain.ChangeEvent) {
	var row map[string]any
	if len(event.Record) > 0 {
		if err := json.Unmarshal(event.Record, &row); err != nil {
			h.log.Warn("dropping change event with unreadable record",
				zap.String("table", event.Table), zap.Error(err))
			return
		}
	}

	h.mu.RLock()
	targets := make([]*subscription, 0, len(h.subs))
	for _, s := range h.subs {
		if matches(s.filter, event, row) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.fn(event)
	}
}

func matches(f domain.ChangeFilter, event domain.ChangeEvent, row map[string]any) bool {
	if f.Table != "" && f.Table != event.Table {
		return false
	}
	if f.Type != "" && f.Type != domain.ChangeAny && f.Type != event.Type {
		return false
	}
	if f.Column == "" {
		return true
	}
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

var (
	_ domain.ChangeFeed      = (*Hub)(nil)
	_ domain.ChangePublisher = (*Hub)(nil)
)
