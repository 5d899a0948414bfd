// Package events provides the in-process event bus and typed event payloads.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is a published occurrence on the bus
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Type      EventType              `json:"type"`
	Module    string                 `json:"module"`
	ID        string                 `json:"id"`
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(*Event)

// SubscriptionID identifies a subscription for Unsubscribe
type SubscriptionID uint64

type subscription struct {
	handler Handler
	id      SubscriptionID
}

// Bus fans events out to subscribers by type
type Bus struct {
	log         zerolog.Logger
	subscribers map[EventType][]subscription
	mu          sync.RWMutex
	nextID      SubscriptionID
}

// NewBus creates an empty bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:         log.With().Str("component", "event_bus").Logger(),
		subscribers: make(map[EventType][]subscription),
	}
}

// Subscribe registers handler for eventType
func (b *Bus) Subscribe(eventType EventType, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: b.nextID, handler: handler})
	return b.nextID
}

// SubscribeAll registers handler for every known event type and returns
// one id per type.
func (b *Bus) SubscribeAll(handler Handler) []SubscriptionID {
	types := AllEventTypes()
	ids := make([]SubscriptionID, 0, len(types))
	for _, t := range types {
		ids = append(ids, b.Subscribe(t, handler))
	}
	return ids
}

// Unsubscribe removes the given subscriptions
func (b *Bus) Unsubscribe(ids ...SubscriptionID) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[SubscriptionID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		kept := subs[:0]
		for _, s := range subs {
			if !drop[s.id] {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.subscribers, eventType)
		} else {
			b.subscribers[eventType] = kept
		}
	}
}

// Publish delivers event to every subscriber of its type.
// A panicking handler is logged and does not affect the others.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[event.Type]))
	copy(subs, b.subscribers[event.Type])
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, event)
	}
}

func (b *Bus) deliver(s subscription, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	s.handler(event)
}

// SubscriberCount returns the number of handlers for eventType
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
