// Package broadcast fans order events out to live subscribers.
//
// A subscriber either follows one table or follows every table. Delivery to a
// subscriber is in publish order. A subscriber whose buffer is full is
// evicted: its channel is closed and it must re-fetch state and subscribe
// again. Events are never dropped silently.
package broadcast

import (
	"context"
	"sync"

	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"
)

// GlobalScope is the scope of subscribers that follow every table.
const GlobalScope = 0

// Message is what a subscriber receives.
type Message struct {
	Event   string       `json:"event"`
	Order   models.Order `json:"order"`
	Version int          `json:"version"`
}

type Subscription struct {
	// C is closed when the subscription ends, either by Close or by eviction.
	C <-chan Message

	ch    chan Message
	scope int
	hub   *Hub
}

// Scope is the table number followed, or GlobalScope.
func (s *Subscription) Scope() int { return s.scope }

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

type Hub struct {
	mu     sync.Mutex
	subs   map[int]map[*Subscription]struct{}
	buffer int
	mylog  logger.Logger

	evicted uint64
}

func NewHub(buffer int, mylog logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[int]map[*Subscription]struct{}),
		buffer: buffer,
		mylog:  mylog,
	}
}

// Subscribe follows one table.
func (h *Hub) Subscribe(tableNumber int) *Subscription {
	return h.add(tableNumber)
}

// SubscribeAll follows every table.
func (h *Hub) SubscribeAll() *Subscription {
	return h.add(GlobalScope)
}

func (h *Hub) add(scope int) *Subscription {
	ch := make(chan Message, h.buffer)
	sub := &Subscription{C: ch, ch: ch, scope: scope, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[scope] == nil {
		h.subs[scope] = make(map[*Subscription]struct{})
	}
	h.subs[scope][sub] = struct{}{}
	return sub
}

// Publish delivers the event to the order's table scope and to the global scope.
// It never blocks on a slow subscriber.
func (h *Hub) Publish(ctx context.Context, event models.Event) error {
	msg := Message{Event: event.Kind.Name(), Order: event.Order.Clone(), Version: event.Order.Version}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.deliver(event.Order.TableNumber, msg)
	if event.Order.TableNumber != GlobalScope {
		h.deliver(GlobalScope, msg)
	}
	return nil
}

func (h *Hub) deliver(scope int, msg Message) {
	for sub := range h.subs[scope] {
		select {
		case sub.ch <- msg:
		default:
			h.mylog.Action("subscriber_evicted").Warn("Subscriber buffer full, closing subscription",
				"scope", scope,
				"event", msg.Event,
				"order_id", msg.Order.ID,
			)
			h.evicted++
			delete(h.subs[scope], sub)
			close(sub.ch)
		}
	}
	if len(h.subs[scope]) == 0 {
		delete(h.subs, scope)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.scope]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.scope)
	}
}

// Stats reports current subscribers and evictions so far.
func (h *Hub) Stats() (subscribers int, evicted uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.subs {
		subscribers += len(set)
	}
	return subscribers, h.evicted
}
