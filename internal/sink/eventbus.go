package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"vehiclepush/internal/constants"
	"vehiclepush/pkg/metrics"
)

// Event is delivered to in-process subscribers such as open UI streams.
// Data is nil for refresh signals.
type Event struct {
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data *BroadcastEvent `json:"data,omitempty"`
}

// EventBus is a non-blocking in-memory fanout. Subscribers that fall behind
// lose events instead of slowing down publishers.
type EventBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func NewEventBus() *EventBus {
	return &EventBus{subs: map[uint64]chan Event{}}
}

func (b *EventBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		func() {
			// unsubscribe may close ch concurrently
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
				metrics.EventBusDroppedTotal.Inc()
			}
		}()
	}
}

// Subscribe registers a buffered subscriber. The returned function is
// idempotent and closes the channel.
func (b *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	metrics.EventBusSubscribers.Inc()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			metrics.EventBusSubscribers.Dec()
			close(ch)
		})
	}
	return ch, unsub
}

func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// EventBusBroadcaster adapts the bus to EventBroadcaster.
type EventBusBroadcaster struct {
	bus *EventBus
}

func NewEventBusBroadcaster(bus *EventBus) *EventBusBroadcaster {
	return &EventBusBroadcaster{bus: bus}
}

func (b *EventBusBroadcaster) Emit(_ context.Context, e BroadcastEvent) error {
	b.bus.Publish(Event{Type: constants.EventNotification, Data: &e})
	return nil
}

func (b *EventBusBroadcaster) Refresh(context.Context) error {
	b.bus.Publish(Event{Type: constants.EventRefresh})
	return nil
}
