// Package outbox buffers membership events and delivers them to Kafka.
package outbox

import (
	"context"
	"sync"

	"example.com/signup/internal/domain"
	"example.com/signup/internal/events"
)

// DefaultCapacity bounds the queue when no capacity is configured.
const DefaultCapacity = 1024

// Outbox is a bounded in-memory queue of pending membership events. When full
// the oldest pending event is evicted.
type Outbox struct {
	mu       sync.Mutex
	queue    []events.MembershipChanged
	capacity int
}

// New constructs an Outbox.
func New(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Outbox{capacity: capacity}
}

var _ domain.Publisher = (*Outbox)(nil)

// Publish implements domain.Publisher. It never blocks on delivery.
func (o *Outbox) Publish(_ context.Context, evt domain.MembershipEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.queue = append(o.queue, events.FromDomain(evt))
	o.trimLocked()
	return nil
}

// Take removes and returns up to n events from the front of the queue.
func (o *Outbox) Take(n int) []events.MembershipChanged {
	o.mu.Lock()
	defer o.mu.Unlock()

	if n <= 0 || n > len(o.queue) {
		n = len(o.queue)
	}
	if n == 0 {
		return nil
	}
	batch := make([]events.MembershipChanged, n)
	copy(batch, o.queue[:n])
	o.queue = append(o.queue[:0], o.queue[n:]...)
	queueDepth.Set(float64(len(o.queue)))
	return batch
}

// Requeue puts an undelivered batch back at the front, preserving order.
func (o *Outbox) Requeue(batch []events.MembershipChanged) {
	if len(batch) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	merged := make([]events.MembershipChanged, 0, len(batch)+len(o.queue))
	merged = append(merged, batch...)
	merged = append(merged, o.queue...)
	o.queue = merged
	o.trimLocked()
}

// Len reports the number of pending events.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *Outbox) trimLocked() {
	if over := len(o.queue) - o.capacity; over > 0 {
		o.queue = append(o.queue[:0], o.queue[over:]...)
		droppedCounter.Add(float64(over))
	}
	queueDepth.Set(float64(len(o.queue)))
}
