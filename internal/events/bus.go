// Package events fans panel state changes out to websocket clients and keeps a
// short replay buffer for pages that connect mid-run.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultBufferSize = 256

	// A complete check emits about 80 events; a subscriber can fall a whole
	// run behind before events are dropped.
	subscriberBuffer = 128
)

// Seq increases by one per accepted event; pages use it to tell replayed
// events from ones already reflected in a state snapshot.
type Event struct {
	Seq       int64          `json:"seq"`
	Timestamp string         `json:"ts"`
	Level     string         `json:"level"`
	Name      string         `json:"event"`
	Message   string         `json:"msg,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Subscriber represents a channel that receives events.
type Subscriber chan Event

// Bus validates, buffers and broadcasts events.
type Bus struct {
	buffer *RingBuffer
	total  atomic.Int64
	now    func() time.Time

	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
}

// NewBus creates a bus whose replay buffer holds size events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Bus{
		buffer:      NewRingBuffer(size),
		now:         time.Now,
		subscribers: make(map[Subscriber]struct{}),
	}
}

// Emit records an event and delivers it to every subscriber.
// Unknown event names are rejected.
func (b *Bus) Emit(level, name, msg string, fields map[string]any) (Event, error) {
	if err := Validate(name); err != nil {
		return Event{}, err
	}

	e := Event{
		Seq:       b.total.Add(1),
		Timestamp: b.now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	b.buffer.Add(e)
	b.broadcast(e)
	return e, nil
}

// Subscribe adds a new subscriber and returns its channel.
// The channel has a buffer to prevent blocking on slow clients.
func (b *Bus) Subscribe() Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// after CloseAll.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// CloseAll closes every subscriber channel. Used on shutdown.
func (b *Bus) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// broadcast is non-blocking: a subscriber with a full buffer misses the event.
func (b *Bus) broadcast(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- e:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Recent returns the last n buffered events. n <= 0 returns everything.
func (b *Bus) Recent(n int) []Event {
	all := b.buffer.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Total is the number of events emitted since the bus was created. It is
// also the Seq of the newest event.
func (b *Bus) Total() int64 {
	return b.total.Load()
}

// Clear resets the replay buffer.
func (b *Bus) Clear() {
	b.buffer.Clear()
}
