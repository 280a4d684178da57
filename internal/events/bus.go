package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const defaultBufferSize = 64

// Publisher is the write side of the bus. Services depend on this rather
// than on *Bus so tests can capture events.
type Publisher interface {
	Publish(event Event) Event
}

// Compile-time verification that *Bus implements Publisher
var _ Publisher = (*Bus)(nil)

// Bus is an in-process publish/subscribe hub.
//
// Publish never blocks: a subscriber whose buffer is full misses the event
// and the drop is counted in Metrics. Subscribers that need every event
// should drain their channel promptly.
type Bus struct {
	mu         sync.RWMutex
	subs       map[*Subscription]struct{}
	closed     bool
	seq        atomic.Int64
	bufferSize int
	metrics    *Metrics
	logger     *slog.Logger
}

// BusOption configures a Bus
type BusOption func(*Bus)

// WithBufferSize sets the channel capacity of new subscriptions
func WithBufferSize(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithLogger sets the logger used for drop warnings
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus creates an empty bus
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: defaultBufferSize,
		metrics:    NewMetrics(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription receives events of the types it was created with
type Subscription struct {
	bus   *Bus
	ch    chan Event
	types map[EventType]struct{}
	once  sync.Once
}

// Events returns the channel events are delivered on. It is closed when the
// subscription or the bus is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Close detaches the subscription from the bus. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		delete(s.bus.subs, s)
		close(s.ch)
		s.bus.metrics.Subscribers.Add(-1)
	})
}

// Subscribe registers for the given event types. No types means all types.
// Subscribing to a closed bus returns a subscription whose channel is
// already closed.
func (b *Bus) Subscribe(types ...EventType) *Subscription {
	sub := &Subscription{
		bus:   b,
		ch:    make(chan Event, b.bufferSize),
		types: make(map[EventType]struct{}, len(types)),
	}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics.Subscribers.Add(1)
	if b.closed {
		sub.closeLocked()
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish stamps the event with an id, timestamp and sequence number and
// fans it out to matching subscribers. The stamped event is returned.
func (b *Bus) Publish(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.SequenceID = b.seq.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return event
	}

	b.metrics.Published.Add(1)
	for sub := range b.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
			b.metrics.Delivered.Add(1)
		default:
			b.metrics.Dropped.Add(1)
			b.logger.Warn("event dropped, subscriber buffer full",
				"event_type", event.Type,
				"seq", event.SequenceID)
		}
	}
	return event
}

// Seq returns the sequence number of the most recently published event
func (b *Bus) Seq() int64 {
	return b.seq.Load()
}

// Stats returns a snapshot of the bus counters
func (b *Bus) Stats() MetricsSnapshot {
	return b.metrics.Snapshot()
}

// Close closes every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.closeLocked()
	}
}
