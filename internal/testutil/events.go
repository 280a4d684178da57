package testutil

import (
	"sync"

	"github.com/thenoetrevino/dealflow/internal/events"
)

// RecordingPublisher captures published events for assertions
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	seq    int64
}

// Publish records the event and stamps a sequence number
func (p *RecordingPublisher) Publish(event events.Event) events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	event.SequenceID = p.seq
	p.events = append(p.events, event)
	return event
}

// Events returns a copy of everything published so far
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// Types returns the type of every published event in order
func (p *RecordingPublisher) Types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

// Last returns the most recent event
func (p *RecordingPublisher) Last() (events.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return events.Event{}, false
	}
	return p.events[len(p.events)-1], true
}
