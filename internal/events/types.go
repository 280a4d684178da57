package events

import (
	"strings"
	"time"
)

// EventType names a change in the CRM, formatted as "<entity>.<action>"
type EventType string

const (
	ContactCreated EventType = "contact.created"
	ContactUpdated EventType = "contact.updated"
	ContactDeleted EventType = "contact.deleted"

	OpportunityCreated EventType = "opportunity.created"
	OpportunityUpdated EventType = "opportunity.updated"
	OpportunityMoved   EventType = "opportunity.moved"
	OpportunityDeleted EventType = "opportunity.deleted"

	TaskCreated EventType = "task.created"
	TaskUpdated EventType = "task.updated"
	TaskMoved   EventType = "task.moved"
	TaskDeleted EventType = "task.deleted"
)

// AllTypes lists every event type the application publishes
func AllTypes() []EventType {
	return []EventType{
		ContactCreated, ContactUpdated, ContactDeleted,
		OpportunityCreated, OpportunityUpdated, OpportunityMoved, OpportunityDeleted,
		TaskCreated, TaskUpdated, TaskMoved, TaskDeleted,
	}
}

// OpportunityTypes are the events that change the opportunity pipeline
func OpportunityTypes() []EventType {
	return []EventType{OpportunityCreated, OpportunityUpdated, OpportunityMoved, OpportunityDeleted, ContactUpdated, ContactDeleted}
}

// TaskTypes are the events that change the task board
func TaskTypes() []EventType {
	return []EventType{TaskCreated, TaskUpdated, TaskMoved, TaskDeleted}
}

// Entity returns the part of the type before the dot ("task" for "task.moved")
func (t EventType) Entity() string {
	entity, _, _ := strings.Cut(string(t), ".")
	return entity
}

// Known reports whether t is one of AllTypes
func (t EventType) Known() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Event is a change notification carried by the Bus
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	EntityID   int       `json:"entityId"`
	Data       any       `json:"data,omitempty"`
	Timestamp  time.Time `json:"occurredAt"`
	SequenceID int64     `json:"seq"`
	// Origin identifies the process that first published the event.
	// Empty for events that never left this process.
	Origin string `json:"origin,omitempty"`
}

// MoveData is the payload of *.moved events
type MoveData struct {
	From string `json:"from"`
	To   string `json:"to"`
}
