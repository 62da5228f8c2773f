package system

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/milk9111/unrest/ai/fsm"
)

// EventType tags a queued simulation event.
type EventType string

const (
	EventImpact     EventType = "impact"
	EventTransition EventType = "transition"
)

// Event is a queued payload. Data holds an ImpactEvent or TransitionEvent.
type Event struct {
	Type EventType
	Data any
}

// ImpactEvent is raised when a projectile touches an NPC or the scenery.
// NPC is only meaningful when HitNPC is set.
type ImpactEvent struct {
	Projectile uuid.UUID
	Position   mgl64.Vec3
	NPC        int
	HitNPC     bool
}

// TransitionEvent records an NPC state change.
type TransitionEvent struct {
	NPC  int
	From fsm.StateID
	To   fsm.StateID
}

// EventQueue is a simple FIFO queue.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}
