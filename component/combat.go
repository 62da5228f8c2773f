package component

import "github.com/go-gl/mathgl/mgl64"

// CombatEventType defines the kind of combat event.
type CombatEventType string

const (
	EventLaunch     CombatEventType = "launch"
	EventImpact     CombatEventType = "impact"
	EventHit        CombatEventType = "hit"
	EventAttack     CombatEventType = "attack"
	EventDeescalate CombatEventType = "deescalate"
)

// CombatEvent is emitted while projectiles fly and land.
type CombatEvent struct {
	Type       CombatEventType
	Projectile string
	Kind       string
	AttackerID int
	TargetID   int
	Position   mgl64.Vec3
	// Tension is the crowd tension after the event was applied.
	Tension float64
}

// CombatEventHandler handles combat events.
type CombatEventHandler func(evt CombatEvent)

// CombatEventEmitter fans combat events out to handlers.
type CombatEventEmitter struct {
	Handlers []CombatEventHandler
}

func (e *CombatEventEmitter) Subscribe(h CombatEventHandler) {
	if e == nil || h == nil {
		return
	}
	e.Handlers = append(e.Handlers, h)
}

// Emit sends a combat event to all handlers.
func (e *CombatEventEmitter) Emit(evt CombatEvent) {
	if e == nil || len(e.Handlers) == 0 {
		return
	}
	for _, h := range e.Handlers {
		if h != nil {
			h(evt)
		}
	}
}
