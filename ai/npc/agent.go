package npc

import "github.com/go-gl/mathgl/mgl64"

// Faction is an NPC's behavioural group.
type Faction string

const (
	FactionCivilian Faction = "civilian"
	FactionRioter   Faction = "rioter"
	FactionPolice   Faction = "police"
)

// Agent is the externally owned body a controller drives. Position and
// Forward must return the authoritative, post-physics transform; the
// controller reads them at the start of every AI tick and never caches them
// across ticks. The remaining methods are intents the host fulfils.
type Agent interface {
	ID() int
	Faction() Faction
	Position() mgl64.Vec3
	Forward() mgl64.Vec3

	Move(dir mgl64.Vec3, speed float64)
	Stop()
	LookAt(target mgl64.Vec3)
	Attack()
}

// SenseKind is an external sensory notification.
type SenseKind string

const (
	// SenseExplosion is a hit or blast. It always leaves a threat behind.
	SenseExplosion SenseKind = "EXPLOSION"
	// SenseNoise is a loud but harmless disturbance.
	SenseNoise SenseKind = "NOISE"
)

// Command is a verbal instruction from a police officer or the player.
type Command string

const (
	CommandCalmDown Command = "CALM_DOWN"
	CommandInsult   Command = "INSULT"
)
