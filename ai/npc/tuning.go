package npc

import "github.com/milk9111/unrest/ai/perception"

// Tuning holds the numbers shared by every controller. Distances are in
// world units, speeds in units per second, durations in seconds and chances
// per AI tick.
type Tuning struct {
	TickInterval float64

	WalkSpeed      float64
	RunSpeed       float64
	WanderRadius   float64
	WanderChance   float64
	ArriveDistance float64

	SafetyRadius   float64
	ThreatStrength float64
	NoiseStrength  float64
	// AudioThreatIntensity is the loudness at which a heard sound is also
	// remembered as a threat. Zero disables it.
	AudioThreatIntensity float64

	CalmCooldown float64

	RiotMoveChance float64
	AttackCooldown float64

	FormationGain     float64
	FormationMaxSpeed float64
	FormationArrive   float64

	HighEscalationChance   float64
	MediumEscalationChance float64

	CalmDownDelta    float64
	InsultDelta      float64
	CalmRelationship float64
	RiotRelationship float64

	MemoryDecay float64
	Perception  perception.Config
}

func DefaultTuning() Tuning {
	return Tuning{
		TickInterval: 0.1,

		WalkSpeed:      1.5,
		RunSpeed:       4.0,
		WanderRadius:   5,
		WanderChance:   0.01,
		ArriveDistance: 1.0,

		SafetyRadius:         20,
		ThreatStrength:       10,
		NoiseStrength:        5,
		AudioThreatIntensity: 8,

		CalmCooldown: 5,

		RiotMoveChance: 0.3,
		AttackCooldown: 2,

		FormationGain:     1.0,
		FormationMaxSpeed: 3.0,
		FormationArrive:   0.5,

		HighEscalationChance:   0.02,
		MediumEscalationChance: 0.005,

		CalmDownDelta:    20,
		InsultDelta:      -30,
		CalmRelationship: 50,
		RiotRelationship: -50,

		MemoryDecay: 1,
		Perception:  perception.DefaultConfig(),
	}
}

// Attributes are the per-NPC traits derived from its faction.
type Attributes struct {
	SpeedMultiplier      float64
	EscalationMultiplier float64
	Relationship         float64
}

// DefaultAttributes returns the baseline traits for f. Unknown factions get
// civilian traits.
func DefaultAttributes(f Faction) Attributes {
	switch f {
	case FactionRioter:
		return Attributes{SpeedMultiplier: 1.1, EscalationMultiplier: 2, Relationship: -20}
	case FactionPolice:
		return Attributes{SpeedMultiplier: 1.0, EscalationMultiplier: 0, Relationship: 50}
	default:
		return Attributes{SpeedMultiplier: 1.0, EscalationMultiplier: 1, Relationship: 10}
	}
}
