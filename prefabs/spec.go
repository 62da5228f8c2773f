package prefabs

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// AISpec is ai.yaml: the tuning shared by every NPC controller.
type AISpec struct {
	TickInterval float64          `yaml:"tick_interval"`
	Movement     MovementSpec     `yaml:"movement"`
	Flee         FleeSpec         `yaml:"flee"`
	CalmCooldown float64          `yaml:"calm_cooldown"`
	Riot         RiotSpec         `yaml:"riot"`
	Formation    FormationSpec    `yaml:"formation"`
	Escalation   EscalationSpec   `yaml:"escalation"`
	Relationship RelationshipSpec `yaml:"relationship"`
	MemoryDecay  float64          `yaml:"memory_decay"`
	Perception   PerceptionSpec   `yaml:"perception"`
	Tension      TensionSpec      `yaml:"tension"`
	Directory    DirectorySpec    `yaml:"directory"`
	Deescalation DeescalationSpec `yaml:"deescalation"`
}

type MovementSpec struct {
	WalkSpeed      float64 `yaml:"walk_speed"`
	RunSpeed       float64 `yaml:"run_speed"`
	WanderRadius   float64 `yaml:"wander_radius"`
	WanderChance   float64 `yaml:"wander_chance"`
	ArriveDistance float64 `yaml:"arrive_distance"`
}

type FleeSpec struct {
	SafetyRadius         float64 `yaml:"safety_radius"`
	ThreatStrength       float64 `yaml:"threat_strength"`
	NoiseStrength        float64 `yaml:"noise_strength"`
	AudioThreatIntensity float64 `yaml:"audio_threat_intensity"`
}

type RiotSpec struct {
	MoveChance     float64 `yaml:"move_chance"`
	AttackCooldown float64 `yaml:"attack_cooldown"`
}

type FormationSpec struct {
	Gain     float64 `yaml:"gain"`
	MaxSpeed float64 `yaml:"max_speed"`
	Arrive   float64 `yaml:"arrive"`
}

type EscalationSpec struct {
	HighChance   float64 `yaml:"high_chance"`
	MediumChance float64 `yaml:"medium_chance"`
}

type RelationshipSpec struct {
	CalmDown float64 `yaml:"calm_down"`
	Insult   float64 `yaml:"insult"`
	CalmAt   float64 `yaml:"calm_at"`
	RiotAt   float64 `yaml:"riot_at"`
}

type PerceptionSpec struct {
	ViewDistance  float64 `yaml:"view_distance"`
	FieldOfView   float64 `yaml:"field_of_view"`
	HearingRadius float64 `yaml:"hearing_radius"`
}

type TensionSpec struct {
	Initial        float64        `yaml:"initial"`
	DecayPerSecond float64        `yaml:"decay_per_second"`
	Thresholds     ThresholdsSpec `yaml:"thresholds"`
}

type ThresholdsSpec struct {
	Low    float64 `yaml:"low"`
	Medium float64 `yaml:"medium"`
	High   float64 `yaml:"high"`
}

type DirectorySpec struct {
	BudgetMS float64 `yaml:"budget_ms"`
	Seed     int64   `yaml:"seed"`
}

type DeescalationSpec struct {
	Range  float64 `yaml:"range"`
	Amount float64 `yaml:"amount"`
}

func LoadAISpec() (AISpec, error) {
	return LoadSpec[AISpec]("ai.yaml")
}

// FactionsSpec is factions.yaml.
type FactionsSpec struct {
	Factions map[string]FactionSpec `yaml:"factions"`
}

type FactionSpec struct {
	SpeedMultiplier      float64 `yaml:"speed_multiplier"`
	EscalationMultiplier float64 `yaml:"escalation_multiplier"`
	Relationship         float64 `yaml:"relationship"`
	// Jitter is the +/- fraction applied per NPC to speed and relationship.
	Jitter       float64    `yaml:"jitter"`
	Color        *YAMLColor `yaml:"color"`
	PolicyScript string     `yaml:"policy_script"`
}

func LoadFactionsSpec() (FactionsSpec, error) {
	return LoadSpec[FactionsSpec]("factions.yaml")
}

// CombatSpec is combat.yaml.
type CombatSpec struct {
	Projectiles map[string]ProjectileSpec `yaml:"projectiles"`
}

type ProjectileSpec struct {
	Speed       float64 `yaml:"speed"`
	Radius      float64 `yaml:"radius"`
	BlastRadius float64 `yaml:"blast_radius"`
	Tension     float64 `yaml:"tension"`
	Lifetime    float64 `yaml:"lifetime"`
}

func LoadCombatSpec() (CombatSpec, error) {
	return LoadSpec[CombatSpec]("combat.yaml")
}

type YAMLColor struct {
	color.Color
}

func (c *YAMLColor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string")
	}

	s := strings.TrimPrefix(value.Value, "#")

	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("invalid color format: %s", value.Value)
	}

	parse := func(start int) (uint8, error) {
		v, err := strconv.ParseUint(s[start:start+2], 16, 8)
		return uint8(v), err
	}

	r, err := parse(0)
	if err != nil {
		return err
	}
	g, err := parse(2)
	if err != nil {
		return err
	}
	b, err := parse(4)
	if err != nil {
		return err
	}

	a := uint8(255)
	if len(s) == 8 {
		a, err = parse(6)
		if err != nil {
			return err
		}
	}

	c.Color = color.NRGBA{R: r, G: g, B: b, A: a}
	return nil
}
