package system

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
	"time"

	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/ai/perception"
	"github.com/milk9111/unrest/ai/tension"
	"github.com/milk9111/unrest/prefabs"
	"golang.org/x/image/colornames"
)

// FactionProfile is everything the crowd needs to know about one faction.
type FactionProfile struct {
	Attributes npc.Attributes
	// Jitter is the +/- fraction applied per NPC to its speed and
	// relationship.
	Jitter float64
	Color  color.Color
	Policy npc.Policy
}

// Settings is the resolved prefab tuning for one simulation.
type Settings struct {
	Tuning         npc.Tuning
	Thresholds     tension.Thresholds
	InitialTension float64
	TensionDecay   float64
	Budget         time.Duration
	Seed           int64

	DeescalationRange  float64
	DeescalationAmount float64

	Factions    map[npc.Faction]FactionProfile
	Projectiles map[ProjectileKind]ProjectileTuning
	Missions    []Mission
}

func DefaultSettings() Settings {
	factions := map[npc.Faction]FactionProfile{}
	for _, f := range []npc.Faction{npc.FactionCivilian, npc.FactionRioter, npc.FactionPolice} {
		factions[f] = FactionProfile{Attributes: npc.DefaultAttributes(f), Color: defaultFactionColor(f)}
	}
	return Settings{
		Tuning:             npc.DefaultTuning(),
		Thresholds:         tension.DefaultThresholds(),
		InitialTension:     10,
		TensionDecay:       0.2,
		Budget:             5 * time.Millisecond,
		Seed:               1,
		DeescalationRange:  3,
		DeescalationAmount: 0.5,
		Factions:           factions,
		Projectiles:        DefaultProjectiles(),
		Missions:           DefaultMissions(),
	}
}

// LoadSettings reads every prefab spec and resolves it.
func LoadSettings() (Settings, error) {
	s := DefaultSettings()

	ai, err := prefabs.LoadAISpec()
	if err != nil {
		return s, err
	}
	s.ApplyAISpec(ai)

	factions, err := prefabs.LoadFactionsSpec()
	if err != nil {
		return s, err
	}
	if s.Factions, err = FactionsFromSpec(factions); err != nil {
		return s, err
	}

	combat, err := prefabs.LoadCombatSpec()
	if err != nil {
		return s, err
	}
	s.Projectiles = ProjectilesFromSpec(combat)

	missions, err := prefabs.LoadMissionsSpec()
	if err != nil {
		return s, err
	}
	if s.Missions, err = MissionsFromSpec(missions); err != nil {
		return s, err
	}
	return s, nil
}

// ApplyAISpec copies ai.yaml onto s. Zero values keep the current setting.
func (s *Settings) ApplyAISpec(spec prefabs.AISpec) {
	s.Tuning = TuningFromSpec(spec, s.Tuning)

	th := spec.Tension.Thresholds
	s.Thresholds = tension.Thresholds{
		Low:    pick(th.Low, s.Thresholds.Low),
		Medium: pick(th.Medium, s.Thresholds.Medium),
		High:   pick(th.High, s.Thresholds.High),
	}
	s.InitialTension = pick(spec.Tension.Initial, s.InitialTension)
	s.TensionDecay = pick(spec.Tension.DecayPerSecond, s.TensionDecay)
	if spec.Directory.BudgetMS > 0 {
		s.Budget = time.Duration(spec.Directory.BudgetMS * float64(time.Millisecond))
	}
	if spec.Directory.Seed != 0 {
		s.Seed = spec.Directory.Seed
	}
	s.DeescalationRange = pick(spec.Deescalation.Range, s.DeescalationRange)
	s.DeescalationAmount = pick(spec.Deescalation.Amount, s.DeescalationAmount)
}

// TuningFromSpec overlays the non-zero values of spec on base.
func TuningFromSpec(spec prefabs.AISpec, base npc.Tuning) npc.Tuning {
	t := base
	t.TickInterval = pick(spec.TickInterval, t.TickInterval)

	m := spec.Movement
	t.WalkSpeed = pick(m.WalkSpeed, t.WalkSpeed)
	t.RunSpeed = pick(m.RunSpeed, t.RunSpeed)
	t.WanderRadius = pick(m.WanderRadius, t.WanderRadius)
	t.WanderChance = pick(m.WanderChance, t.WanderChance)
	t.ArriveDistance = pick(m.ArriveDistance, t.ArriveDistance)

	f := spec.Flee
	t.SafetyRadius = pick(f.SafetyRadius, t.SafetyRadius)
	t.ThreatStrength = pick(f.ThreatStrength, t.ThreatStrength)
	t.NoiseStrength = pick(f.NoiseStrength, t.NoiseStrength)
	t.AudioThreatIntensity = pick(f.AudioThreatIntensity, t.AudioThreatIntensity)

	t.CalmCooldown = pick(spec.CalmCooldown, t.CalmCooldown)
	t.RiotMoveChance = pick(spec.Riot.MoveChance, t.RiotMoveChance)
	t.AttackCooldown = pick(spec.Riot.AttackCooldown, t.AttackCooldown)

	t.FormationGain = pick(spec.Formation.Gain, t.FormationGain)
	t.FormationMaxSpeed = pick(spec.Formation.MaxSpeed, t.FormationMaxSpeed)
	t.FormationArrive = pick(spec.Formation.Arrive, t.FormationArrive)

	t.HighEscalationChance = pick(spec.Escalation.HighChance, t.HighEscalationChance)
	t.MediumEscalationChance = pick(spec.Escalation.MediumChance, t.MediumEscalationChance)

	r := spec.Relationship
	t.CalmDownDelta = pick(r.CalmDown, t.CalmDownDelta)
	t.InsultDelta = pick(r.Insult, t.InsultDelta)
	t.CalmRelationship = pick(r.CalmAt, t.CalmRelationship)
	t.RiotRelationship = pick(r.RiotAt, t.RiotRelationship)

	t.MemoryDecay = pick(spec.MemoryDecay, t.MemoryDecay)
	t.Perception = perception.Config{
		ViewDistance:  pick(spec.Perception.ViewDistance, t.Perception.ViewDistance),
		FieldOfView:   pick(spec.Perception.FieldOfView, t.Perception.FieldOfView),
		HearingRadius: pick(spec.Perception.HearingRadius, t.Perception.HearingRadius),
	}
	return t
}

// FactionsFromSpec resolves factions.yaml. Faction values are taken
// literally; policy scripts are compiled here.
func FactionsFromSpec(spec prefabs.FactionsSpec) (map[npc.Faction]FactionProfile, error) {
	out := make(map[npc.Faction]FactionProfile, len(spec.Factions))
	names := make([]string, 0, len(spec.Factions))
	for name := range spec.Factions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fs := spec.Factions[name]
		faction := npc.Faction(strings.ToLower(name))
		p := FactionProfile{
			Attributes: npc.Attributes{
				SpeedMultiplier:      fs.SpeedMultiplier,
				EscalationMultiplier: fs.EscalationMultiplier,
				Relationship:         fs.Relationship,
			},
			Jitter: fs.Jitter,
			Color:  defaultFactionColor(faction),
		}
		if fs.Color != nil && fs.Color.Color != nil {
			p.Color = fs.Color.Color
		}
		if fs.PolicyScript != "" {
			src, err := prefabs.LoadScript(fs.PolicyScript)
			if err != nil {
				return nil, fmt.Errorf("system: faction %s: %w", name, err)
			}
			policy, err := npc.NewScriptPolicy(fs.PolicyScript, src)
			if err != nil {
				return nil, fmt.Errorf("system: faction %s: %w", name, err)
			}
			p.Policy = policy
		}
		out[faction] = p
	}
	return out, nil
}

// ProjectilesFromSpec resolves combat.yaml. Kind names are upper-cased.
func ProjectilesFromSpec(spec prefabs.CombatSpec) map[ProjectileKind]ProjectileTuning {
	defaults := DefaultProjectiles()
	out := make(map[ProjectileKind]ProjectileTuning, len(spec.Projectiles))
	for name, ps := range spec.Projectiles {
		kind := ProjectileKind(strings.ToUpper(name))
		base := defaults[kind]
		out[kind] = ProjectileTuning{
			Speed:       pick(ps.Speed, base.Speed),
			Radius:      pick(ps.Radius, base.Radius),
			BlastRadius: pick(ps.BlastRadius, base.BlastRadius),
			Tension:     pick(ps.Tension, base.Tension),
			Lifetime:    pick(ps.Lifetime, base.Lifetime),
		}
	}
	return out
}

func (s Settings) attributes() map[npc.Faction]npc.Attributes {
	out := make(map[npc.Faction]npc.Attributes, len(s.Factions))
	for f, p := range s.Factions {
		out[f] = p.Attributes
	}
	return out
}

func (s Settings) policies() map[npc.Faction]npc.Policy {
	out := make(map[npc.Faction]npc.Policy, len(s.Factions))
	for f, p := range s.Factions {
		if p.Policy != nil {
			out[f] = p.Policy
		}
	}
	return out
}

func defaultFactionColor(f npc.Faction) color.Color {
	switch f {
	case npc.FactionCivilian:
		return colornames.Cornflowerblue
	case npc.FactionRioter:
		return colornames.Orangered
	case npc.FactionPolice:
		return colornames.Navy
	default:
		return colornames.Gray
	}
}

func pick(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
