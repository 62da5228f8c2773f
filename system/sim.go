package system

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/milk9111/unrest/ai/directory"
	"github.com/milk9111/unrest/ai/fsm"
	"github.com/milk9111/unrest/ai/memory"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/ai/perception"
	"github.com/milk9111/unrest/ai/tension"
	"github.com/milk9111/unrest/common"
	"github.com/milk9111/unrest/component"
	"github.com/milk9111/unrest/prefabs"
)

// Sim is the headless game: physics, crowd AI, combat and missions driven
// from one frame loop.
type Sim struct {
	Settings  Settings
	World     *World
	Directory *directory.Directory
	Tension   *tension.Tension
	Field     *perception.Field
	Combat    *Combat
	Missions  *Missions
	Spawner   *Spawner

	// OnTransition, when set, sees every NPC state change after the mission
	// tracker has.
	OnTransition func(evt TransitionEvent)

	player    mgl64.Vec3
	time      float64
	events    EventQueue
	sightings []perception.Stimulus
}

// NewSim builds the square and spawns the crowd.
func NewSim(settings Settings, crowd CrowdConfig) (*Sim, error) {
	tn := tension.New(settings.InitialTension, settings.TensionDecay)
	tn.SetThresholds(settings.Thresholds)
	field := perception.NewField()
	world := NewWorld(DefaultLayout())

	s := &Sim{
		Settings: settings,
		World:    world,
		Tension:  tn,
		Field:    field,
		Missions: NewMissions(settings.Missions),
		Spawner:  NewSpawner(world.Layout, settings.Factions),
		player:   mgl64.Vec3{0, 0, 40},
	}

	s.Directory = directory.New(tn, directory.Config{
		Tuning:     settings.Tuning,
		Attributes: settings.attributes(),
		Policies:   settings.policies(),
		Source:     perception.Sources{field, perception.SourceFunc(s.visible)},
		Observer:   s.observe,
		Seed:       settings.Seed,
		Budget:     settings.Budget,
	})
	s.Combat = NewCombat(world, s.Directory, settings.Projectiles)
	s.Combat.Field = field
	world.OnAttack = s.onAttack

	if _, err := s.Spawner.Spawn(world, s.Directory, crowd); err != nil {
		return nil, fmt.Errorf("system: spawn crowd: %w", err)
	}
	return s, nil
}

func (s *Sim) Player() mgl64.Vec3 { return s.player }
func (s *Sim) Time() float64 { return s.time }

// SetPlayer moves the player. Non-finite positions are ignored.
func (s *Sim) SetPlayer(pos mgl64.Vec3) {
	if common.FiniteVec(pos) {
		s.player = common.Flat(pos)
	}
}

// Step advances the whole simulation by dt seconds.
func (s *Sim) Step(dt float64) {
	if !common.Finite(dt) || dt <= 0 {
		return
	}
	s.time += dt

	s.Combat.Apply(s.World.Step(dt))
	s.Combat.Update(dt)
	s.refreshSightings()
	s.Directory.Update(dt)
	s.Tension.Update(dt)
	s.Field.Update(dt)
	s.deescalate()

	for _, evt := range s.events.Drain() {
		te, ok := evt.Data.(TransitionEvent)
		if !ok {
			continue
		}
		s.Missions.OnTransition(te.From, te.To)
		if s.OnTransition != nil {
			s.OnTransition(te)
		}
	}
	s.Missions.Update(dt, s.player)
}

// deescalate lets the player's presence talk down everyone close by.
func (s *Sim) deescalate() {
	r, amount := s.Settings.DeescalationRange, s.Settings.DeescalationAmount
	if r <= 0 || amount <= 0 {
		return
	}
	s.Directory.Each(func(c *npc.Controller) {
		if common.FlatDistance(c.Agent().Position(), s.player) <= r {
			c.Persuade(amount)
		}
	})
}

// Sightings are remembered for a few AI ticks after they leave view.
const (
	playerSightIntensity     = 5.0
	projectileSightIntensity = 3.0
)

// visible is what anyone looking the right way can see this frame.
func (s *Sim) visible() []perception.Stimulus { return s.sightings }

// refreshSightings lists the player and every projectile in flight.
func (s *Sim) refreshSightings() {
	out := append(s.sightings[:0], perception.Stimulus{
		Category:  perception.CategoryVisual,
		Position:  s.player,
		Intensity: playerSightIntensity,
	})
	for _, p := range s.Combat.Projectiles() {
		if !p.Active {
			continue
		}
		out = append(out, perception.Stimulus{
			Category:  perception.CategoryVisual,
			Position:  p.Position,
			Intensity: projectileSightIntensity,
		})
	}
	s.sightings = out
}

func (s *Sim) observe(c *npc.Controller, from, to fsm.StateID) {
	if from == "" {
		return
	}
	s.events.Push(Event{Type: EventTransition, Data: TransitionEvent{NPC: c.ID(), From: from, To: to}})
}

// onAttack turns an NPC attack into a thrown stone, aimed at whatever it
// remembers seeing or straight ahead. Police attacks are melee only.
func (s *Sim) onAttack(b *Body) {
	s.Combat.Emitter.Emit(component.CombatEvent{
		Type:       component.EventAttack,
		AttackerID: b.ID(),
		Position:   b.Position(),
		Tension:    s.Tension.Value(),
	})
	if b.Faction() == npc.FactionPolice {
		return
	}

	pos := b.Position()
	dir := b.Forward()
	if ctrl, ok := s.Directory.Controller(b.ID()); ok {
		if e, ok := ctrl.Memory().BestEvent(memory.CategorySighting); ok {
			if d := common.Direction(pos, e.Position); d.Len() > 0 {
				dir = d
			}
		}
	}
	if s.throwFrom(ProjectileStone, pos, dir, OwnerNPC) != nil {
		log.Printf("combat: npc=%d could not throw", b.ID())
	}
}

// Throw launches a projectile from the player along dir.
func (s *Sim) Throw(kind ProjectileKind, dir mgl64.Vec3) (uuid.UUID, error) {
	return s.Combat.Spawn(kind, s.player, dir, OwnerPlayer)
}

func (s *Sim) throwFrom(kind ProjectileKind, pos, dir mgl64.Vec3, owner Owner) error {
	dir = common.Flat(dir)
	if dir.Len() == 0 {
		return fmt.Errorf("system: no throw direction")
	}
	// start outside the thrower's own body
	start := pos.Add(dir.Normalize().Mul(npcRadius + s.Combat.kinds[kind].Radius + 0.1))
	_, err := s.Combat.Spawn(kind, start, dir, owner)
	return err
}

// Command shouts cmd at every NPC within radius of the player and returns how
// many heard it.
func (s *Sim) Command(cmd npc.Command, radius float64) int {
	n := 0
	s.Directory.Each(func(c *npc.Controller) {
		if common.FlatDistance(c.Agent().Position(), s.player) <= radius {
			c.ListenToCommand(cmd)
			n++
		}
	})
	return n
}

// OrderPoliceFormation lines the police up across target, facing the crowd.
func (s *Sim) OrderPoliceFormation(target mgl64.Vec3) int {
	police := s.police()
	for i, c := range police {
		offset := (float64(i) - float64(len(police)-1)/2) * 1.5
		c.OrderFormation(target.Add(mgl64.Vec3{offset, 0, 0}))
	}
	return len(police)
}

func (s *Sim) OrderPoliceCharge() int {
	police := s.police()
	for _, c := range police {
		c.OrderCharge()
	}
	return len(police)
}

func (s *Sim) ClearPoliceFormation() {
	for _, c := range s.police() {
		c.ClearFormation()
	}
}

func (s *Sim) police() []*npc.Controller {
	var out []*npc.Controller
	s.Directory.Each(func(c *npc.Controller) {
		if c.Faction() == npc.FactionPolice {
			out = append(out, c)
		}
	})
	return out
}

// Reload applies a changed prefab file. Run it on the frame goroutine.
func (s *Sim) Reload(change prefabs.Change) error {
	switch {
	case change.Kind == prefabs.ChangeScript || change.Name == "factions.yaml":
		spec, err := prefabs.LoadFactionsSpec()
		if err != nil {
			return err
		}
		factions, err := FactionsFromSpec(spec)
		if err != nil {
			return err
		}
		s.Settings.Factions = factions
		s.Spawner.Factions = factions
		s.Directory.SetPolicies(s.Settings.policies())
	case change.Name == "ai.yaml":
		spec, err := prefabs.LoadAISpec()
		if err != nil {
			return err
		}
		s.Settings.ApplyAISpec(spec)
		if err := s.Directory.SetTuning(s.Settings.Tuning); err != nil {
			return err
		}
		s.Tension.SetThresholds(s.Settings.Thresholds)
		s.Tension.SetDecay(s.Settings.TensionDecay)
	case change.Name == "combat.yaml":
		spec, err := prefabs.LoadCombatSpec()
		if err != nil {
			return err
		}
		s.Settings.Projectiles = ProjectilesFromSpec(spec)
		s.Combat.SetKinds(s.Settings.Projectiles)
	case strings.HasSuffix(change.Name, ".yaml"):
		log.Printf("prefabs: %s changed, restart to apply", change.Name)
		return nil
	default:
		return nil
	}
	log.Printf("prefabs: reloaded %s", change.Name)
	return nil
}

// Stats is a one-frame summary of the crowd.
type Stats struct {
	Time     float64
	Tension  float64
	Level    tension.Level
	States   map[fsm.StateID]int
	Pacified int
	Mission  string
	Victory  bool
}

func (s *Sim) Stats() Stats {
	st := Stats{
		Time:     s.time,
		Tension:  s.Tension.Value(),
		Level:    s.Tension.Level(),
		States:   s.Directory.StateCounts(),
		Pacified: s.Missions.Pacified(),
		Victory:  s.Missions.Victory(),
	}
	if m, ok := s.Missions.Current(); ok {
		st.Mission = fmt.Sprintf("%s: %s (%.0f/%.0f)", m.Kind, m.Description, m.CurrentAmount, m.TargetAmount)
	}
	return st
}
