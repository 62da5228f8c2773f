package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/ai/memory"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/common"
	"github.com/milk9111/unrest/component"
	"github.com/milk9111/unrest/prefabs"
)

func newTestSim(t *testing.T) *Sim {
	t.Helper()
	cfg := DefaultCrowdConfig()
	cfg.Count = 10
	cfg.Seed = 2
	s, err := NewSim(DefaultSettings(), cfg)
	if err != nil {
		t.Fatalf("NewSim: %v", err)
	}
	return s
}

func firstOf(t *testing.T, s *Sim, f npc.Faction) *npc.Controller {
	t.Helper()
	var found *npc.Controller
	s.Directory.Each(func(c *npc.Controller) {
		if found == nil && c.Faction() == f {
			found = c
		}
	})
	if found == nil {
		t.Fatalf("no %s in the crowd", f)
	}
	return found
}

func TestNewSimSpawnsCrowd(t *testing.T) {
	s := newTestSim(t)
	if s.Directory.Len() != 16 || s.World.Len() != 16 {
		t.Fatalf("expected 16 npcs, got %d controllers and %d bodies", s.Directory.Len(), s.World.Len())
	}
	st := s.Stats()
	total := 0
	for _, n := range st.States {
		total += n
	}
	if total != 16 || st.States[npc.StateIdle] != 16 {
		t.Fatalf("everyone should start idle, got %v", st.States)
	}
	if st.Tension != 10 || st.Mission == "" || st.Victory {
		t.Fatalf("unexpected stats %+v", st)
	}

	cfg := DefaultCrowdConfig()
	cfg.PoliceLine = mgl64.Vec3{0, 0, -45}
	if _, err := NewSim(DefaultSettings(), cfg); err == nil {
		t.Fatalf("expected spawn error")
	}
}

func TestSimStepTime(t *testing.T) {
	s := newTestSim(t)
	for i := 0; i < 60; i++ {
		s.Step(1.0 / 60)
	}
	s.Step(-1)
	if s.Time() < 0.99 || s.Time() > 1.01 {
		t.Fatalf("expected one second of sim time, got %v", s.Time())
	}
	if c := firstOf(t, s, npc.FactionCivilian); c.Ticks() == 0 {
		t.Fatalf("controllers should have ticked")
	}
}

func TestProximityDeescalation(t *testing.T) {
	s := newTestSim(t)
	c := firstOf(t, s, npc.FactionCivilian)
	before := c.Relationship()

	s.SetPlayer(c.Agent().Position())
	s.Step(1.0 / 60)
	if got := c.Relationship(); got != before+0.5 {
		t.Fatalf("expected relationship %v, got %v", before+0.5, got)
	}
}

func TestPacifiedRiotReachesMissions(t *testing.T) {
	s := newTestSim(t)
	c := firstOf(t, s, npc.FactionCivilian)

	var seen []TransitionEvent
	s.OnTransition = func(evt TransitionEvent) { seen = append(seen, evt) }

	c.OrderCharge()
	for i := 0; i < 3; i++ {
		c.ListenToCommand(npc.CommandCalmDown)
	}
	if c.State() != npc.StateCalm {
		t.Fatalf("expected CALM, got %s", c.State())
	}
	s.Step(1.0 / 60)
	if s.Missions.Pacified() != 1 {
		t.Fatalf("expected one pacified riot, got %d", s.Missions.Pacified())
	}
	if len(seen) < 2 || seen[0].To != npc.StateRiot || seen[1].From != npc.StateRiot {
		t.Fatalf("unexpected transitions %+v", seen)
	}
}

func TestRiotingCivilianThrowsStone(t *testing.T) {
	s := newTestSim(t)
	c := firstOf(t, s, npc.FactionCivilian)
	var attacks []component.CombatEvent
	s.Combat.Emitter.Subscribe(func(evt component.CombatEvent) {
		if evt.Type == component.EventAttack {
			attacks = append(attacks, evt)
		}
	})

	c.OrderCharge()
	if len(attacks) != 1 || attacks[0].AttackerID != c.ID() {
		t.Fatalf("expected one attack from %d, got %+v", c.ID(), attacks)
	}
	ps := s.Combat.Projectiles()
	if len(ps) != 1 || ps[0].Kind != ProjectileStone || ps[0].Owner != OwnerNPC {
		t.Fatalf("expected a thrown stone, got %+v", ps)
	}
}

func TestPoliceTactics(t *testing.T) {
	s := newTestSim(t)
	if n := s.OrderPoliceFormation(mgl64.Vec3{0, 0, 25}); n != 6 {
		t.Fatalf("expected 6 officers, got %d", n)
	}
	if got := s.Stats().States[npc.StateFormation]; got != 6 {
		t.Fatalf("expected 6 in formation, got %d", got)
	}
	s.ClearPoliceFormation()
	if got := s.Stats().States[npc.StateIdle]; got != 16 {
		t.Fatalf("expected everyone idle after clearing, got %d", got)
	}

	s.OrderPoliceCharge()
	if got := s.Stats().States[npc.StateRiot]; got != 6 {
		t.Fatalf("expected the squad to charge, got %d", got)
	}
	if len(s.Combat.Projectiles()) != 0 {
		t.Fatalf("police do not throw")
	}
}

func TestPlayerThrowRaisesTension(t *testing.T) {
	s := newTestSim(t)
	id, err := s.Throw(ProjectileMolotov, mgl64.Vec3{0, 0, -1})
	if err != nil {
		t.Fatalf("Throw: %v", err)
	}
	for i := 0; i < 5*60; i++ {
		s.Step(1.0 / 60)
	}
	for _, p := range s.Combat.Projectiles() {
		if p.ID == id {
			t.Fatalf("molotov should have landed")
		}
	}
	if got := s.Tension.Value(); got < 15 {
		t.Fatalf("expected the molotov to raise tension, got %v", got)
	}
}

func TestCommandReachesNearbyNPCs(t *testing.T) {
	s := newTestSim(t)
	c := firstOf(t, s, npc.FactionCivilian)
	before := c.Relationship()
	s.SetPlayer(c.Agent().Position())
	if n := s.Command(npc.CommandInsult, 0.1); n < 1 {
		t.Fatalf("expected at least one listener, got %d", n)
	}
	if got := c.Relationship(); got != before-30 {
		t.Fatalf("expected insult to cost 30, got %v", got-before)
	}
	s.SetPlayer(mgl64.Vec3{0, 0, 500})
	if n := s.Command(npc.CommandInsult, 1); n != 0 {
		t.Fatalf("nobody should hear from out here, got %d", n)
	}
}

func TestReload(t *testing.T) {
	s := newTestSim(t)
	dir := t.TempDir()
	prev := prefabs.Dir
	prefabs.Dir = dir
	t.Cleanup(func() { prefabs.Dir = prev })

	ai := []byte("tick_interval: 0.2\ntension:\n  decay_per_second: 1\n")
	if err := os.WriteFile(filepath.Join(dir, "ai.yaml"), ai, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(prefabs.Change{Name: "ai.yaml", Kind: prefabs.ChangeSpec}); err != nil {
		t.Fatalf("Reload ai.yaml: %v", err)
	}
	if s.Settings.Tuning.TickInterval != 0.2 {
		t.Fatalf("expected tick interval 0.2, got %v", s.Settings.Tuning.TickInterval)
	}
	s.Tension.Set(50)
	s.Tension.Update(1)
	if got := s.Tension.Value(); got != 49 {
		t.Fatalf("expected the new decay rate, got %v", got)
	}

	if err := s.Reload(prefabs.Change{Name: "rioter.tengo", Kind: prefabs.ChangeScript}); err != nil {
		t.Fatalf("Reload script: %v", err)
	}
	if s.Settings.Factions[npc.FactionRioter].Policy == nil {
		t.Fatalf("expected the rioter policy after reload")
	}
	if err := s.Reload(prefabs.Change{Name: "missions.yaml", Kind: prefabs.ChangeSpec}); err != nil {
		t.Fatalf("missions reload should be deferred, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "combat.yaml"), []byte("projectiles: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(prefabs.Change{Name: "combat.yaml", Kind: prefabs.ChangeSpec}); err == nil {
		t.Fatalf("expected broken combat.yaml to fail")
	}
	if len(s.Settings.Projectiles) != 3 {
		t.Fatalf("a failed reload must keep the old tuning")
	}
}

func TestRioterRemembersSeeingPlayer(t *testing.T) {
	s := newTestSim(t)
	s.World.OnAttack = nil
	c := firstOf(t, s, npc.FactionCivilian)
	b, ok := s.World.Body(c.ID())
	if !ok {
		t.Fatalf("no body for %d", c.ID())
	}

	player := b.Position().Add(mgl64.Vec3{0, 0, 5})
	s.SetPlayer(player)
	b.LookAt(player)
	c.OrderCharge()

	s.Step(0.1)
	seen, ok := c.Memory().BestEvent(memory.CategorySighting)
	if !ok {
		t.Fatalf("expected a sighting in memory")
	}
	if common.FlatDistance(seen.Position, player) > 1e-9 {
		t.Fatalf("expected the sighting at the player %v, got %v", player, seen.Position)
	}

	s.SetPlayer(b.Position().Add(mgl64.Vec3{0, 0, -40}))
	for i := 0; i < 10; i++ {
		s.Step(0.1)
	}
	if c.Memory().HasEvent(memory.CategorySighting) {
		t.Fatalf("sighting should fade once the player is out of view")
	}
}
