package system

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/ai/directory"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/ai/tension"
	"github.com/milk9111/unrest/common"
)

func spawnCrowd(t *testing.T, cfg CrowdConfig) ([]*Body, *directory.Directory) {
	t.Helper()
	world := NewWorld(DefaultLayout())
	dir := directory.New(tension.New(0, 0), directory.DefaultConfig())
	s := NewSpawner(world.Layout, DefaultSettings().Factions)
	bodies, err := s.Spawn(world, dir, cfg)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	return bodies, dir
}

func TestSpawnFactionSplit(t *testing.T) {
	cfg := DefaultCrowdConfig()
	cfg.Count = 20
	cfg.PoliceSquad = 4
	cfg.Seed = 3

	bodies, dir := spawnCrowd(t, cfg)
	if len(bodies) != 24 || dir.Len() != 24 {
		t.Fatalf("expected 24 npcs, got %d bodies and %d controllers", len(bodies), dir.Len())
	}

	counts := map[npc.Faction]int{}
	layout := DefaultLayout()
	for i, b := range bodies {
		counts[b.Faction()]++
		if b.ID() != i+1 {
			t.Fatalf("expected sequential ids, got %d at %d", b.ID(), i)
		}
		if !layout.Walkable(b.Position(), 0) {
			t.Fatalf("npc %d spawned inside scenery at %v", b.ID(), b.Position())
		}
		for _, other := range bodies[:i] {
			if common.FlatDistance(b.Position(), other.Position()) < spawnSpacing-1e-9 {
				t.Fatalf("npcs %d and %d overlap", b.ID(), other.ID())
			}
		}
	}
	if counts[npc.FactionRioter] != 4 || counts[npc.FactionCivilian] != 16 || counts[npc.FactionPolice] != 4 {
		t.Fatalf("unexpected split %v", counts)
	}
	for _, b := range bodies[20:] {
		if b.Faction() != npc.FactionPolice {
			t.Fatalf("police should take the last ids, got %s for %d", b.Faction(), b.ID())
		}
	}
}

func TestSpawnIsDeterministic(t *testing.T) {
	cfg := DefaultCrowdConfig()
	cfg.Count = 15
	a, _ := spawnCrowd(t, cfg)
	b, _ := spawnCrowd(t, cfg)
	for i := range a {
		if a[i].Position() != b[i].Position() || a[i].Faction() != b[i].Faction() {
			t.Fatalf("npc %d differs between runs", i+1)
		}
	}

	cfg.Seed = 99
	c, _ := spawnCrowd(t, cfg)
	same := true
	for i := range a {
		if a[i].Position() != c[i].Position() {
			same = false
		}
	}
	if same {
		t.Fatalf("a different seed should move the crowd")
	}
}

func TestSpawnErrors(t *testing.T) {
	world := NewWorld(DefaultLayout())
	dir := directory.New(tension.New(0, 0), directory.DefaultConfig())
	s := NewSpawner(world.Layout, nil)

	cfg := DefaultCrowdConfig()
	cfg.Count = -1
	if _, err := s.Spawn(world, dir, cfg); err == nil {
		t.Fatalf("expected negative size error")
	}

	cfg = DefaultCrowdConfig()
	cfg.Count = 0
	cfg.PoliceLine = mgl64.Vec3{0, 0, -45}
	if _, err := s.Spawn(world, dir, cfg); err == nil {
		t.Fatalf("expected blocked police line error")
	}
}

func TestAttributesJitter(t *testing.T) {
	s := NewSpawner(DefaultLayout(), map[npc.Faction]FactionProfile{
		npc.FactionCivilian: {Attributes: npc.DefaultAttributes(npc.FactionCivilian), Jitter: 0.1},
		npc.FactionPolice:   {Attributes: npc.DefaultAttributes(npc.FactionPolice)},
	})
	base := npc.DefaultAttributes(npc.FactionCivilian)

	varied := false
	for id := 1; id <= 50; id++ {
		a := s.Attributes(npc.FactionCivilian, id, 1)
		if a != s.Attributes(npc.FactionCivilian, id, 1) {
			t.Fatalf("jitter must be deterministic per id")
		}
		if a.SpeedMultiplier < base.SpeedMultiplier*0.9 || a.SpeedMultiplier > base.SpeedMultiplier*1.1 {
			t.Fatalf("speed %v outside jitter band", a.SpeedMultiplier)
		}
		if a.Relationship < base.Relationship-2 || a.Relationship > base.Relationship+2 {
			t.Fatalf("relationship %v outside jitter band", a.Relationship)
		}
		if a.EscalationMultiplier != base.EscalationMultiplier {
			t.Fatalf("escalation multiplier must not be jittered")
		}
		if a != base {
			varied = true
		}
	}
	if !varied {
		t.Fatalf("expected some variation")
	}
	if got := s.Attributes(npc.FactionPolice, 3, 1); got != npc.DefaultAttributes(npc.FactionPolice) {
		t.Fatalf("zero jitter should keep the faction traits, got %+v", got)
	}
	if got := s.Attributes(npc.FactionRioter, 3, 1); got != npc.DefaultAttributes(npc.FactionRioter) {
		t.Fatalf("unknown profile should fall back to defaults, got %+v", got)
	}
}
