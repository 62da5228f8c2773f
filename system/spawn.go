package system

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/ai/directory"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/common"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// CrowdConfig describes the crowd laid out at the start of a run.
type CrowdConfig struct {
	Count       int
	RioterShare float64
	PoliceSquad int
	Center      mgl64.Vec3
	Radius      float64
	// PoliceLine is where the squad forms up, spaced along X.
	PoliceLine mgl64.Vec3
	Seed       int64
}

func DefaultCrowdConfig() CrowdConfig {
	return CrowdConfig{
		Count:       40,
		RioterShare: 0.2,
		PoliceSquad: 6,
		Center:      mgl64.Vec3{0, 0, 0},
		Radius:      22,
		PoliceLine:  mgl64.Vec3{0, 0, 30},
		Seed:        1,
	}
}

const (
	spawnSpacing     = 1.0
	spawnAttempts    = 200
	densityFrequency = 0.08
)

// Spawner places a crowd where the noise density is high and registers every
// body with the directory.
type Spawner struct {
	Layout   Layout
	Factions map[npc.Faction]FactionProfile
}

func NewSpawner(layout Layout, factions map[npc.Faction]FactionProfile) *Spawner {
	return &Spawner{Layout: layout, Factions: factions}
}

// Spawn adds cfg.Count crowd members plus the police squad. Ids start at 1;
// the squad takes the ids after the crowd.
func (s *Spawner) Spawn(world *World, dir *directory.Directory, cfg CrowdConfig) ([]*Body, error) {
	if cfg.Count < 0 || cfg.PoliceSquad < 0 {
		return nil, fmt.Errorf("spawn: negative crowd size")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	positions, err := s.crowdPositions(rng, cfg)
	if err != nil {
		return nil, err
	}
	factions := assignFactions(rng, cfg.Count, cfg.RioterShare)

	bodies := make([]*Body, 0, cfg.Count+cfg.PoliceSquad)
	for i, pos := range positions {
		b, err := s.add(world, dir, i+1, factions[i], pos, cfg.Seed)
		if err != nil {
			return bodies, err
		}
		bodies = append(bodies, b)
	}

	for i := 0; i < cfg.PoliceSquad; i++ {
		offset := (float64(i) - float64(cfg.PoliceSquad-1)/2) * 1.5
		pos := cfg.PoliceLine.Add(mgl64.Vec3{offset, 0, 0})
		if !s.Layout.Walkable(pos, npcRadius) {
			return bodies, fmt.Errorf("spawn: police line blocked at (%.1f, %.1f)", pos[0], pos[2])
		}
		b, err := s.add(world, dir, cfg.Count+i+1, npc.FactionPolice, pos, cfg.Seed)
		if err != nil {
			return bodies, err
		}
		bodies = append(bodies, b)
	}

	log.Printf("spawn: %d npcs (%d rioters, %d police)", len(bodies), countOf(factions, npc.FactionRioter), cfg.PoliceSquad)
	return bodies, nil
}

func (s *Spawner) add(world *World, dir *directory.Directory, id int, faction npc.Faction, pos mgl64.Vec3, seed int64) (*Body, error) {
	b, err := world.AddNPC(id, faction, pos)
	if err != nil {
		return nil, err
	}
	if _, err := dir.RegisterNPC(b, npc.WithAttributes(s.Attributes(faction, id, seed))); err != nil {
		world.RemoveNPC(id)
		return nil, err
	}
	return b, nil
}

// Attributes returns the faction traits for id with its jitter applied. The
// same id and seed always give the same result.
func (s *Spawner) Attributes(faction npc.Faction, id int, seed int64) npc.Attributes {
	p, ok := s.Factions[faction]
	if !ok {
		return npc.DefaultAttributes(faction)
	}
	a := p.Attributes
	if p.Jitter <= 0 {
		return a
	}
	r := rand.New(rand.NewSource(seed*7919 + int64(id)))
	a.SpeedMultiplier *= 1 + (r.Float64()*2-1)*p.Jitter
	a.Relationship += (r.Float64()*2 - 1) * p.Jitter * 20
	return a
}

// crowdPositions rejection-samples the disc around cfg.Center, keeping points
// where the noise density beats a uniform draw.
func (s *Spawner) crowdPositions(rng *rand.Rand, cfg CrowdConfig) ([]mgl64.Vec3, error) {
	noise := opensimplex.NewNormalized(cfg.Seed)
	out := make([]mgl64.Vec3, 0, cfg.Count)
	for attempts := 0; len(out) < cfg.Count; attempts++ {
		if attempts >= cfg.Count*spawnAttempts {
			return nil, fmt.Errorf("spawn: placed %d of %d npcs", len(out), cfg.Count)
		}
		angle := rng.Float64() * 2 * math.Pi
		dist := math.Sqrt(rng.Float64()) * cfg.Radius
		p := cfg.Center.Add(mgl64.Vec3{math.Cos(angle) * dist, 0, math.Sin(angle) * dist})
		if !s.Layout.Walkable(p, npcRadius) || crowded(out, p) {
			continue
		}
		if rng.Float64() > density(noise, p) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func density(noise opensimplex.Noise, p mgl64.Vec3) float64 {
	total, amplitude, maxVal, freq := 0.0, 1.0, 0.0, densityFrequency
	for i := 0; i < 3; i++ {
		total += noise.Eval2(p[0]*freq, p[2]*freq) * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		freq *= 2
	}
	// keep sparse areas reachable
	return 0.2 + 0.8*total/maxVal
}

func crowded(placed []mgl64.Vec3, p mgl64.Vec3) bool {
	for _, q := range placed {
		if common.FlatDistance(p, q) < spawnSpacing {
			return true
		}
	}
	return false
}

// assignFactions marks exactly round(count*share) members as rioters.
func assignFactions(rng *rand.Rand, count int, share float64) []npc.Faction {
	out := make([]npc.Faction, count)
	for i := range out {
		out[i] = npc.FactionCivilian
	}
	rioters := int(math.Round(float64(count) * common.Clamp(share, 0, 1)))
	for _, i := range rng.Perm(count)[:rioters] {
		out[i] = npc.FactionRioter
	}
	return out
}

func countOf(factions []npc.Faction, f npc.Faction) int {
	n := 0
	for _, x := range factions {
		if x == f {
			n++
		}
	}
	return n
}
