package system

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/milk9111/unrest/ai/directory"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/ai/perception"
	"github.com/milk9111/unrest/ai/tension"
	"github.com/milk9111/unrest/common"
	"github.com/milk9111/unrest/component"
)

// ProjectileKind is what was thrown.
type ProjectileKind string

const (
	ProjectileMolotov ProjectileKind = "MOLOTOV"
	ProjectileStone   ProjectileKind = "STONE"
	ProjectileTeargas ProjectileKind = "TEARGAS"
)

// Owner is who threw a projectile.
type Owner string

const (
	OwnerPlayer Owner = "PLAYER"
	OwnerNPC    Owner = "NPC"
)

// ProjectileTuning describes one projectile kind.
type ProjectileTuning struct {
	Speed       float64
	Radius      float64
	BlastRadius float64
	// Tension is added to the crowd tension on impact.
	Tension  float64
	Lifetime float64
}

func DefaultProjectiles() map[ProjectileKind]ProjectileTuning {
	return map[ProjectileKind]ProjectileTuning{
		ProjectileMolotov: {Speed: 12, Radius: 0.3, BlastRadius: 6, Tension: 10, Lifetime: 4},
		ProjectileStone:   {Speed: 15, Radius: 0.2, BlastRadius: 1.5, Tension: 3, Lifetime: 3},
		ProjectileTeargas: {Speed: 10, Radius: 0.3, BlastRadius: 8, Tension: 5, Lifetime: 5},
	}
}

// Projectile is one thrown object.
type Projectile struct {
	ID       uuid.UUID
	Kind     ProjectileKind
	Owner    Owner
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Active   bool

	age float64
}

// Combat tracks projectiles and turns their impacts into tension and
// explosion broadcasts.
type Combat struct {
	Emitter component.CombatEventEmitter
	// Field receives a loud audio stimulus for every impact.
	Field *perception.Field
	// IDSource feeds projectile ids. Nil uses crypto randomness.
	IDSource io.Reader

	world   *World
	dir     *directory.Directory
	tension *tension.Tension
	kinds   map[ProjectileKind]ProjectileTuning

	projectiles map[uuid.UUID]*Projectile
}

func NewCombat(world *World, dir *directory.Directory, kinds map[ProjectileKind]ProjectileTuning) *Combat {
	if len(kinds) == 0 {
		kinds = DefaultProjectiles()
	}
	return &Combat{
		world:       world,
		dir:         dir,
		tension:     dir.Tension(),
		kinds:       kinds,
		projectiles: map[uuid.UUID]*Projectile{},
	}
}

// SetKinds swaps the projectile tuning, as a hot reload does.
func (c *Combat) SetKinds(kinds map[ProjectileKind]ProjectileTuning) {
	if len(kinds) > 0 {
		c.kinds = kinds
	}
}

func (c *Combat) newID() (uuid.UUID, error) {
	if c.IDSource != nil {
		return uuid.NewRandomFromReader(c.IDSource)
	}
	return uuid.NewRandom()
}

// Spawn throws a projectile of kind from pos along dir.
func (c *Combat) Spawn(kind ProjectileKind, pos, dir mgl64.Vec3, owner Owner) (uuid.UUID, error) {
	t, ok := c.kinds[kind]
	if !ok {
		return uuid.Nil, fmt.Errorf("combat: unknown projectile kind %q", kind)
	}
	heading := common.Flat(dir)
	if heading.Len() == 0 || !common.FiniteVec(pos) || !common.FiniteVec(heading) {
		return uuid.Nil, fmt.Errorf("combat: bad launch pos=%v dir=%v", pos, dir)
	}
	heading = heading.Normalize()

	id, err := c.newID()
	if err != nil {
		return uuid.Nil, fmt.Errorf("combat: projectile id: %w", err)
	}
	vel := heading.Mul(t.Speed)
	if c.world != nil {
		if err := c.world.LaunchProjectile(id, pos, vel, t.Radius); err != nil {
			return uuid.Nil, err
		}
	}
	c.projectiles[id] = &Projectile{
		ID:       id,
		Kind:     kind,
		Owner:    owner,
		Position: pos,
		Velocity: vel,
		Active:   true,
	}
	log.Printf("combat: spawned %s %s at (%.1f, %.1f)", kind, id, pos[0], pos[2])
	c.Emitter.Emit(component.CombatEvent{
		Type:       component.EventLaunch,
		Projectile: id.String(),
		Kind:       string(kind),
		Position:   pos,
		Tension:    c.tension.Value(),
	})
	return id, nil
}

// HandleImpact lands projectile id at pos: it is deactivated, tension rises
// by the kind's amount and an explosion is broadcast in the blast radius.
// Unknown or already landed projectiles are ignored.
func (c *Combat) HandleImpact(id uuid.UUID, pos mgl64.Vec3) bool {
	p, ok := c.projectiles[id]
	if !ok || !p.Active {
		return false
	}
	if !common.FiniteVec(pos) {
		pos = p.Position
	}
	p.Active = false
	p.Position = pos
	delete(c.projectiles, id)
	if c.world != nil {
		c.world.RemoveProjectile(id)
	}

	t := c.kinds[p.Kind]
	level := c.tension.Add(t.Tension)
	notified := c.dir.BroadcastEvent(npc.SenseExplosion, pos, t.BlastRadius)
	if c.Field != nil {
		c.Field.Emit(perception.Stimulus{
			Category:  perception.CategoryAudio,
			Position:  pos,
			Intensity: t.Tension,
			Radius:    t.BlastRadius * 4,
		}, 1)
	}
	log.Printf("combat: %s impact at (%.1f, %.1f) npcs=%d tension=%.1f", p.Kind, pos[0], pos[2], notified, level)

	c.Emitter.Emit(component.CombatEvent{
		Type:       component.EventImpact,
		Projectile: id.String(),
		Kind:       string(p.Kind),
		Position:   pos,
		Tension:    level,
	})
	return true
}

// HitNPC is a direct hit: the NPC gets its own explosion notification
// before the projectile lands on it.
func (c *Combat) HitNPC(npcID int, id uuid.UUID) bool {
	p, ok := c.projectiles[id]
	if !ok || !p.Active {
		return false
	}
	ctrl, ok := c.dir.Controller(npcID)
	if !ok {
		return false
	}
	pos := ctrl.Agent().Position()
	ctrl.OnSensoryInput(npc.SenseExplosion, pos)
	c.Emitter.Emit(component.CombatEvent{
		Type:       component.EventHit,
		Projectile: id.String(),
		Kind:       string(p.Kind),
		TargetID:   npcID,
		Position:   pos,
		Tension:    c.tension.Value(),
	})
	return c.HandleImpact(id, pos)
}

// Deescalate lowers the crowd tension and returns the new value.
func (c *Combat) Deescalate(amount float64) float64 {
	if !common.Finite(amount) || amount <= 0 {
		return c.tension.Value()
	}
	level := c.tension.Add(-amount)
	c.Emitter.Emit(component.CombatEvent{Type: component.EventDeescalate, Tension: level})
	return level
}

// Apply feeds physics impacts into the combat rules.
func (c *Combat) Apply(events []Event) {
	for _, evt := range events {
		if evt.Type != EventImpact {
			continue
		}
		imp, ok := evt.Data.(ImpactEvent)
		if !ok {
			continue
		}
		if imp.HitNPC && c.HitNPC(imp.NPC, imp.Projectile) {
			continue
		}
		c.HandleImpact(imp.Projectile, imp.Position)
	}
}

// Update refreshes projectile positions from physics and lands the ones
// whose lifetime ran out.
func (c *Combat) Update(dt float64) {
	if !common.Finite(dt) || dt <= 0 {
		return
	}
	var expired []uuid.UUID
	for id, p := range c.projectiles {
		p.age += dt
		if c.world != nil {
			if pos, ok := c.world.ProjectilePosition(id); ok {
				p.Position = pos
			}
		} else {
			p.Position = p.Position.Add(p.Velocity.Mul(dt))
		}
		if p.age >= c.kinds[p.Kind].Lifetime {
			expired = append(expired, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].String() < expired[j].String() })
	for _, id := range expired {
		c.HandleImpact(id, c.projectiles[id].Position)
	}
}

// Projectiles returns the in-flight projectiles.
func (c *Combat) Projectiles() []Projectile {
	out := make([]Projectile, 0, len(c.projectiles))
	for _, p := range c.projectiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
