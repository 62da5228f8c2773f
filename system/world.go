package system

import (
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/common"
)

const (
	collisionTypeNPC cp.CollisionType = iota + 1
	collisionTypeSolid
	collisionTypeProjectile
)

const (
	npcRadius = 0.35
	npcMass   = 70.0
)

// Obstacle is a static footprint on the ground plane. A positive Radius makes
// a round obstacle, otherwise HalfX/HalfZ describe a box.
type Obstacle struct {
	Name   string
	Center mgl64.Vec3
	Radius float64
	HalfX  float64
	HalfZ  float64
}

// Contains reports whether p lies inside the obstacle, padded by margin.
func (o Obstacle) Contains(p mgl64.Vec3, margin float64) bool {
	dx, dz := p[0]-o.Center[0], p[2]-o.Center[2]
	if o.Radius > 0 {
		r := o.Radius + margin
		return dx*dx+dz*dz <= r*r
	}
	return math.Abs(dx) <= o.HalfX+margin && math.Abs(dz) <= o.HalfZ+margin
}

// Layout is the walled square the crowd lives in.
type Layout struct {
	HalfExtent float64
	Obstacles  []Obstacle
}

// DefaultLayout is a cathedral square: the cathedral footprint on the north
// side and a fountain off centre.
func DefaultLayout() Layout {
	return Layout{
		HalfExtent: 60,
		Obstacles: []Obstacle{
			{Name: "cathedral", Center: mgl64.Vec3{0, 0, -45}, HalfX: 18, HalfZ: 10},
			{Name: "fountain", Center: mgl64.Vec3{15, 0, 10}, Radius: 2.5},
		},
	}
}

// Walkable reports whether p is inside the walls and clear of obstacles.
func (l Layout) Walkable(p mgl64.Vec3, margin float64) bool {
	if !common.FiniteVec(p) {
		return false
	}
	lim := l.HalfExtent - margin
	if math.Abs(p[0]) > lim || math.Abs(p[2]) > lim {
		return false
	}
	for _, o := range l.Obstacles {
		if o.Contains(p, margin) {
			return false
		}
	}
	return true
}

// Body is an NPC's physics body. It implements npc.Agent; the world X/Z
// plane maps onto the chipmunk X/Y plane.
type Body struct {
	id      int
	faction npc.Faction
	world   *World

	body    *cp.Body
	shape   *cp.Shape
	forward mgl64.Vec3
	attacks int
}

func (b *Body) ID() int { return b.id }
func (b *Body) Faction() npc.Faction { return b.faction }
func (b *Body) Attacks() int { return b.attacks }

func (b *Body) Position() mgl64.Vec3 {
	p := b.body.Position()
	return mgl64.Vec3{p.X, 0, p.Y}
}

func (b *Body) Velocity() mgl64.Vec3 {
	v := b.body.Velocity()
	return mgl64.Vec3{v.X, 0, v.Y}
}

func (b *Body) Forward() mgl64.Vec3 { return b.forward }

func (b *Body) Move(dir mgl64.Vec3, speed float64) {
	flat := common.Flat(dir)
	l := flat.Len()
	if l == 0 || !common.Finite(l) || !common.Finite(speed) {
		return
	}
	flat = flat.Mul(1 / l)
	b.body.SetVelocity(flat[0]*speed, flat[2]*speed)
	b.forward = flat
}

func (b *Body) Stop() {
	b.body.SetVelocity(0, 0)
}

func (b *Body) LookAt(target mgl64.Vec3) {
	d := common.Direction(b.Position(), target)
	if d.Len() > 0 {
		b.forward = d
	}
}

func (b *Body) Attack() {
	b.attacks++
	if b.world != nil && b.world.OnAttack != nil {
		b.world.OnAttack(b)
	}
}

type projectileBody struct {
	id    uuid.UUID
	body  *cp.Body
	shape *cp.Shape
	hit   bool
}

// World owns the chipmunk space, the NPC bodies and in-flight projectiles.
type World struct {
	Layout Layout
	// OnAttack is called whenever an NPC body attacks.
	OnAttack func(b *Body)

	space       *cp.Space
	bodies      map[int]*Body
	shapeToNPC  map[*cp.Shape]int
	projectiles map[uuid.UUID]*projectileBody
	shapeToProj map[*cp.Shape]*projectileBody
	queue       EventQueue
}

func NewWorld(layout Layout) *World {
	space := cp.NewSpace()
	space.Iterations = 10
	space.SetGravity(cp.Vector{})

	w := &World{
		Layout:      layout,
		space:       space,
		bodies:      make(map[int]*Body),
		shapeToNPC:  make(map[*cp.Shape]int),
		projectiles: make(map[uuid.UUID]*projectileBody),
		shapeToProj: make(map[*cp.Shape]*projectileBody),
	}
	w.buildStaticShapes()
	w.setupHandlers()
	return w
}

// AddNPC creates a round body for id at pos.
func (w *World) AddNPC(id int, faction npc.Faction, pos mgl64.Vec3) (*Body, error) {
	if !common.FiniteVec(pos) {
		return nil, fmt.Errorf("world: npc %d has bad position %v", id, pos)
	}
	if _, ok := w.bodies[id]; ok {
		return nil, fmt.Errorf("world: npc %d already exists", id)
	}

	cpBody := cp.NewBody(npcMass, math.Inf(1))
	cpBody.SetPosition(cp.Vector{X: pos[0], Y: pos[2]})
	shape := cp.NewCircle(cpBody, npcRadius, cp.Vector{})
	shape.SetFriction(0.2)
	shape.SetCollisionType(collisionTypeNPC)

	w.space.AddBody(cpBody)
	w.space.AddShape(shape)

	b := &Body{
		id:      id,
		faction: faction,
		world:   w,
		body:    cpBody,
		shape:   shape,
		forward: mgl64.Vec3{0, 0, 1},
	}
	w.bodies[id] = b
	w.shapeToNPC[shape] = id
	return b, nil
}

func (w *World) RemoveNPC(id int) {
	b, ok := w.bodies[id]
	if !ok {
		return
	}
	w.space.RemoveShape(b.shape)
	w.space.RemoveBody(b.body)
	delete(w.shapeToNPC, b.shape)
	delete(w.bodies, id)
}

func (w *World) Body(id int) (*Body, bool) {
	b, ok := w.bodies[id]
	return b, ok
}

func (w *World) Len() int { return len(w.bodies) }

// LaunchProjectile adds a sensor circle flying with vel. Touching an NPC or
// the scenery queues an impact.
func (w *World) LaunchProjectile(id uuid.UUID, pos, vel mgl64.Vec3, radius float64) error {
	if !common.FiniteVec(pos) || !common.FiniteVec(vel) {
		return fmt.Errorf("world: projectile %s has bad motion", id)
	}
	if radius <= 0 {
		radius = 0.2
	}
	cpBody := cp.NewBody(1, cp.MomentForCircle(1, 0, radius, cp.Vector{}))
	cpBody.SetPosition(cp.Vector{X: pos[0], Y: pos[2]})
	cpBody.SetVelocity(vel[0], vel[2])
	shape := cp.NewCircle(cpBody, radius, cp.Vector{})
	shape.SetSensor(true)
	shape.SetCollisionType(collisionTypeProjectile)

	w.space.AddBody(cpBody)
	w.space.AddShape(shape)

	p := &projectileBody{id: id, body: cpBody, shape: shape}
	w.projectiles[id] = p
	w.shapeToProj[shape] = p
	return nil
}

// ProjectilePosition returns where a projectile currently is.
func (w *World) ProjectilePosition(id uuid.UUID) (mgl64.Vec3, bool) {
	p, ok := w.projectiles[id]
	if !ok {
		return mgl64.Vec3{}, false
	}
	pos := p.body.Position()
	return mgl64.Vec3{pos.X, 0, pos.Y}, true
}

func (w *World) RemoveProjectile(id uuid.UUID) {
	p, ok := w.projectiles[id]
	if !ok {
		return
	}
	w.space.RemoveShape(p.shape)
	w.space.RemoveBody(p.body)
	delete(w.shapeToProj, p.shape)
	delete(w.projectiles, id)
}

// Step advances the space and returns the events raised during the step.
// Shapes are never removed inside collision callbacks.
func (w *World) Step(dt float64) []Event {
	if !common.Finite(dt) || dt <= 0 {
		return nil
	}
	w.space.Step(dt)
	return w.queue.Drain()
}

func (w *World) buildStaticShapes() {
	h := w.Layout.HalfExtent
	if h > 0 {
		segments := []struct {
			a cp.Vector
			b cp.Vector
		}{
			{a: cp.Vector{X: -h, Y: -h}, b: cp.Vector{X: h, Y: -h}},
			{a: cp.Vector{X: -h, Y: h}, b: cp.Vector{X: h, Y: h}},
			{a: cp.Vector{X: -h, Y: -h}, b: cp.Vector{X: -h, Y: h}},
			{a: cp.Vector{X: h, Y: -h}, b: cp.Vector{X: h, Y: h}},
		}
		for _, seg := range segments {
			shape := cp.NewSegment(w.space.StaticBody, seg.a, seg.b, 1)
			shape.SetFriction(0.8)
			shape.SetCollisionType(collisionTypeSolid)
			w.space.AddShape(shape)
		}
	}

	for _, o := range w.Layout.Obstacles {
		var shape *cp.Shape
		c := cp.Vector{X: o.Center[0], Y: o.Center[2]}
		if o.Radius > 0 {
			shape = cp.NewCircle(w.space.StaticBody, o.Radius, c)
		} else {
			bb := cp.BB{L: c.X - o.HalfX, B: c.Y - o.HalfZ, R: c.X + o.HalfX, T: c.Y + o.HalfZ}
			shape = cp.NewBox2(w.space.StaticBody, bb, 0)
		}
		shape.SetFriction(0.8)
		shape.SetCollisionType(collisionTypeSolid)
		w.space.AddShape(shape)
	}
}

func (w *World) setupHandlers() {
	npcHandler := w.space.NewCollisionHandler(collisionTypeProjectile, collisionTypeNPC)
	npcHandler.UserData = w
	npcHandler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		world, ok := userData.(*World)
		if !ok || world == nil {
			return false
		}
		projShape, npcShape := arb.Shapes()
		id, hit := world.shapeToNPC[npcShape]
		world.queueImpact(projShape, id, hit)
		return false
	}

	solidHandler := w.space.NewCollisionHandler(collisionTypeProjectile, collisionTypeSolid)
	solidHandler.UserData = w
	solidHandler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		world, ok := userData.(*World)
		if !ok || world == nil {
			return false
		}
		projShape, _ := arb.Shapes()
		world.queueImpact(projShape, 0, false)
		return false
	}
}

// queueImpact records the first contact of a projectile only.
func (w *World) queueImpact(shape *cp.Shape, npcID int, hitNPC bool) {
	p, ok := w.shapeToProj[shape]
	if !ok || p.hit {
		return
	}
	p.hit = true
	pos := p.body.Position()
	w.queue.Push(Event{
		Type: EventImpact,
		Data: ImpactEvent{Projectile: p.id, Position: mgl64.Vec3{pos.X, 0, pos.Y}, NPC: npcID, HitNPC: hitNPC},
	})
	if hitNPC {
		log.Printf("world: projectile %s hit npc=%d at (%.1f, %.1f)", p.id, npcID, pos.X, pos.Y)
	} else {
		log.Printf("world: projectile %s hit scenery at (%.1f, %.1f)", p.id, pos.X, pos.Y)
	}
}
