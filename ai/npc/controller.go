// Package npc drives a single crowd member: it throttles AI ticks, folds
// perception into memory and runs the behaviour state machine.
package npc

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/ai/fsm"
	"github.com/milk9111/unrest/ai/memory"
	"github.com/milk9111/unrest/ai/perception"
	"github.com/milk9111/unrest/ai/tension"
	"github.com/milk9111/unrest/common"
)

const (
	StateIdle      fsm.StateID = "IDLE"
	StateWander    fsm.StateID = "WANDER"
	StateFlee      fsm.StateID = "FLEE"
	StateRiot      fsm.StateID = "RIOT"
	StateCalm      fsm.StateID = "CALM"
	StateFormation fsm.StateID = "FORMATION"
)

const (
	minRelationship = -100.0
	maxRelationship = 100.0
)

// Observer is told about every state change of a controller, including the
// initial entry into IDLE (from is empty then).
type Observer func(c *Controller, from, to fsm.StateID)

type Option func(*Controller)

func WithTuning(t Tuning) Option {
	return func(c *Controller) { c.tuning = t }
}

func WithAttributes(a Attributes) Option {
	return func(c *Controller) {
		c.attrs = a
		c.relationship = common.Clamp(a.Relationship, minRelationship, maxRelationship)
	}
}

// WithSource sets what the controller's perception samples.
func WithSource(src perception.Source) Option {
	return func(c *Controller) { c.source = src }
}

func WithPolicy(p Policy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithRand makes the controller's random choices reproducible.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

func WithDebug(debug bool) Option {
	return func(c *Controller) { c.debug = debug }
}

// Controller is the brain of one NPC. It is not safe for concurrent use; the
// directory drives all controllers from one goroutine.
type Controller struct {
	agent   Agent
	tension *tension.Tension

	tuning   Tuning
	attrs    Attributes
	policy   Policy
	source   perception.Source
	rng      *rand.Rand
	observer Observer
	debug    bool

	machine    *fsm.Machine
	memory     *memory.Memory
	perception *perception.Perception

	accum float64
	ticks int

	relationship float64

	wanderTarget    mgl64.Vec3
	calmTimer       float64
	attackTimer     float64
	formationTarget mgl64.Vec3
	hasFormation    bool
}

// New builds a controller for agent and enters IDLE. tn is the shared crowd
// tension; nil gets a private, permanently calm one.
func New(agent Agent, tn *tension.Tension, opts ...Option) (*Controller, error) {
	if agent == nil {
		return nil, fmt.Errorf("npc: nil agent")
	}
	if tn == nil {
		tn = tension.New(0, 0)
	}

	c := &Controller{
		agent:   agent,
		tension: tn,
		tuning:  DefaultTuning(),
	}
	WithAttributes(DefaultAttributes(agent.Faction()))(c)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.tuning.TickInterval <= 0 || !common.Finite(c.tuning.TickInterval) {
		return nil, fmt.Errorf("npc: invalid tick interval %v", c.tuning.TickInterval)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(int64(agent.ID()) + 1))
	}
	if c.policy == nil {
		c.policy = DefaultPolicy{}
	}

	c.memory = memory.New()
	c.memory.DecayRate = c.tuning.MemoryDecay
	c.perception = perception.New(c.tuning.Perception, c.source)

	c.machine = fsm.New(fmt.Sprintf("npc %d", agent.ID()))
	c.machine.Debug = c.debug
	c.machine.OnTransition = c.onTransition
	if err := c.registerStates(); err != nil {
		return nil, err
	}
	if err := c.machine.TransitionTo(StateIdle); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) ID() int { return c.agent.ID() }
func (c *Controller) Agent() Agent { return c.agent }
func (c *Controller) Faction() Faction { return c.agent.Faction() }
func (c *Controller) State() fsm.StateID { return c.machine.Current() }
func (c *Controller) Relationship() float64 { return c.relationship }
func (c *Controller) Memory() *memory.Memory { return c.memory }

// SetTuning swaps the tuning of a live controller, as a hot reload does.
// State, memory and relationship are kept.
func (c *Controller) SetTuning(t Tuning) error {
	if t.TickInterval <= 0 || !common.Finite(t.TickInterval) {
		return fmt.Errorf("npc: invalid tick interval %v", t.TickInterval)
	}
	c.tuning = t
	c.memory.DecayRate = t.MemoryDecay
	c.perception.Config = t.Perception
	return nil
}

// SetPolicy replaces the escalation policy. Nil restores the default.
func (c *Controller) SetPolicy(p Policy) {
	if p == nil {
		p = DefaultPolicy{}
	}
	c.policy = p
}

// Ticks reports how many throttled AI ticks have run.
func (c *Controller) Ticks() int { return c.ticks }

// FormationTarget returns the ordered formation point, if any.
func (c *Controller) FormationTarget() (mgl64.Vec3, bool) {
	return c.formationTarget, c.hasFormation
}

// Update accumulates dt and runs one AI tick once TickInterval has elapsed.
// The tick sees the whole accumulated time as its delta.
func (c *Controller) Update(dt float64) {
	if !common.Finite(dt) || dt < 0 {
		c.logf("ignoring bad dt %v", dt)
		return
	}
	c.accum += dt
	if c.accum < c.tuning.TickInterval {
		return
	}
	step := c.accum
	c.accum = 0

	pos, fwd := c.agent.Position(), c.agent.Forward()
	if !common.FiniteVec(pos) || !common.FiniteVec(fwd) {
		c.logf("skipping tick, bad transform pos=%v fwd=%v", pos, fwd)
		return
	}

	c.perception.Update(step, pos, fwd)
	for _, ev := range c.perception.RecentEvents() {
		c.remember(ev)
	}

	c.machine.Update(step)
	c.memory.Update()
	c.ticks++
}

func (c *Controller) remember(ev perception.Event) {
	switch ev.Category {
	case perception.CategoryExplosion, perception.CategoryThreat:
		c.memory.AddEvent(memory.CategoryThreat, ev.Position, c.tuning.ThreatStrength)
	case perception.CategoryVisual:
		c.memory.AddEvent(memory.CategorySighting, ev.Position, math.Max(ev.Intensity, 1))
	case perception.CategoryAudio:
		c.memory.AddEvent(memory.CategorySighting, ev.Position, math.Max(ev.Intensity, 1))
		if c.tuning.AudioThreatIntensity > 0 && ev.Intensity >= c.tuning.AudioThreatIntensity {
			c.memory.AddEvent(memory.CategoryThreat, ev.Position, c.tuning.ThreatStrength)
		}
	}
}

// OnSensoryInput notifies the NPC of something that happened at pos. An
// explosion sends it fleeing unless it is holding a formation.
func (c *Controller) OnSensoryInput(kind SenseKind, pos mgl64.Vec3) {
	if !common.FiniteVec(pos) {
		c.logf("ignoring %s with bad position %v", kind, pos)
		return
	}
	switch kind {
	case SenseExplosion:
		c.memory.AddEvent(memory.CategoryThreat, pos, c.tuning.ThreatStrength)
		if c.State() != StateFormation {
			c.transition(StateFlee)
		}
	case SenseNoise:
		c.memory.AddEvent(memory.CategorySighting, pos, c.tuning.NoiseStrength)
	default:
		c.logf("unknown sensory input %q", kind)
	}
}

// ListenToCommand applies a verbal command to the NPC's relationship.
func (c *Controller) ListenToCommand(cmd Command) {
	switch cmd {
	case CommandCalmDown:
		c.adjustRelationship(c.tuning.CalmDownDelta)
	case CommandInsult:
		c.adjustRelationship(c.tuning.InsultDelta)
	default:
		c.logf("unknown command %q", cmd)
	}
}

// Persuade shifts the relationship by an arbitrary amount, as a partial
// de-escalation attempt does.
func (c *Controller) Persuade(amount float64) {
	if !common.Finite(amount) {
		return
	}
	c.adjustRelationship(amount)
}

// adjustRelationship reacts only when the change carries the relationship
// across a threshold, never to where it already sits.
func (c *Controller) adjustRelationship(delta float64) {
	prev := c.relationship
	c.relationship = common.Clamp(prev+delta, minRelationship, maxRelationship)
	rel := c.relationship

	calmed := delta > 0 && prev < c.tuning.CalmRelationship && rel >= c.tuning.CalmRelationship
	provoked := delta < 0 && prev > c.tuning.RiotRelationship && rel <= c.tuning.RiotRelationship

	switch state := c.State(); {
	case calmed && state == StateRiot:
		c.transition(StateCalm)
	case provoked && state != StateRiot && state != StateFormation:
		c.transition(StateRiot)
	}
}

// OrderFormation sends the NPC to hold target. A repeated order only moves
// the target.
func (c *Controller) OrderFormation(target mgl64.Vec3) {
	if !common.FiniteVec(target) {
		c.logf("ignoring formation order with bad target %v", target)
		return
	}
	c.formationTarget = target
	c.hasFormation = true
	c.transition(StateFormation)
}

// OrderCharge releases any formation and sends the NPC rioting.
func (c *Controller) OrderCharge() {
	c.hasFormation = false
	c.transition(StateRiot)
}

// ClearFormation drops the formation target and lets the NPC idle.
func (c *Controller) ClearFormation() {
	c.hasFormation = false
	if c.State() == StateFormation {
		c.transition(StateIdle)
	}
}

func (c *Controller) transition(to fsm.StateID) {
	if err := c.machine.TransitionTo(to); err != nil {
		c.logf("transition to %s: %v", to, err)
	}
}

func (c *Controller) onTransition(from, to fsm.StateID) {
	if c.debug {
		log.Printf("npc: id=%d %s -> %s", c.agent.ID(), from, to)
	}
	if c.observer != nil {
		c.observer(c, from, to)
	}
}

func (c *Controller) logf(format string, args ...any) {
	if !c.debug {
		return
	}
	log.Printf("npc: id=%d "+format, append([]any{c.agent.ID()}, args...)...)
}

// position reads the agent's position, falling back to the origin when the
// host reports garbage outside a tick.
func (c *Controller) position() mgl64.Vec3 {
	pos := c.agent.Position()
	if !common.FiniteVec(pos) {
		return mgl64.Vec3{}
	}
	return pos
}
