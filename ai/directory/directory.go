// Package directory owns every live NPC controller and fans out ticks and
// world events to them.
package directory

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/ai/fsm"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/ai/perception"
	"github.com/milk9111/unrest/ai/tension"
	"github.com/milk9111/unrest/common"
)

// DefaultBudget is how long one Update may take before it is logged.
const DefaultBudget = 5 * time.Millisecond

// Config is applied to every controller the directory builds.
type Config struct {
	Tuning     npc.Tuning
	Attributes map[npc.Faction]npc.Attributes
	Policies   map[npc.Faction]npc.Policy
	// Source is the shared stimulus board each controller perceives.
	Source   perception.Source
	Observer npc.Observer
	// Seed makes every controller's random stream reproducible. Each NPC
	// draws from Seed+id.
	Seed   int64
	Budget time.Duration
	Debug  bool
}

func DefaultConfig() Config {
	return Config{
		Tuning: npc.DefaultTuning(),
		Budget: DefaultBudget,
	}
}

type entry struct {
	id      int
	ctrl    *npc.Controller
	removed bool
}

// Directory is single-threaded: register, update and broadcast from the
// frame goroutine only.
type Directory struct {
	tension *tension.Tension
	cfg     Config

	byID  map[int]*entry
	order []*entry
}

// New returns an empty directory sharing tn with its controllers.
func New(tn *tension.Tension, cfg Config) *Directory {
	if tn == nil {
		tn = tension.New(0, 0)
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if cfg.Tuning.TickInterval <= 0 {
		cfg.Tuning = npc.DefaultTuning()
	}
	return &Directory{
		tension: tn,
		cfg:     cfg,
		byID:    map[int]*entry{},
	}
}

func (d *Directory) Tension() *tension.Tension { return d.tension }

// RegisterNPC builds a controller for agent. opts are applied after the
// directory's own options, so callers can override per-NPC attributes.
// Registering a live id replaces the old controller.
func (d *Directory) RegisterNPC(agent npc.Agent, opts ...npc.Option) (*npc.Controller, error) {
	if agent == nil {
		return nil, fmt.Errorf("directory: nil agent")
	}
	id := agent.ID()
	faction := agent.Faction()

	attrs, ok := d.cfg.Attributes[faction]
	if !ok {
		attrs = npc.DefaultAttributes(faction)
	}
	base := []npc.Option{
		npc.WithTuning(d.cfg.Tuning),
		npc.WithAttributes(attrs),
		npc.WithRand(rand.New(rand.NewSource(d.cfg.Seed + int64(id)))),
		npc.WithObserver(d.cfg.Observer),
		npc.WithDebug(d.cfg.Debug),
	}
	if d.cfg.Source != nil {
		base = append(base, npc.WithSource(d.cfg.Source))
	}
	if p, ok := d.cfg.Policies[faction]; ok && p != nil {
		base = append(base, npc.WithPolicy(p))
	}

	ctrl, err := npc.New(agent, d.tension, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("directory: register npc %d: %w", id, err)
	}

	if old, ok := d.byID[id]; ok {
		log.Printf("ai: npc=%d registered twice, replacing controller", id)
		d.remove(old)
	}
	e := &entry{id: id, ctrl: ctrl}
	d.byID[id] = e
	d.order = append(d.order, e)
	return ctrl, nil
}

// UnregisterNPC drops the controller for id. It is safe to call from inside
// Update or BroadcastEvent; the removed controller is not visited again in
// that pass.
func (d *Directory) UnregisterNPC(id int) {
	if e, ok := d.byID[id]; ok {
		d.remove(e)
	}
}

func (d *Directory) remove(e *entry) {
	e.removed = true
	delete(d.byID, e.id)
	for i, o := range d.order {
		if o == e {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Update advances every controller by dt in registration order.
func (d *Directory) Update(dt float64) {
	start := time.Now()
	snapshot := d.snapshot()
	for _, e := range snapshot {
		if e.removed {
			continue
		}
		d.guard(e, "update", func() { e.ctrl.Update(dt) })
	}
	if elapsed := time.Since(start); elapsed > d.cfg.Budget {
		log.Printf("ai: directory update took %s for %d npcs (budget %s)", elapsed, len(snapshot), d.cfg.Budget)
	}
}

// BroadcastEvent delivers kind at pos to every NPC whose current position is
// within radius (inclusive). It returns how many NPCs were notified.
func (d *Directory) BroadcastEvent(kind npc.SenseKind, pos mgl64.Vec3, radius float64) int {
	if !common.FiniteVec(pos) || !common.Finite(radius) || radius < 0 {
		return 0
	}
	n := 0
	for _, e := range d.snapshot() {
		if e.removed {
			continue
		}
		d.guard(e, "broadcast", func() {
			p := e.ctrl.Agent().Position()
			if !common.FiniteVec(p) || common.Distance(p, pos) > radius {
				return
			}
			e.ctrl.OnSensoryInput(kind, pos)
			n++
		})
	}
	return n
}

// SetTuning applies t to the directory and every live controller.
func (d *Directory) SetTuning(t npc.Tuning) error {
	for _, e := range d.order {
		if err := e.ctrl.SetTuning(t); err != nil {
			return err
		}
	}
	d.cfg.Tuning = t
	return nil
}

// SetPolicies swaps the per-faction escalation policies of the directory and
// every live controller. Factions missing from policies fall back to the
// default policy.
func (d *Directory) SetPolicies(policies map[npc.Faction]npc.Policy) {
	d.cfg.Policies = policies
	for _, e := range d.order {
		e.ctrl.SetPolicy(policies[e.ctrl.Faction()])
	}
}

func (d *Directory) Controller(id int) (*npc.Controller, bool) {
	e, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return e.ctrl, true
}

func (d *Directory) Len() int { return len(d.order) }

// Each calls fn for every live controller in registration order.
func (d *Directory) Each(fn func(c *npc.Controller)) {
	for _, e := range d.snapshot() {
		if !e.removed {
			fn(e.ctrl)
		}
	}
}

// StateCounts tallies the live controllers by state.
func (d *Directory) StateCounts() map[fsm.StateID]int {
	counts := map[fsm.StateID]int{}
	for _, e := range d.order {
		counts[e.ctrl.State()]++
	}
	return counts
}

func (d *Directory) snapshot() []*entry {
	return append([]*entry(nil), d.order...)
}

func (d *Directory) guard(e *entry, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ai: npc=%d %s panic: %v", e.id, what, r)
		}
	}()
	fn()
}
