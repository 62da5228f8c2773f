// Package perception turns nearby stimuli into sensed events once per AI tick.
package perception

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/common"
)

// Category tags a sensed event.
type Category string

const (
	CategoryVisual    Category = "VISUAL"
	CategoryAudio     Category = "AUDIO"
	CategoryExplosion Category = "EXPLOSION"
	CategoryThreat    Category = "THREAT"
)

// MaxEvents caps how many events one Update produces.
const MaxEvents = 8

// Stimulus is something in the world that can be seen or heard.
type Stimulus struct {
	Category  Category
	Position  mgl64.Vec3
	Intensity float64
	// Radius limits how far an AUDIO stimulus carries. Zero means the
	// listener's hearing radius alone decides.
	Radius float64
}

// Event is a stimulus that passed the perception filter.
type Event struct {
	Category  Category
	Position  mgl64.Vec3
	Time      float64
	Intensity float64
}

// Source supplies the stimuli currently present around an agent.
type Source interface {
	Stimuli() []Stimulus
}

// Config bounds what an agent can sense.
type Config struct {
	ViewDistance  float64
	FieldOfView   float64 // full cone angle, degrees
	HearingRadius float64
}

func DefaultConfig() Config {
	return Config{
		ViewDistance:  15,
		FieldOfView:   120,
		HearingRadius: 25,
	}
}

// Perception filters a Source by distance and view cone.
type Perception struct {
	Config Config
	Source Source

	clock  float64
	events []Event
}

func New(cfg Config, src Source) *Perception {
	return &Perception{Config: cfg, Source: src}
}

// Update samples the source from position looking along forward and appends
// what is sensed to the pending events. dt advances the perception clock
// used to stamp events.
func (p *Perception) Update(dt float64, position, forward mgl64.Vec3) {
	if common.Finite(dt) && dt > 0 {
		p.clock += dt
	}
	if p.Source == nil || !common.FiniteVec(position) {
		return
	}

	look := common.Flat(forward)
	if l := look.Len(); l > 1e-9 && common.Finite(l) {
		look = look.Mul(1 / l)
	} else {
		look = mgl64.Vec3{}
	}
	cosHalf := math.Cos(p.Config.FieldOfView * 0.5 * math.Pi / 180)

	type candidate struct {
		ev   Event
		dist float64
	}
	var found []candidate
	for _, s := range p.Source.Stimuli() {
		if !common.FiniteVec(s.Position) {
			continue
		}
		dist := common.Distance(position, s.Position)
		switch s.Category {
		case CategoryVisual:
			if dist > p.Config.ViewDistance {
				continue
			}
			if !p.inCone(position, s.Position, look, cosHalf) {
				continue
			}
		case CategoryAudio:
			r := p.Config.HearingRadius
			if s.Radius > 0 && s.Radius < r {
				r = s.Radius
			}
			if dist > r {
				continue
			}
		default:
			continue
		}
		found = append(found, candidate{
			ev: Event{
				Category:  s.Category,
				Position:  s.Position,
				Time:      p.clock,
				Intensity: s.Intensity,
			},
			dist: dist,
		})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].dist < found[j].dist })
	for _, c := range found {
		if len(p.events) >= MaxEvents {
			break
		}
		p.events = append(p.events, c.ev)
	}
}

// RecentEvents returns the events gathered since the last call and clears
// them, so each event is delivered at most once.
func (p *Perception) RecentEvents() []Event {
	out := p.events
	p.events = nil
	return out
}

func (p *Perception) inCone(from, to, look mgl64.Vec3, cosHalf float64) bool {
	if p.Config.FieldOfView >= 360 {
		return true
	}
	if look == (mgl64.Vec3{}) {
		return false
	}
	dir := common.Direction(from, to)
	if dir == (mgl64.Vec3{}) {
		// standing on it
		return true
	}
	return dir.Dot(look) >= cosHalf
}
