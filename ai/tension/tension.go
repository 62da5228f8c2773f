// Package tension holds the crowd-wide unrest level shared by every NPC.
package tension

import (
	"sync"

	"github.com/milk9111/unrest/common"
)

const (
	Min = 0.0
	Max = 100.0
)

// Level is a coarse band of the tension value.
type Level string

const (
	LevelCalm   Level = "calm"
	LevelUneasy Level = "uneasy"
	LevelTense  Level = "tense"
	LevelRiot   Level = "riot"
)

// Thresholds split the tension range for escalation checks.
type Thresholds struct {
	Low    float64
	Medium float64
	High   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Low: 20, Medium: 40, High: 70}
}

// Tension is the shared scalar in [Min, Max]. All access goes through the
// methods so the value stays clamped.
type Tension struct {
	mu         sync.Mutex
	value      float64
	decay      float64
	thresholds Thresholds
}

// New returns a tension starting at initial that decays by decayPerSecond.
func New(initial, decayPerSecond float64) *Tension {
	t := &Tension{thresholds: DefaultThresholds()}
	t.Set(initial)
	t.SetDecay(decayPerSecond)
	return t
}

func (t *Tension) Value() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Set replaces the value. Non-finite input is ignored.
func (t *Tension) Set(v float64) {
	if !common.Finite(v) {
		return
	}
	t.mu.Lock()
	t.value = common.Clamp(v, Min, Max)
	t.mu.Unlock()
}

// Add shifts the value by delta and returns the clamped result.
func (t *Tension) Add(delta float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if common.Finite(delta) {
		t.value = common.Clamp(t.value+delta, Min, Max)
	}
	return t.value
}

func (t *Tension) SetDecay(perSecond float64) {
	if !common.Finite(perSecond) || perSecond < 0 {
		perSecond = 0
	}
	t.mu.Lock()
	t.decay = perSecond
	t.mu.Unlock()
}

func (t *Tension) SetThresholds(th Thresholds) {
	t.mu.Lock()
	t.thresholds = th
	t.mu.Unlock()
}

func (t *Tension) Thresholds() Thresholds {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.thresholds
}

// Update lets the crowd cool down over dt seconds.
func (t *Tension) Update(dt float64) {
	if !common.Finite(dt) || dt <= 0 {
		return
	}
	t.mu.Lock()
	t.value = common.Clamp(t.value-t.decay*dt, Min, Max)
	t.mu.Unlock()
}

// Level maps the current value onto a band.
func (t *Tension) Level() Level {
	t.mu.Lock()
	v, th := t.value, t.thresholds
	t.mu.Unlock()
	switch {
	case v >= th.High:
		return LevelRiot
	case v >= th.Medium:
		return LevelTense
	case v >= th.Low:
		return LevelUneasy
	default:
		return LevelCalm
	}
}
