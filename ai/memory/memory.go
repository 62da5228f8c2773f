// Package memory is an NPC's short-term recall of categorized events.
// Entries lose strength every AI tick and are forgotten once it runs out.
package memory

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/common"
)

// Category groups remembered events.
type Category string

const (
	CategoryThreat   Category = "THREAT"
	CategorySighting Category = "SEEN_ENTITY"
)

// DefaultDecayRate is the strength lost per Update.
const DefaultDecayRate = 1.0

// Entry is one remembered event.
type Entry struct {
	Position mgl64.Vec3
	Strength float64
	Age      int // ticks since added or refreshed
}

// Memory stores entries per category.
type Memory struct {
	DecayRate float64

	entries map[Category][]Entry
}

func New() *Memory {
	return &Memory{
		DecayRate: DefaultDecayRate,
		entries:   map[Category][]Entry{},
	}
}

// AddEvent records an event. When the category already has entries, the
// strongest one is refreshed: its position is replaced, its strength becomes
// the larger of old and new and its age restarts.
func (m *Memory) AddEvent(cat Category, pos mgl64.Vec3, strength float64) {
	if !common.FiniteVec(pos) || !common.Finite(strength) || strength <= 0 {
		return
	}
	if m.entries == nil {
		m.entries = map[Category][]Entry{}
	}
	list := m.entries[cat]
	if best := strongest(list); best >= 0 {
		e := &list[best]
		e.Position = pos
		if strength > e.Strength {
			e.Strength = strength
		}
		e.Age = 0
		return
	}
	m.entries[cat] = append(list, Entry{Position: pos, Strength: strength})
}

// HasEvent reports whether cat holds any live entry.
func (m *Memory) HasEvent(cat Category) bool {
	return len(m.entries[cat]) > 0
}

// BestEvent returns the strongest entry of cat.
func (m *Memory) BestEvent(cat Category) (Entry, bool) {
	list := m.entries[cat]
	i := strongest(list)
	if i < 0 {
		return Entry{}, false
	}
	return list[i], true
}

// Consume forgets every entry of cat.
func (m *Memory) Consume(cat Category) {
	delete(m.entries, cat)
}

// Update decays all entries by DecayRate and purges those at or below zero.
// Call once per AI tick, after new events have been added.
func (m *Memory) Update() {
	rate := m.DecayRate
	if rate <= 0 || !common.Finite(rate) {
		rate = DefaultDecayRate
	}
	for cat, list := range m.entries {
		kept := list[:0]
		for _, e := range list {
			e.Strength -= rate
			e.Age++
			if e.Strength > 0 {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(m.entries, cat)
			continue
		}
		m.entries[cat] = kept
	}
}

// Len is the total number of live entries.
func (m *Memory) Len() int {
	n := 0
	for _, list := range m.entries {
		n += len(list)
	}
	return n
}

func strongest(list []Entry) int {
	best := -1
	for i := range list {
		if best < 0 || list[i].Strength > list[best].Strength {
			best = i
		}
	}
	return best
}
