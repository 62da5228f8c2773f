package memory

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDecayRemovesEntryAfterExpectedTicks(t *testing.T) {
	m := New()
	m.AddEvent(CategoryThreat, mgl64.Vec3{1, 0, 1}, 10)

	for i := 1; i <= 9; i++ {
		m.Update()
		if !m.HasEvent(CategoryThreat) {
			t.Fatalf("threat forgotten too early after %d updates", i)
		}
	}
	m.Update()
	if m.HasEvent(CategoryThreat) {
		t.Fatalf("expected threat gone after 10th update")
	}
	if _, ok := m.BestEvent(CategoryThreat); ok {
		t.Fatalf("expected no best event after decay")
	}
}

func TestDecayRates(t *testing.T) {
	cases := []struct {
		name     string
		strength float64
		rate     float64
		ticks    int
	}{
		{"unit_rate", 10, 1, 10},
		{"half_rate", 3, 0.5, 6},
		{"fractional_strength", 2.5, 1, 3},
		{"bad_rate_uses_default", 4, -1, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := New()
			m.DecayRate = tc.rate
			m.AddEvent(CategorySighting, mgl64.Vec3{}, tc.strength)
			n := 0
			for m.HasEvent(CategorySighting) {
				m.Update()
				n++
				if n > 100 {
					t.Fatalf("entry never decayed")
				}
			}
			if n != tc.ticks {
				t.Fatalf("expected %d ticks, got %d", tc.ticks, n)
			}
		})
	}
}

func TestAddEventRefreshesStrongest(t *testing.T) {
	m := New()
	m.AddEvent(CategoryThreat, mgl64.Vec3{1, 0, 0}, 5)
	m.Update()
	m.Update()

	m.AddEvent(CategoryThreat, mgl64.Vec3{2, 0, 0}, 4)
	e, ok := m.BestEvent(CategoryThreat)
	if !ok {
		t.Fatalf("expected threat")
	}
	if m.Len() != 1 {
		t.Fatalf("expected refresh not append, got %d entries", m.Len())
	}
	if e.Position != (mgl64.Vec3{2, 0, 0}) {
		t.Fatalf("expected refreshed position, got %v", e.Position)
	}
	if e.Strength != 4 {
		t.Fatalf("expected max(3, 4)=4, got %v", e.Strength)
	}
	if e.Age != 0 {
		t.Fatalf("expected age reset, got %d", e.Age)
	}

	m.AddEvent(CategoryThreat, mgl64.Vec3{3, 0, 0}, 1)
	e, _ = m.BestEvent(CategoryThreat)
	if e.Strength != 4 || e.Position != (mgl64.Vec3{3, 0, 0}) {
		t.Fatalf("expected strength kept at 4 with new position, got %+v", e)
	}
}

func TestAddEventIgnoresBadInput(t *testing.T) {
	m := New()
	m.AddEvent(CategoryThreat, mgl64.Vec3{math.NaN(), 0, 0}, 10)
	m.AddEvent(CategoryThreat, mgl64.Vec3{}, math.Inf(1))
	m.AddEvent(CategoryThreat, mgl64.Vec3{}, 0)
	m.AddEvent(CategoryThreat, mgl64.Vec3{}, -3)
	if m.HasEvent(CategoryThreat) {
		t.Fatalf("expected malformed events to be ignored")
	}
}

func TestCategoriesAreIndependent(t *testing.T) {
	m := New()
	m.AddEvent(CategoryThreat, mgl64.Vec3{1, 0, 0}, 2)
	m.AddEvent(CategorySighting, mgl64.Vec3{5, 0, 0}, 8)

	m.Consume(CategoryThreat)
	if m.HasEvent(CategoryThreat) {
		t.Fatalf("expected threat consumed")
	}
	e, ok := m.BestEvent(CategorySighting)
	if !ok || e.Position != (mgl64.Vec3{5, 0, 0}) {
		t.Fatalf("sighting should survive consume of another category, got %+v ok=%v", e, ok)
	}
}
