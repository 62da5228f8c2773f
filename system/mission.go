package system

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/ai/fsm"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/common"
	"github.com/milk9111/unrest/prefabs"
)

type MissionKind string

const (
	MissionReachTarget     MissionKind = "REACH_TARGET"
	MissionDisperseRioters MissionKind = "DISPERSE_RIOTERS"
	MissionSurvive         MissionKind = "SURVIVE"
)

const (
	defaultReachRadius    = 2.0
	defaultDisperseTarget = 5
	defaultSurviveLimit   = 60.0
)

// Mission is one objective. TargetAmount is pacified riots for
// DISPERSE_RIOTERS and seconds for SURVIVE.
type Mission struct {
	Kind          MissionKind
	Description   string
	Target        mgl64.Vec3
	Radius        float64
	TargetAmount  float64
	CurrentAmount float64
	Completed     bool
}

func DefaultMissions() []Mission {
	return []Mission{
		{Kind: MissionReachTarget, Description: "Reach the north observation post", Target: mgl64.Vec3{0, 0, -30}, Radius: 3},
		{Kind: MissionDisperseRioters, Description: "De-escalate or disperse the rioters", TargetAmount: defaultDisperseTarget},
		{Kind: MissionSurvive, Description: "Hold the square until the crowd thins out", TargetAmount: defaultSurviveLimit},
	}
}

// MissionsFromSpec resolves missions.yaml in order.
func MissionsFromSpec(spec prefabs.MissionsSpec) ([]Mission, error) {
	out := make([]Mission, 0, len(spec.Missions))
	for i, ms := range spec.Missions {
		m := Mission{Kind: MissionKind(strings.ToUpper(ms.Kind)), Description: ms.Description}
		switch m.Kind {
		case MissionReachTarget:
			p, err := prefabs.DecodeParams[prefabs.ReachTargetParams](ms.Params)
			if err != nil {
				return nil, fmt.Errorf("system: mission %d: %w", i, err)
			}
			m.Target = mgl64.Vec3{p.X, 0, p.Z}
			m.Radius = pick(p.Radius, defaultReachRadius)
		case MissionDisperseRioters:
			p, err := prefabs.DecodeParams[prefabs.DisperseParams](ms.Params)
			if err != nil {
				return nil, fmt.Errorf("system: mission %d: %w", i, err)
			}
			m.TargetAmount = float64(p.Target)
			if p.Target <= 0 {
				m.TargetAmount = defaultDisperseTarget
			}
		case MissionSurvive:
			p, err := prefabs.DecodeParams[prefabs.SurviveParams](ms.Params)
			if err != nil {
				return nil, fmt.Errorf("system: mission %d: %w", i, err)
			}
			m.TargetAmount = pick(p.TimeLimit, defaultSurviveLimit)
		default:
			return nil, fmt.Errorf("system: mission %d: unknown kind %q", i, ms.Kind)
		}
		out = append(out, m)
	}
	return out, nil
}

// Missions runs an ordered mission list. Only the current mission makes
// progress.
type Missions struct {
	// OnComplete is called after a mission completes.
	OnComplete func(m Mission)

	list     []Mission
	index    int
	pacified int
}

func NewMissions(list []Mission) *Missions {
	return &Missions{list: append([]Mission(nil), list...)}
}

func (m *Missions) Current() (Mission, bool) {
	if m.index >= len(m.list) {
		return Mission{}, false
	}
	return m.list[m.index], true
}

func (m *Missions) Index() int { return m.index }
func (m *Missions) Len() int { return len(m.list) }

// Pacified counts every riot that ended, whichever mission was active.
func (m *Missions) Pacified() int { return m.pacified }

// All returns a copy of the mission list with progress.
func (m *Missions) All() []Mission {
	return append([]Mission(nil), m.list...)
}

// Victory reports whether every mission is done.
func (m *Missions) Victory() bool {
	return len(m.list) > 0 && m.index >= len(m.list)
}

// Advance completes the current mission and moves to the next one.
func (m *Missions) Advance() {
	if m.index >= len(m.list) {
		return
	}
	cur := &m.list[m.index]
	cur.Completed = true
	m.index++
	log.Printf("mission: completed %s (%d/%d)", cur.Kind, m.index, len(m.list))
	if m.OnComplete != nil {
		m.OnComplete(*cur)
	}
	if m.Victory() {
		log.Printf("mission: victory")
	}
}

// Update advances time and position based missions.
func (m *Missions) Update(dt float64, player mgl64.Vec3) {
	if m.index >= len(m.list) || !common.Finite(dt) || dt < 0 {
		return
	}
	cur := &m.list[m.index]
	switch cur.Kind {
	case MissionReachTarget:
		if common.FiniteVec(player) && common.FlatDistance(player, cur.Target) <= cur.Radius {
			m.Advance()
		}
	case MissionSurvive:
		cur.CurrentAmount += dt
		if cur.CurrentAmount >= cur.TargetAmount {
			m.Advance()
		}
	}
}

// OnTransition counts a riot ending in CALM or IDLE as pacified.
func (m *Missions) OnTransition(from, to fsm.StateID) {
	if from != npc.StateRiot || (to != npc.StateCalm && to != npc.StateIdle) {
		return
	}
	m.pacified++
	if m.index >= len(m.list) {
		return
	}
	cur := &m.list[m.index]
	if cur.Kind != MissionDisperseRioters {
		return
	}
	cur.CurrentAmount++
	if cur.CurrentAmount >= cur.TargetAmount {
		m.Advance()
	}
}
