package npc

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/ai/fsm"
	"github.com/milk9111/unrest/ai/memory"
	"github.com/milk9111/unrest/common"
)

func (c *Controller) registerStates() error {
	states := map[fsm.StateID]fsm.State{
		StateIdle: {
			OnEnter:  c.enterIdle,
			OnUpdate: c.updateIdle,
		},
		StateWander: {
			OnEnter:  c.enterWander,
			OnUpdate: c.updateWander,
		},
		StateFlee: {
			OnUpdate: c.updateFlee,
		},
		StateRiot: {
			OnEnter:  c.enterRiot,
			OnUpdate: c.updateRiot,
		},
		StateCalm: {
			OnEnter:  c.enterCalm,
			OnUpdate: c.updateCalm,
		},
		StateFormation: {
			OnUpdate: c.updateFormation,
		},
	}
	for _, id := range []fsm.StateID{StateIdle, StateWander, StateFlee, StateRiot, StateCalm, StateFormation} {
		if err := c.machine.AddState(id, states[id]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) enterIdle() {
	c.agent.Stop()
}

func (c *Controller) updateIdle(dt float64) {
	if c.memory.HasEvent(memory.CategoryThreat) {
		c.transition(StateFlee)
		return
	}
	if c.maybeEscalate() {
		return
	}
	if c.rng.Float64() < c.tuning.WanderChance {
		c.transition(StateWander)
	}
}

func (c *Controller) enterWander() {
	pos := c.position()
	r := c.tuning.WanderRadius
	c.wanderTarget = mgl64.Vec3{
		pos[0] + (c.rng.Float64()*2-1)*r,
		pos[1],
		pos[2] + (c.rng.Float64()*2-1)*r,
	}
}

func (c *Controller) updateWander(dt float64) {
	if c.memory.HasEvent(memory.CategoryThreat) {
		c.transition(StateFlee)
		return
	}
	if c.maybeEscalate() {
		return
	}

	pos := c.position()
	if common.FlatDistance(pos, c.wanderTarget) < c.tuning.ArriveDistance {
		c.transition(StateIdle)
		return
	}
	c.agent.Move(common.Direction(pos, c.wanderTarget), c.speed(c.tuning.WalkSpeed))
	c.agent.LookAt(c.wanderTarget)
}

func (c *Controller) updateFlee(dt float64) {
	threat, ok := c.memory.BestEvent(memory.CategoryThreat)
	if !ok {
		c.transition(StateIdle)
		return
	}

	pos := c.position()
	if common.Distance(pos, threat.Position) > c.tuning.SafetyRadius {
		c.memory.Consume(memory.CategoryThreat)
		c.transition(StateIdle)
		return
	}

	away := common.Direction(threat.Position, pos)
	if away.Len() == 0 {
		// Standing on the threat: bolt in a random direction.
		away = common.FromHeading(c.rng.Float64() * 2 * math.Pi)
	}
	c.agent.Move(away, c.speed(c.tuning.RunSpeed))
	c.agent.LookAt(pos.Add(away))
}

func (c *Controller) enterRiot() {
	c.agent.Attack()
	c.attackTimer = c.tuning.AttackCooldown
}

func (c *Controller) updateRiot(dt float64) {
	if c.tension.Value() < c.tension.Thresholds().Low {
		c.transition(StateIdle)
		return
	}

	c.attackTimer -= dt
	if c.attackTimer <= 0 {
		c.agent.Attack()
		c.attackTimer = c.tuning.AttackCooldown
	}

	if c.rng.Float64() >= c.tuning.RiotMoveChance {
		return
	}
	pos := c.position()
	var dir mgl64.Vec3
	if seen, ok := c.memory.BestEvent(memory.CategorySighting); ok {
		dir = common.Direction(pos, seen.Position)
	}
	if dir.Len() == 0 {
		dir = common.FromHeading(c.rng.Float64() * 2 * math.Pi)
	}
	c.agent.Move(dir, c.speed(c.tuning.RunSpeed))
	c.agent.LookAt(pos.Add(dir))
}

func (c *Controller) enterCalm() {
	c.agent.Stop()
	c.calmTimer = 0
}

func (c *Controller) updateCalm(dt float64) {
	c.calmTimer += dt
	if c.calmTimer >= c.tuning.CalmCooldown {
		c.transition(StateIdle)
	}
}

func (c *Controller) updateFormation(dt float64) {
	if !c.hasFormation {
		c.transition(StateIdle)
		return
	}

	pos := c.position()
	dist := common.FlatDistance(pos, c.formationTarget)
	if dist <= c.tuning.FormationArrive {
		c.agent.Stop()
		return
	}
	speed := math.Min(dist*c.tuning.FormationGain, c.tuning.FormationMaxSpeed)
	c.agent.Move(common.Direction(pos, c.formationTarget), speed)
	c.agent.LookAt(c.formationTarget)
}

// maybeEscalate rolls the per-tick chance of joining the riot.
func (c *Controller) maybeEscalate() bool {
	chance := c.escalationChance()
	if chance <= 0 {
		return false
	}
	if c.rng.Float64() < chance {
		c.transition(StateRiot)
		return true
	}
	return false
}

func (c *Controller) escalationChance() float64 {
	v := c.tension.Value()
	th := c.tension.Thresholds()

	var base float64
	switch {
	case v >= th.High:
		base = c.tuning.HighEscalationChance
	case v >= th.Medium:
		base = c.tuning.MediumEscalationChance
	}
	base *= c.attrs.EscalationMultiplier

	chance := c.policy.EscalationChance(EscalationInput{
		ID:           c.agent.ID(),
		Faction:      c.agent.Faction(),
		State:        c.State(),
		Tension:      v,
		Relationship: c.relationship,
		Base:         base,
	})
	if !common.Finite(chance) {
		return base
	}
	return common.Clamp(chance, 0, 1)
}

func (c *Controller) speed(base float64) float64 {
	if c.attrs.SpeedMultiplier <= 0 {
		return base
	}
	return base * c.attrs.SpeedMultiplier
}
