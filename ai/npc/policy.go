package npc

import (
	"fmt"
	"log"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/unrest/ai/fsm"
	"github.com/milk9111/unrest/common"
)

// EscalationInput is what a policy sees when deciding whether an NPC joins
// the riot this tick.
type EscalationInput struct {
	ID           int
	Faction      Faction
	State        fsm.StateID
	Tension      float64
	Relationship float64
	// Base is the chance from tension thresholds scaled by the faction.
	Base float64
}

// Policy decides the per-tick escalation chance. Results are clamped to
// [0, 1].
type Policy interface {
	EscalationChance(in EscalationInput) float64
}

// DefaultPolicy uses the threshold chance unchanged.
type DefaultPolicy struct{}

func (DefaultPolicy) EscalationChance(in EscalationInput) float64 { return in.Base }

const escalationDispatchScript = `
__result = escalate(__input)
`

// ScriptPolicy runs a tengo script that defines
//
//	escalate := func(in) { ... }
//
// where in carries id, faction, state, tension, relationship and base. The
// script's return value is the chance. Any script error, or a result that is
// not a finite number, falls back to Base.
type ScriptPolicy struct {
	name     string
	compiled *tengo.Compiled
}

// NewScriptPolicy compiles src. name is only used in errors and logs.
func NewScriptPolicy(name string, src []byte) (*ScriptPolicy, error) {
	if strings.TrimSpace(string(src)) == "" {
		return nil, fmt.Errorf("npc: empty policy script %q", name)
	}
	script := tengo.NewScript([]byte(string(src) + "\n" + escalationDispatchScript))
	_ = script.Add("__input", map[string]any{})
	_ = script.Add("__result", 0.0)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("npc: compile policy %q: %w", name, err)
	}
	return &ScriptPolicy{name: name, compiled: compiled}, nil
}

func (p *ScriptPolicy) EscalationChance(in EscalationInput) float64 {
	if p == nil || p.compiled == nil {
		return in.Base
	}
	input := map[string]any{
		"id":           in.ID,
		"faction":      string(in.Faction),
		"state":        string(in.State),
		"tension":      in.Tension,
		"relationship": in.Relationship,
		"base":         in.Base,
	}
	if err := p.compiled.Set("__input", input); err != nil {
		log.Printf("npc: policy %s set input: %v", p.name, err)
		return in.Base
	}
	if err := p.compiled.Run(); err != nil {
		log.Printf("npc: policy %s run: %v", p.name, err)
		return in.Base
	}
	switch v := p.compiled.Get("__result").Value().(type) {
	case int64:
		return float64(v)
	case float64:
		if common.Finite(v) {
			return v
		}
	}
	log.Printf("npc: policy %s returned a non-number, using base", p.name)
	return in.Base
}
