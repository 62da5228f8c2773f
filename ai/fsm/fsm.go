// Package fsm provides the state machine engine used by NPC controllers.
//
// States are registered under a StateID with an enter callback and an update
// callback. Exactly one state is active at a time. There are no exit hooks.
package fsm

import (
	"errors"
	"fmt"
	"log"
	"sort"
)

// StateID identifies a state within a machine.
type StateID string

var (
	ErrUnknownState = errors.New("fsm: unknown state")
	ErrStateExists  = errors.New("fsm: state already registered")
	ErrEmptyStateID = errors.New("fsm: empty state id")
)

// State holds the callbacks for one registered state. Both callbacks are
// optional.
type State struct {
	OnEnter  func()
	OnUpdate func(dt float64)
}

// Machine holds a set of named states and the active one.
type Machine struct {
	// Name is used as a log prefix when Debug is set.
	Name string
	// Debug logs rejected transitions.
	Debug bool
	// OnTransition is called after every successful transition, before the
	// new state's OnEnter runs.
	OnTransition func(from, to StateID)

	states  map[StateID]State
	current StateID
	active  bool
}

func New(name string) *Machine {
	return &Machine{
		Name:   name,
		states: map[StateID]State{},
	}
}

// AddState registers a state. Registering the same id twice fails and keeps
// the first registration.
func (m *Machine) AddState(id StateID, s State) error {
	if id == "" {
		return ErrEmptyStateID
	}
	if m.states == nil {
		m.states = map[StateID]State{}
	}
	if _, ok := m.states[id]; ok {
		return fmt.Errorf("%w: %q", ErrStateExists, id)
	}
	m.states[id] = s
	return nil
}

// TransitionTo makes id the active state and runs its OnEnter. Asking for
// the already-active state does nothing. An unknown id leaves the machine
// where it was and returns an error wrapping ErrUnknownState.
func (m *Machine) TransitionTo(id StateID) error {
	next, ok := m.states[id]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownState, id)
		if m.Debug {
			log.Printf("fsm: %s: transition %q -> %q rejected: %v", m.Name, m.current, id, err)
		}
		return err
	}
	if m.active && m.current == id {
		return nil
	}

	prev := m.current
	m.current = id
	m.active = true
	if m.OnTransition != nil {
		m.OnTransition(prev, id)
	}
	if next.OnEnter != nil {
		next.OnEnter()
	}
	return nil
}

// Update runs the active state's OnUpdate once. The state is captured before
// the call, so a transition made from inside OnUpdate takes effect without
// the old state running again.
func (m *Machine) Update(dt float64) {
	if !m.active {
		return
	}
	s := m.states[m.current]
	if s.OnUpdate != nil {
		s.OnUpdate(dt)
	}
}

// Current returns the active state id, or "" before the first transition.
func (m *Machine) Current() StateID {
	if m == nil || !m.active {
		return ""
	}
	return m.current
}

func (m *Machine) Has(id StateID) bool {
	_, ok := m.states[id]
	return ok
}

// States lists the registered ids in lexical order.
func (m *Machine) States() []StateID {
	out := make([]StateID, 0, len(m.states))
	for id := range m.states {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
