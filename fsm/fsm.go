// Package fsm is a small data-driven finite state machine runtime.
// A Table holds the immutable state graph and is shared by every agent of
// a species; a Machine holds one agent's runtime state.
package fsm

import (
	"errors"
	"fmt"
)

// ErrUnknownState is returned when a table references an undefined state.
var ErrUnknownState = errors.New("unknown state")

// StateID identifies a node within a table.
type StateID int

// StateNone is the zero state; no node may use it.
const StateNone StateID = 0

// GuardFunc returns true if the transition should occur.
type GuardFunc[T any] func(ctx T) bool

// ActionFunc executes a side effect.
type ActionFunc[T any] func(ctx T)

// Transition defines a guarded edge. A nil guard always passes.
type Transition[T any] struct {
	TargetID StateID
	Guard    GuardFunc[T]
}

// Node is a state with lifecycle actions and transitions in priority order.
type Node[T any] struct {
	ID   StateID
	Name string

	OnEnter  ActionFunc[T]
	OnUpdate ActionFunc[T]
	OnExit   ActionFunc[T]

	Transitions []Transition[T]
}

// Table is the state graph of one species.
type Table[T any] struct {
	nodes   map[StateID]*Node[T]
	initial StateID
}

// NewTable creates an empty table that starts in initial.
func NewTable[T any](initial StateID) *Table[T] {
	return &Table[T]{nodes: make(map[StateID]*Node[T]), initial: initial}
}

// AddState adds a node and returns it for further configuration.
func (t *Table[T]) AddState(id StateID, name string) *Node[T] {
	node := &Node[T]{ID: id, Name: name}
	t.nodes[id] = node
	return node
}

// AddTransition appends a transition to the source node.
func (t *Table[T]) AddTransition(sourceID StateID, tr Transition[T]) {
	if node, ok := t.nodes[sourceID]; ok {
		node.Transitions = append(node.Transitions, tr)
	}
}

// Validate checks that the initial state and every transition target exist.
func (t *Table[T]) Validate() error {
	if _, ok := t.nodes[t.initial]; !ok {
		return fmt.Errorf("initial state %d: %w", t.initial, ErrUnknownState)
	}
	for id, node := range t.nodes {
		if id == StateNone {
			return fmt.Errorf("state %q uses reserved id 0: %w", node.Name, ErrUnknownState)
		}
		for _, tr := range node.Transitions {
			if _, ok := t.nodes[tr.TargetID]; !ok {
				return fmt.Errorf("state %q targets %d: %w", node.Name, tr.TargetID, ErrUnknownState)
			}
		}
	}
	return nil
}

// Name returns the name of a state, or "none".
func (t *Table[T]) Name(id StateID) string {
	if node, ok := t.nodes[id]; ok {
		return node.Name
	}
	return "none"
}

// Machine is one agent's runtime over a shared table.
type Machine[T any] struct {
	table       *Table[T]
	active      StateID
	timeInState float64

	// OnTransition is called after every state change, forced or guarded.
	OnTransition func(from, to StateID)
}

// NewMachine creates a machine that has not entered any state yet.
func NewMachine[T any](table *Table[T]) *Machine[T] {
	return &Machine[T]{table: table}
}

// Init enters the initial state, running its OnEnter once.
func (m *Machine[T]) Init(ctx T) error {
	node, ok := m.table.nodes[m.table.initial]
	if !ok {
		return fmt.Errorf("initial state %d: %w", m.table.initial, ErrUnknownState)
	}
	m.active = node.ID
	m.timeInState = 0
	if node.OnEnter != nil {
		node.OnEnter(ctx)
	}
	return nil
}

// Update evaluates the active state's transitions once in table order.
// The first passing guard switches state (exit, then enter). The
// OnUpdate of the resulting state then runs. It reports whether a
// transition happened.
func (m *Machine[T]) Update(ctx T, dt float64) bool {
	node, ok := m.table.nodes[m.active]
	if !ok {
		return false
	}
	m.timeInState += dt

	changed := false
	for _, tr := range node.Transitions {
		if tr.Guard == nil || tr.Guard(ctx) {
			changed = m.transition(ctx, tr.TargetID)
			break
		}
	}

	if cur := m.table.nodes[m.active]; cur.OnUpdate != nil {
		cur.OnUpdate(ctx)
	}
	return changed
}

// Force switches to target immediately, bypassing guards. Forcing the
// active state is a no-op.
func (m *Machine[T]) Force(ctx T, target StateID) bool {
	return m.transition(ctx, target)
}

// State returns the active state.
func (m *Machine[T]) State() StateID {
	return m.active
}

// StateName returns the active state's name.
func (m *Machine[T]) StateName() string {
	return m.table.Name(m.active)
}

// TimeInState returns seconds since the last transition.
func (m *Machine[T]) TimeInState() float64 {
	return m.timeInState
}

func (m *Machine[T]) transition(ctx T, targetID StateID) bool {
	if m.active == targetID {
		return false
	}
	target, ok := m.table.nodes[targetID]
	if !ok {
		panic(fmt.Sprintf("fsm: transition to unknown state %d", targetID))
	}

	from := m.active
	if cur, ok := m.table.nodes[from]; ok && cur.OnExit != nil {
		cur.OnExit(ctx)
	}
	m.active = targetID
	m.timeInState = 0
	if target.OnEnter != nil {
		target.OnEnter(ctx)
	}
	if m.OnTransition != nil {
		m.OnTransition(from, targetID)
	}
	return true
}
