// Package workflow implements the document lifecycle as a table-driven state machine.
// Each document class may carry its own table; classes without one use the default.
package workflow

import (
	"errors"
	"fmt"
)

// States and events of the default document workflow.
const (
	StateDraft    = "Draft"
	StateReview   = "Review"
	StateApproved = "Approved"

	EventSubmit  = "submit"
	EventApprove = "approve"
)

var (
	// ErrIllegalTransition is returned when the current state has no edge for the request.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrInvalidDefinition is returned when a transition table fails validation.
	ErrInvalidDefinition = errors.New("invalid workflow definition")
)

// TransitionError describes a rejected transition request.
type TransitionError struct {
	From  string
	Event string
	To    string
}

func (e *TransitionError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("illegal transition: no %q edge from state %q", e.Event, e.From)
	}
	return fmt.Sprintf("illegal transition: state %q cannot move to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// Transition is one edge of the table.
type Transition struct {
	From  string `yaml:"from" json:"from"`
	Event string `yaml:"event" json:"event"`
	To    string `yaml:"to" json:"to"`
}

// Definition is the declarative form of a workflow.
type Definition struct {
	Initial     string       `yaml:"initial" json:"initial"`
	States      []string     `yaml:"states" json:"states"`
	Transitions []Transition `yaml:"transitions" json:"transitions"`
}

// DefaultDefinition returns Draft -submit-> Review -approve-> Approved.
func DefaultDefinition() Definition {
	return Definition{
		Initial: StateDraft,
		States:  []string{StateDraft, StateReview, StateApproved},
		Transitions: []Transition{
			{From: StateDraft, Event: EventSubmit, To: StateReview},
			{From: StateReview, Event: EventApprove, To: StateApproved},
		},
	}
}

type edge struct {
	from  string
	event string
}

// Machine is a validated, immutable Definition. It is safe for concurrent use.
type Machine struct {
	def    Definition
	states map[string]struct{}
	edges  map[edge]string
	// outbound keeps table order so lookups by target are deterministic.
	outbound map[string][]Transition
}

// Compile validates def and builds its lookup tables.
func Compile(def Definition) (*Machine, error) {
	m := &Machine{
		def:      copyDefinition(def),
		states:   make(map[string]struct{}, len(def.States)),
		edges:    make(map[edge]string, len(def.Transitions)),
		outbound: make(map[string][]Transition),
	}

	for _, s := range def.States {
		if s == "" {
			return nil, fmt.Errorf("%w: empty state name", ErrInvalidDefinition)
		}
		if _, dup := m.states[s]; dup {
			return nil, fmt.Errorf("%w: duplicate state %q", ErrInvalidDefinition, s)
		}
		m.states[s] = struct{}{}
	}
	if def.Initial == "" {
		return nil, fmt.Errorf("%w: initial state is required", ErrInvalidDefinition)
	}
	if _, ok := m.states[def.Initial]; !ok {
		return nil, fmt.Errorf("%w: initial state %q is not declared", ErrInvalidDefinition, def.Initial)
	}

	for _, t := range def.Transitions {
		if t.Event == "" {
			return nil, fmt.Errorf("%w: transition %s->%s has no event", ErrInvalidDefinition, t.From, t.To)
		}
		if _, ok := m.states[t.From]; !ok {
			return nil, fmt.Errorf("%w: unknown source state %q", ErrInvalidDefinition, t.From)
		}
		if _, ok := m.states[t.To]; !ok {
			return nil, fmt.Errorf("%w: unknown target state %q", ErrInvalidDefinition, t.To)
		}
		if t.From == t.To {
			return nil, fmt.Errorf("%w: self transition on %q", ErrInvalidDefinition, t.From)
		}
		k := edge{from: t.From, event: t.Event}
		if _, dup := m.edges[k]; dup {
			return nil, fmt.Errorf("%w: duplicate event %q from %q", ErrInvalidDefinition, t.Event, t.From)
		}
		m.edges[k] = t.To
		m.outbound[t.From] = append(m.outbound[t.From], t)
	}

	return m, nil
}

// MustCompile is like Compile but panics on an invalid definition.
func MustCompile(def Definition) *Machine {
	m, err := Compile(def)
	if err != nil {
		panic(err)
	}
	return m
}

// Initial returns the state new documents start in.
func (m *Machine) Initial() string { return m.def.Initial }

// Definition returns a copy of the source table.
func (m *Machine) Definition() Definition { return copyDefinition(m.def) }

// Fire returns the state reached from `from` on event.
func (m *Machine) Fire(from, event string) (string, error) {
	to, ok := m.edges[edge{from: from, event: event}]
	if !ok {
		return "", &TransitionError{From: from, Event: event}
	}
	return to, nil
}

// EventFor resolves the first event, in table order, that leads from `from` to `to`.
func (m *Machine) EventFor(from, to string) (string, error) {
	for _, t := range m.outbound[from] {
		if t.To == to {
			return t.Event, nil
		}
	}
	return "", &TransitionError{From: from, To: to}
}

// Events lists the events accepted in state, in table order.
func (m *Machine) Events(state string) []string {
	out := make([]string, 0, len(m.outbound[state]))
	for _, t := range m.outbound[state] {
		out = append(out, t.Event)
	}
	return out
}

// Terminal reports whether state has no outbound edges.
func (m *Machine) Terminal(state string) bool {
	_, known := m.states[state]
	return known && len(m.outbound[state]) == 0
}

func copyDefinition(d Definition) Definition {
	out := Definition{Initial: d.Initial}
	out.States = append([]string(nil), d.States...)
	out.Transitions = append([]Transition(nil), d.Transitions...)
	return out
}
