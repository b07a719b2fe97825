package workflow

import (
	"fmt"
	"sort"
)

// Registry maps document classes to their workflows.
// It is populated at startup and read-only afterwards.
type Registry struct {
	fallback *Machine
	byClass  map[string]*Machine
}

// NewRegistry creates a registry whose unregistered classes use fallback.
func NewRegistry(fallback *Machine) *Registry {
	return &Registry{fallback: fallback, byClass: make(map[string]*Machine)}
}

// Default returns a registry holding only the default workflow.
func Default() *Registry {
	return NewRegistry(MustCompile(DefaultDefinition()))
}

// Register binds a workflow to class.
func (r *Registry) Register(class string, m *Machine) error {
	if class == "" {
		return fmt.Errorf("%w: class name is required", ErrInvalidDefinition)
	}
	if m == nil {
		return fmt.Errorf("%w: nil workflow for class %q", ErrInvalidDefinition, class)
	}
	if _, dup := r.byClass[class]; dup {
		return fmt.Errorf("%w: class %q registered twice", ErrInvalidDefinition, class)
	}
	r.byClass[class] = m
	return nil
}

// For returns the workflow governing documents of class.
func (r *Registry) For(class string) *Machine {
	if m, ok := r.byClass[class]; ok {
		return m
	}
	return r.fallback
}

// Fallback returns the default workflow.
func (r *Registry) Fallback() *Machine { return r.fallback }

// Classes returns the classes that have their own workflow, sorted.
func (r *Registry) Classes() []string {
	out := make([]string, 0, len(r.byClass))
	for c := range r.byClass {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Definitions returns every table keyed by class; the default is under the empty key.
func (r *Registry) Definitions() map[string]Definition {
	out := make(map[string]Definition, len(r.byClass)+1)
	out[""] = r.fallback.Definition()
	for c, m := range r.byClass {
		out[c] = m.Definition()
	}
	return out
}
