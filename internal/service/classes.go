package service

import (
	"docvault/internal/model"
	"docvault/internal/workflow"
)

// Classes is the set of document classes the vault recognizes: the configured
// taxonomy plus every class that has a workflow of its own. Unclassified is
// always a member.
type Classes struct {
	names []string
	set   map[string]struct{}
}

// NewClasses builds the class set. reg may be nil.
func NewClasses(configured []string, reg *workflow.Registry) *Classes {
	c := &Classes{set: make(map[string]struct{})}
	c.add(model.Unclassified)
	for _, name := range configured {
		c.add(name)
	}
	if reg != nil {
		for _, name := range reg.Classes() {
			c.add(name)
		}
	}
	return c
}

func (c *Classes) add(name string) {
	if name == "" {
		return
	}
	if _, ok := c.set[name]; ok {
		return
	}
	c.set[name] = struct{}{}
	c.names = append(c.names, name)
}

// Has reports whether name is a known class.
func (c *Classes) Has(name string) bool {
	_, ok := c.set[name]
	return ok
}

// Names returns the classes in declaration order.
func (c *Classes) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
