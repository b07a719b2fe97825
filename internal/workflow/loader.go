package workflow

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a workflow file:
//
//	default:
//	  initial: Draft
//	  states: [Draft, Review, Approved]
//	  transitions:
//	    - {from: Draft, event: submit, to: Review}
//	classes:
//	  Contract: {...}
//
// A missing default keeps DefaultDefinition.
type File struct {
	Default *Definition           `yaml:"default"`
	Classes map[string]Definition `yaml:"classes"`
}

// Load decodes a workflow file and compiles every table in it.
func Load(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode workflow file: %w", err)
	}

	def := DefaultDefinition()
	if f.Default != nil {
		def = *f.Default
	}
	fallback, err := Compile(def)
	if err != nil {
		return nil, fmt.Errorf("default workflow: %w", err)
	}

	reg := NewRegistry(fallback)
	for class, d := range f.Classes {
		m, err := Compile(d)
		if err != nil {
			return nil, fmt.Errorf("workflow for class %q: %w", class, err)
		}
		if err := reg.Register(class, m); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadFile reads the workflow file at path. An empty path yields Default().
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workflow file: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}
