package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named contracts. There is no update operation: evolving a
// contract means registering it under a new name.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	sealed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register adds t under name.
func (r *Registry) Register(name string, t Type) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("schema name cannot be empty")
	}
	if err := check(t, name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, fmt.Errorf("register %q: %w", name, ErrRegistrySealed)
	}
	if _, exists := r.schemas[name]; exists {
		return nil, &DuplicateSchemaError{Name: name}
	}

	s := &Schema{Name: name, Type: t}
	r.schemas[name] = s
	return s, nil
}

// MustRegister is Register for package-level contract tables.
// Panics on error.
func (r *Registry) MustRegister(name string, t Type) *Schema {
	s, err := r.Register(name, t)
	if err != nil {
		panic(err)
	}
	return s
}

// Resolve returns the contract registered under name.
func (r *Registry) Resolve(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[name]
	if !ok {
		return nil, &UnknownSchemaError{Name: name}
	}
	return s, nil
}

// Names returns all registered names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Seal rejects further registrations. Called once startup completes.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// check rejects structurally broken contracts at registration time.
func check(t Type, path string) error {
	switch v := t.(type) {
	case nil:
		return fmt.Errorf("schema %s: nil type", path)
	case String:
		if v.MaxLength > 0 && v.MinLength > v.MaxLength {
			return fmt.Errorf("schema %s: minLength %d exceeds maxLength %d", path, v.MinLength, v.MaxLength)
		}
	case Number:
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			return fmt.Errorf("schema %s: min %v exceeds max %v", path, *v.Min, *v.Max)
		}
	case Enum:
		if len(v.Values) == 0 {
			return fmt.Errorf("schema %s: enum has no values", path)
		}
	case Object:
		seen := make(map[string]bool, len(v.Fields))
		for _, f := range v.Fields {
			if f.Name == "" {
				return fmt.Errorf("schema %s: field with empty name", path)
			}
			if seen[f.Name] {
				return fmt.Errorf("schema %s: duplicate field %q", path, f.Name)
			}
			seen[f.Name] = true
			if err := check(f.Type, joinPath(path, f.Name)); err != nil {
				return err
			}
		}
		for _, ref := range v.Refinements {
			if ref.Check == nil {
				return fmt.Errorf("schema %s: refinement on %q has no check", path, ref.Path)
			}
		}
	case Array:
		return check(v.Items, path+"[]")
	case Optional:
		return check(v.Of, path)
	}
	return nil
}
