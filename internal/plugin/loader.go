// Package plugin composes the server from named units that declare their
// dependencies.
//
// Plugins are registered explicitly (see internal/registration); nothing is
// discovered by scanning directories or via init() side effects. The Loader
// orders them so every plugin initializes after all of its dependencies and
// refuses to start on a cycle or a missing dependency.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/coursegate/internal/events"
	"github.com/tjfontaine/coursegate/internal/pipeline"
	"github.com/tjfontaine/coursegate/internal/pkg/config"
	"github.com/tjfontaine/coursegate/internal/schema"
)

// Host is what a plugin may touch during Init.
type Host struct {
	Router   chi.Router
	Config   *config.Config
	Logger   *slog.Logger
	Schemas  *schema.Registry
	Pipeline *pipeline.Pipeline
	Events   *events.Bus
}

// Descriptor declares one plugin.
type Descriptor struct {
	Name         string
	Dependencies []string
	Init         func(ctx context.Context, host *Host) error
}

// Loader holds registered descriptors and initializes them once.
type Loader struct {
	mu          sync.Mutex
	order       []string
	plugins     map[string]Descriptor
	initialized bool
}

func NewLoader() *Loader {
	return &Loader{plugins: make(map[string]Descriptor)}
}

// Register adds d. Names must be unique and non-empty.
func (l *Loader) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("plugin name required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return ErrAlreadyInitialized
	}
	if _, exists := l.plugins[d.Name]; exists {
		return &DuplicatePluginError{Name: d.Name}
	}
	d.Dependencies = slices.Clone(d.Dependencies)
	l.plugins[d.Name] = d
	l.order = append(l.order, d.Name)
	return nil
}

// Names returns plugin names in registration order.
func (l *Loader) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.order)
}

// Resolve returns the initialization order. Among plugins whose dependencies
// are all satisfied, registration order breaks ties, so the result is
// deterministic.
func (l *Loader) Resolve() ([]Descriptor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolve()
}

func (l *Loader) resolve() ([]Descriptor, error) {
	for _, name := range l.order {
		for _, dep := range l.plugins[name].Dependencies {
			if _, ok := l.plugins[dep]; !ok {
				return nil, &MissingDependencyError{Plugin: name, Dependency: dep}
			}
		}
	}

	pending := make(map[string]int, len(l.order))
	for _, name := range l.order {
		pending[name] = len(uniq(l.plugins[name].Dependencies))
	}

	resolved := make([]Descriptor, 0, len(l.order))
	done := make(map[string]bool, len(l.order))
	for len(resolved) < len(l.order) {
		progressed := false
		for _, name := range l.order {
			if done[name] || pending[name] > 0 {
				continue
			}
			done[name] = true
			resolved = append(resolved, l.plugins[name])
			progressed = true

			for _, other := range l.order {
				if !done[other] && slices.Contains(l.plugins[other].Dependencies, name) {
					pending[other]--
				}
			}
			// Restart so earlier-registered plugins unblocked by this one go
			// first.
			break
		}
		if !progressed {
			return nil, &CyclicDependencyError{Cycle: l.findCycle(done)}
		}
	}
	return resolved, nil
}

// findCycle walks the unresolved plugins depth-first and returns the first
// cycle found, closed on its starting plugin.
func (l *Loader) findCycle(done map[string]bool) []string {
	const (
		unvisited = iota
		onStack
		finished
	)
	state := make(map[string]int)
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		state[name] = onStack
		stack = append(stack, name)
		for _, dep := range l.plugins[name].Dependencies {
			if done[dep] {
				continue
			}
			switch state[dep] {
			case onStack:
				start := slices.Index(stack, dep)
				cycle = append(slices.Clone(stack[start:]), dep)
				return true
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = finished
		return false
	}

	for _, name := range l.order {
		if !done[name] && state[name] == unvisited && visit(name) {
			return cycle
		}
	}
	return nil
}

// InitAll resolves the order and calls each Init with host. It runs at most
// once; the first failing plugin stops initialization.
func (l *Loader) InitAll(ctx context.Context, host *Host) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return ErrAlreadyInitialized
	}

	ordered, err := l.resolve()
	if err != nil {
		return err
	}
	l.initialized = true

	for _, d := range ordered {
		if d.Init == nil {
			continue
		}
		if host.Logger != nil {
			host.Logger.Debug("initializing plugin", slog.String("plugin", d.Name))
		}
		if err := d.Init(ctx, host); err != nil {
			return &InitError{Plugin: d.Name, Err: err}
		}
	}
	return nil
}

func uniq(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
