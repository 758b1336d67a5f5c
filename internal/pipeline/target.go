package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// RunFunc executes a target.
type RunFunc func(ctx context.Context) error

// Target is a named step of the pipeline. A target either runs a function or,
// when Deps is set and Run is nil, expands into other targets.
type Target struct {
	Name        string
	Description string
	Run         RunFunc
	Deps        []string
}

// Registry holds the known targets.
type Registry struct {
	targets map[string]Target
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Add registers a target. Adding a name twice panics since it is a wiring bug.
func (r *Registry) Add(t Target) {
	if _, ok := r.targets[t.Name]; ok {
		panic(fmt.Sprintf("pipeline: target %q registered twice", t.Name))
	}
	if t.Run == nil && len(t.Deps) == 0 {
		panic(fmt.Sprintf("pipeline: target %q has neither Run nor Deps", t.Name))
	}
	r.targets[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Targets returns all targets in registration order.
func (r *Registry) Targets() []Target {
	out := make([]Target, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.targets[name])
	}
	return out
}

// ErrUnknownTarget is returned for names that are not registered.
var ErrUnknownTarget = errors.New("unknown target")

// Plan expands composite targets depth first and returns the runnable targets
// in execution order. Like make, a target runs at most once per invocation.
func (r *Registry) Plan(names ...string) ([]Target, error) {
	var plan []Target
	seen := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		t, ok := r.targets[name]
		if !ok {
			return fmt.Errorf("%w: %q (known: %v)", ErrUnknownTarget, name, r.names())
		}
		if seen[name] {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("target %q depends on itself", name)
		}
		visiting[name] = true
		for _, dep := range t.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		seen[name] = true
		if t.Run != nil {
			plan = append(plan, t)
		}
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (r *Registry) names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}
