package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"LinkScanner/internal/domain"
	"LinkScanner/internal/pipeline"
	"LinkScanner/internal/ports"
)

// ErrUnknownEngine is returned by Resolve for names nobody registered.
var ErrUnknownEngine = errors.New("unknown engine")

// Engine executes the per-item stages of a graph (extract, group, check)
// and returns every check result. Ranking happens after it returns.
type Engine interface {
	Name() string
	Execute(ctx context.Context, g *pipeline.Graph, src ports.RecordSource) ([]domain.CheckResult, error)
}

// Registry keeps a mapping from engine names to their implementations.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: map[string]Engine{}}
}

// Register adds or replaces an engine implementation.
func (r *Registry) Register(e Engine) {
	if r.engines == nil {
		r.engines = map[string]Engine{}
	}
	r.engines[e.Name()] = e
}

// Resolve returns an engine by name.
func (r *Registry) Resolve(name string) (Engine, error) {
	if e, ok := r.engines[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownEngine, name, r.Names())
}

// Names lists registered engines in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
