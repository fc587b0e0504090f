package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/options"
)

// Registry manages named factories for one engine kind, so a backend can be
// chosen from configuration.
type Registry[E any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[E]
}

// NewRegistry creates a new empty Registry.
func NewRegistry[E any]() *Registry[E] {
	return &Registry[E]{factories: make(map[string]Factory[E])}
}

// RegisterFactory registers a named factory.
func (r *Registry[E]) RegisterFactory(name string, factory Factory[E]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Factory returns the named factory.
func (r *Registry[E]) Factory(name string) (Factory[E], error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Configuration(fmt.Sprintf("engine factory %q not registered", name)).
			WithDetail("registered", r.List())
	}
	return factory, nil
}

// Create instantiates an engine using the named factory.
func (r *Registry[E]) Create(ctx context.Context, name string, opts options.Options) (E, error) {
	factory, err := r.Factory(name)
	if err != nil {
		var zero E
		return zero, err
	}
	return factory(ctx, opts)
}

// Select returns a factory that picks the registered factory named by the
// given option key at creation time, falling back to def when the key is
// absent. The key is removed before the options reach the chosen factory.
func (r *Registry[E]) Select(key, def string) Factory[E] {
	return func(ctx context.Context, opts options.Options) (E, error) {
		name := def
		if s, ok := opts.String(key); ok && s != "" {
			name = s
		}
		return r.Create(ctx, name, opts.Without(key))
	}
}

// List returns sorted names of all registered factories.
func (r *Registry[E]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
