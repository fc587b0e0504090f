package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/logger"
)

// DefaultStopTimeout bounds each component's Stop call.
const DefaultStopTimeout = 10 * time.Second

type entry struct {
	c       Component
	started bool
}

// Registry starts components in registration order and stops the started
// ones in reverse. Register upstream stages first.
type Registry struct {
	// StopTimeout bounds each Stop call. Zero means DefaultStopTimeout.
	StopTimeout time.Duration

	mu     sync.RWMutex
	order  []*entry
	byName map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*entry)}
}

func registryLog() *logger.Logger { return logger.Get("registry") }

// Register adds c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, dup := r.byName[name]; dup {
		return errors.Configuration(fmt.Sprintf("component %s already registered", name))
	}
	e := &entry{c: c}
	r.order = append(r.order, e)
	r.byName[name] = e
	registryLog().Debug("Component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts every component not yet started and stops at the first
// failure. Components started before the failure stay started; StopAll
// releases them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := registryLog()
	for _, e := range r.order {
		if e.started {
			continue
		}
		name := e.c.Name()
		if err := e.c.Start(ctx); err != nil {
			log.Error("Component start failed", logger.Fields(
				logger.FieldComponent, name, logger.FieldError, err.Error()))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		e.started = true
		log.Debug("Component started", logger.Fields(logger.FieldComponent, name))
	}
	log.Info("Components started", logger.Fields("count", len(r.order)))
	return nil
}

// StopAll stops the started components, last registered first. Every one
// is attempted and the failures are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, e := range slices.Backward(r.order) {
		if !e.started {
			continue
		}
		if err := r.stop(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (r *Registry) stop(ctx context.Context, e *entry) error {
	timeout := r.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.started = false
	name := e.c.Name()
	if err := e.c.Stop(ctx); err != nil {
		registryLog().Error("Component stop failed", logger.Fields(
			logger.FieldComponent, name, logger.FieldError, err.Error()))
		return fmt.Errorf("failed to stop %s: %w", name, err)
	}
	registryLog().Debug("Component stopped", logger.Fields(logger.FieldComponent, name))
	return nil
}

// HealthAll reports every component's health in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, len(r.order))
	for i, e := range r.order {
		out[i] = e.c.Health(ctx)
	}
	return out
}

// Describe lists every component in registration order. A component that
// is not Describable is described by its name and health status.
func (r *Registry) Describe(ctx context.Context) []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Description, len(r.order))
	for i, e := range r.order {
		d, ok := describe(e.c)
		if !ok {
			d.Details = string(e.c.Health(ctx).Status)
		}
		out[i] = d
	}
	return out
}

func describe(c Component) (Description, bool) {
	desc, ok := c.(Describable)
	if !ok {
		return Description{Name: c.Name()}, false
	}
	d := desc.Describe()
	if d.Name == "" {
		d.Name = c.Name()
	}
	return d, true
}

// Get returns the component registered under name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byName[name]; ok {
		return e.c
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Component, len(r.order))
	for i, e := range r.order {
		out[i] = e.c
	}
	return out
}
