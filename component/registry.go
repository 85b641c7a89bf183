package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/logger"
)

// DefaultStopTimeout bounds each component's Stop.
const DefaultStopTimeout = 10 * time.Second

// Registry owns a set of components. They start in registration order and
// stop in reverse; a failed StartAll stops the ones it already started.
type Registry struct {
	mu          sync.RWMutex
	components  []Component
	started     map[string]bool
	stopTimeout time.Duration
	log         *logger.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStopTimeout sets the per-component stop bound.
func WithStopTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.stopTimeout = d }
}

// WithRegistryLogger sets the lifecycle logger.
func WithRegistryLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{started: map[string]bool{}, stopTimeout: DefaultStopTimeout}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("component")
	}
	return r
}

// Register adds components. Names must be unique.
func (r *Registry) Register(cs ...Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cs {
		if c == nil {
			return errors.InvalidState("component == null")
		}
		if r.indexOf(c.Name()) >= 0 {
			return errors.InvalidState("component %q already registered", c.Name())
		}
		r.components = append(r.components, c)
	}
	return nil
}

func (r *Registry) indexOf(name string) int {
	for i, c := range r.components {
		if c.Name() == name {
			return i
		}
	}
	return -1
}

// Get returns the component registered under name.
func (r *Registry) Get(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(name); i >= 0 {
		return r.components[i], true
	}
	return nil, false
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.components))
	for i, c := range r.components {
		names[i] = c.Name()
	}
	return names
}

func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.components {
		name := c.Name()
		if r.started[name] {
			continue
		}
		if err := c.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			if stopErr := r.stopStarted(ctx); stopErr != nil {
				return stderrors.Join(fmt.Errorf("start %s: %w", name, err), stopErr)
			}
			return fmt.Errorf("start %s: %w", name, err)
		}
		r.started[name] = true
		r.log.Debug("component started", logger.Fields(logger.FieldComponent, name))
	}
	return nil
}

func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopStarted(ctx)
}

// stopStarted stops the started components in reverse order. Callers hold
// the write lock.
func (r *Registry) stopStarted(ctx context.Context) error {
	var errs []error
	for i := len(r.components) - 1; i >= 0; i-- {
		c := r.components[i]
		name := c.Name()
		if !r.started[name] {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		err := c.Stop(stopCtx)
		cancel()
		delete(r.started, name)
		if err != nil {
			r.log.Error("component stop failed", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			continue
		}
		r.log.Debug("component stopped", logger.Fields(logger.FieldComponent, name))
	}
	return stderrors.Join(errs...)
}

// HealthAll reports every component in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Health, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c.Health(ctx))
	}
	return out
}

// Status returns the worst status across all components. An empty
// registry is healthy.
func (r *Registry) Status(ctx context.Context) HealthStatus {
	status := StatusHealthy
	for _, h := range r.HealthAll(ctx) {
		status = status.Worse(h.Status)
	}
	return status
}

// Summary describes every component. Components that are not Describable
// are listed by name.
func (r *Registry) Summary() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Description, 0, len(r.components))
	for _, c := range r.components {
		d := Description{Name: c.Name()}
		if desc, ok := c.(Describable); ok {
			d = desc.Describe()
			if d.Name == "" {
				d.Name = c.Name()
			}
		}
		out = append(out, d)
	}
	return out
}
