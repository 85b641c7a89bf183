package di

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/kbukum/httpapi/logger"
)

// ErrNotRegistered is returned when no component is registered under a key.
var ErrNotRegistered = errors.New("component not registered")

// RegistrationMode determines how a component is resolved.
type RegistrationMode int

const (
	Lazy      RegistrationMode = iota // Constructed on first resolve
	Eager                             // Constructed on registration
	Singleton                         // Pre-created instance
)

// Container is the service-resolution handle threaded through client calls.
type Container interface {
	Register(key string, constructor interface{}) error
	RegisterEager(key string, constructor interface{}) error
	RegisterSingleton(key string, instance interface{}) error
	Resolve(key string) (interface{}, error)
	Has(key string) bool
	Registrations() []RegistrationInfo
	Close() error
}

// RegistrationInfo describes a registered component for introspection.
type RegistrationInfo struct {
	Key         string
	Mode        RegistrationMode
	Initialized bool
}

type registration struct {
	key         string
	constructor interface{}
	mode        RegistrationMode
	order       int

	mu          sync.Mutex
	instance    interface{}
	initialized bool
}

// UnifiedContainer is the default Container.
type UnifiedContainer struct {
	mu            sync.RWMutex
	registrations map[string]*registration
	next          int
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &UnifiedContainer{registrations: make(map[string]*registration)}
}

// Register registers a constructor that runs on first Resolve. Supported
// signatures: func() T, func() (T, error), and the same taking a
// context.Context or a Container.
func (c *UnifiedContainer) Register(key string, constructor interface{}) error {
	if err := checkConstructor(constructor); err != nil {
		return fmt.Errorf("di: register %s: %w", key, err)
	}
	c.put(&registration{key: key, constructor: constructor, mode: Lazy})
	return nil
}

// RegisterEager registers a constructor and runs it immediately.
func (c *UnifiedContainer) RegisterEager(key string, constructor interface{}) error {
	if err := checkConstructor(constructor); err != nil {
		return fmt.Errorf("di: register %s: %w", key, err)
	}
	instance, err := c.callConstructor(constructor)
	if err != nil {
		return fmt.Errorf("di: failed to initialize eager component '%s': %w", key, err)
	}
	c.put(&registration{key: key, mode: Eager, instance: instance, initialized: true})
	return nil
}

// RegisterSingleton registers a pre-created instance.
func (c *UnifiedContainer) RegisterSingleton(key string, instance interface{}) error {
	if instance == nil {
		return fmt.Errorf("di: register %s: nil instance", key)
	}
	c.put(&registration{key: key, mode: Singleton, instance: instance, initialized: true})
	return nil
}

func (c *UnifiedContainer) put(reg *registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg.order = c.next
	c.next++
	c.registrations[reg.key] = reg
}

// Resolve returns the component registered under key, constructing it if
// needed. A failed construction is not cached.
func (c *UnifiedContainer) Resolve(key string) (interface{}, error) {
	c.mu.RLock()
	reg, ok := c.registrations[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.initialized {
		return reg.instance, nil
	}

	instance, err := c.callConstructor(reg.constructor)
	if err != nil {
		logger.Debug("Lazy component initialization failed", logger.Fields(
			"component", key,
			"error", err.Error(),
		))
		return nil, fmt.Errorf("di: failed to initialize lazy component '%s': %w", key, err)
	}
	reg.instance = instance
	reg.initialized = true
	return instance, nil
}

// Has reports whether key is registered.
func (c *UnifiedContainer) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.registrations[key]
	return ok
}

// Registrations returns the registered components in registration order.
func (c *UnifiedContainer) Registrations() []RegistrationInfo {
	regs := c.ordered()
	result := make([]RegistrationInfo, 0, len(regs))
	for _, reg := range regs {
		reg.mu.Lock()
		result = append(result, RegistrationInfo{Key: reg.key, Mode: reg.mode, Initialized: reg.initialized})
		reg.mu.Unlock()
	}
	return result
}

// Close closes every initialized component implementing io.Closer, in
// reverse registration order, and returns the joined errors.
func (c *UnifiedContainer) Close() error {
	regs := c.ordered()
	var errs []error
	for i := len(regs) - 1; i >= 0; i-- {
		reg := regs[i]
		reg.mu.Lock()
		instance, initialized := reg.instance, reg.initialized
		reg.mu.Unlock()
		if !initialized {
			continue
		}
		if closer, ok := instance.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", reg.key, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *UnifiedContainer) ordered() []*registration {
	c.mu.RLock()
	regs := make([]*registration, 0, len(c.registrations))
	for _, reg := range c.registrations {
		regs = append(regs, reg)
	}
	c.mu.RUnlock()
	sort.Slice(regs, func(i, j int) bool { return regs[i].order < regs[j].order })
	return regs
}

var (
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	containerType = reflect.TypeOf((*Container)(nil)).Elem()
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

func checkConstructor(constructor interface{}) error {
	fn := reflect.ValueOf(constructor)
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("constructor must be a function, got %T", constructor)
	}
	t := fn.Type()
	if t.NumIn() > 1 || (t.NumIn() == 1 && t.In(0) != contextType && t.In(0) != containerType) {
		return fmt.Errorf("constructor may only take a context.Context or a Container")
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return fmt.Errorf("constructor must return either (instance) or (instance, error)")
	}
	return nil
}

func (c *UnifiedContainer) callConstructor(constructor interface{}) (interface{}, error) {
	fn := reflect.ValueOf(constructor)
	var args []reflect.Value
	if fn.Type().NumIn() == 1 {
		if fn.Type().In(0) == contextType {
			args = []reflect.Value{reflect.ValueOf(context.Background())}
		} else {
			args = []reflect.Value{reflect.ValueOf(Container(c))}
		}
	}

	results := fn.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}
