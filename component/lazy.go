package component

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/httpapi/logger"
)

// Lazy tracks the lifecycle of a component whose resources are built on
// Start. Start is a no-op while running; a failed Start can be retried.
// Lazy is safe for concurrent use.
type Lazy struct {
	name  string
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
	check func(ctx context.Context) error

	mu      sync.Mutex
	running bool
	since   time.Time
	lastErr error
}

// NewLazy returns a Lazy that runs start on the first successful Start.
func NewLazy(name string, start func(ctx context.Context) error) *Lazy {
	return &Lazy{name: name, start: start}
}

// OnStop sets the function that releases what start built.
func (l *Lazy) OnStop(fn func(ctx context.Context) error) *Lazy {
	l.stop = fn
	return l
}

// OnCheck sets an extra health check, run only while the component is up.
func (l *Lazy) OnCheck(fn func(ctx context.Context) error) *Lazy {
	l.check = fn
	return l
}

func (l *Lazy) Name() string { return l.name }

func (l *Lazy) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}
	if l.start == nil {
		return fmt.Errorf("component %s: no start function", l.name)
	}
	if err := l.start(ctx); err != nil {
		l.lastErr = err
		logger.Debug("component start failed", logger.Fields(logger.FieldComponent, l.name, logger.FieldError, err.Error()))
		return fmt.Errorf("start %s: %w", l.name, err)
	}
	l.running, l.since, l.lastErr = true, time.Now(), nil
	logger.Debug("component started", logger.Fields(logger.FieldComponent, l.name))
	return nil
}

// Stop runs the stop function if the component is running.
func (l *Lazy) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	l.running = false
	if l.stop == nil {
		return nil
	}
	return l.stop(ctx)
}

// Running reports whether the last Start succeeded and Stop has not run.
func (l *Lazy) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Since returns when the component last started, or the zero time.
func (l *Lazy) Since() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.since
}

// Check fails when the component is not running, then runs the OnCheck
// function.
func (l *Lazy) Check(ctx context.Context) error {
	l.mu.Lock()
	running, lastErr := l.running, l.lastErr
	l.mu.Unlock()
	if !running {
		if lastErr != nil {
			return fmt.Errorf("component %s not running: %w", l.name, lastErr)
		}
		return fmt.Errorf("component %s not running", l.name)
	}
	if l.check != nil {
		return l.check(ctx)
	}
	return nil
}
