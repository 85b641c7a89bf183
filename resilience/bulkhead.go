package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig bounds how many calls one client may have in flight.
// MaxWait is how long a call queues for a slot; zero rejects at once.
type BulkheadConfig struct {
	Name          string            `yaml:"name" mapstructure:"name"`
	MaxConcurrent int               `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxWait       time.Duration     `yaml:"max_wait" mapstructure:"max_wait"`
	OnReject      func(name string) `yaml:"-" mapstructure:"-"`
}

// DefaultBulkheadConfig allows ten concurrent calls with no queueing.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{Name: name, MaxConcurrent: 10}
}

// Bulkhead is a weighted semaphore with an optional bounded wait.
type Bulkhead struct {
	cfg   BulkheadConfig
	sem   *semaphore.Weighted
	inUse atomic.Int64
}

func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Bulkhead{cfg: cfg, sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent))}
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// ExecuteWithResult is Execute for functions that produce a value.
func ExecuteWithResult[T any](ctx context.Context, b *Bulkhead, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func(ctx context.Context) (err error) {
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// Acquire takes a slot. The returned release may be called more than once.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if err := b.wait(ctx); err != nil {
		if b.cfg.OnReject != nil {
			b.cfg.OnReject(b.cfg.Name)
		}
		return nil, err
	}
	b.inUse.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			b.inUse.Add(-1)
			b.sem.Release(1)
		})
	}, nil
}

func (b *Bulkhead) wait(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		return nil
	}
	if b.cfg.MaxWait <= 0 {
		return ErrBulkheadFull
	}
	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBulkheadTimeout
	}
	return nil
}

func (b *Bulkhead) InUse() int         { return int(b.inUse.Load()) }
func (b *Bulkhead) Available() int     { return b.cfg.MaxConcurrent - b.InUse() }
func (b *Bulkhead) MaxConcurrent() int { return b.cfg.MaxConcurrent }
