package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows limited requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxFailures is the number of consecutive failures before opening the circuit.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
	// Timeout is how long to wait before transitioning from open to half-open.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// HalfOpenMaxCalls is the number of calls allowed in half-open state.
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`
	// IsFailure decides whether an error counts against the circuit.
	// Defaults to every error except context cancellation.
	IsFailure func(error) bool `yaml:"-" mapstructure:"-"`
	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Counts tracks the calls of the current generation. A generation ends at
// every state change, so counts never leak from one state into the next.
type Counts struct {
	Requests             int
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
}

// CircuitBreaker fails fast while an upstream is unhealthy. Closed lets
// calls through, open rejects them until Timeout has passed, and half-open
// admits HalfOpenMaxCalls probes whose outcome closes or reopens it.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig(config.Name)
	if config.MaxFailures <= 0 {
		config.MaxFailures = defaults.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = defaults.HalfOpenMaxCalls
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

func (cb *CircuitBreaker) Name() string { return cb.config.Name }

// Execute runs fn unless the circuit rejects it with ErrCircuitOpen.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, ok := cb.admit()
	if !ok {
		return ErrCircuitOpen
	}
	err := fn()
	cb.settle(gen, err)
	return err
}

// ExecuteContext returns ctx.Err() without touching the circuit when ctx
// is already done.
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return cb.Execute(func() error { return fn(ctx) })
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	state, _ := cb.refresh(cb.now())
	return state
}

// Counts returns a copy of the current generation's counts.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh(cb.now())
	return cb.counts
}

// Failures is the number of consecutive failures in the current generation.
func (cb *CircuitBreaker) Failures() int {
	return cb.Counts().ConsecutiveFailures
}

// Reset closes the circuit and starts a new generation.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed, cb.now())
	cb.newGeneration(cb.now())
}

func (cb *CircuitBreaker) admit() (uint64, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, gen := cb.refresh(cb.now())
	switch {
	case state == StateOpen:
		return gen, false
	case state == StateHalfOpen && cb.counts.Requests >= cb.config.HalfOpenMaxCalls:
		return gen, false
	}
	cb.counts.Requests++
	return gen, true
}

// settle records the outcome of a call admitted in generation gen. Calls
// that straddle a state change are dropped.
func (cb *CircuitBreaker) settle(gen uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	state, current := cb.refresh(now)
	if gen != current {
		return
	}

	switch {
	case err == nil:
		cb.counts.ConsecutiveSuccesses++
		cb.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.config.HalfOpenMaxCalls {
			cb.setState(StateClosed, now)
		}
	case cb.config.IsFailure(err):
		cb.counts.ConsecutiveFailures++
		cb.counts.ConsecutiveSuccesses = 0
		if state == StateHalfOpen || cb.counts.ConsecutiveFailures >= cb.config.MaxFailures {
			cb.setState(StateOpen, now)
		}
	default:
		// Neither outcome: hand the probe slot back.
		if state == StateHalfOpen {
			cb.counts.Requests--
		}
	}
}

// refresh moves an expired open circuit to half-open.
func (cb *CircuitBreaker) refresh(now time.Time) (State, uint64) {
	if cb.state == StateOpen && !now.Before(cb.expiry) {
		cb.setState(StateHalfOpen, now)
	}
	return cb.state, cb.generation
}

func (cb *CircuitBreaker) setState(to State, now time.Time) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.newGeneration(now)
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

func (cb *CircuitBreaker) newGeneration(now time.Time) {
	cb.generation++
	cb.counts = Counts{}
	cb.expiry = time.Time{}
	if cb.state == StateOpen {
		cb.expiry = now.Add(cb.config.Timeout)
	}
}
