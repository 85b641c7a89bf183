package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/resilience"
)

// Policy wraps the execution of one exchange. fn may be invoked more than
// once; each invocation sends the request again.
type Policy interface {
	Execute(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error)

func (f PolicyFunc) Execute(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	return f(ctx, fn)
}

// PolicyChain runs policies nested, the first outermost.
type PolicyChain []Policy

// Policies composes ps. Nil entries are skipped.
func Policies(ps ...Policy) PolicyChain {
	return PolicyChain(ps)
}

func (c PolicyChain) Execute(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	next := fn
	for i := len(c) - 1; i >= 0; i-- {
		p := c[i]
		if p == nil {
			continue
		}
		inner := next
		next = func(ctx context.Context) (*http.Response, error) {
			return p.Execute(ctx, inner)
		}
	}
	return next(ctx)
}

// statusError carries a response whose status a policy treats as a failure.
// Policies convert it back into the response before returning.
type statusError struct {
	resp *http.Response
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.resp.StatusCode)
}

func asStatusError(err error) (*statusError, bool) {
	var se *statusError
	ok := stderrors.As(err, &se)
	return se, ok
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// DefaultRetryStatusCodes are the statuses RetryPolicy retries by default.
var DefaultRetryStatusCodes = []int{
	http.StatusRequestTimeout,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryPolicy retries transport failures and retryable statuses with
// exponential backoff. The bodies of discarded responses are closed; the
// response of the last attempt is returned as is.
type RetryPolicy struct {
	cfg      resilience.RetryConfig
	statuses map[int]bool
}

// NewRetryPolicy creates a retry policy. With no statusCodes,
// DefaultRetryStatusCodes are used.
func NewRetryPolicy(cfg resilience.RetryConfig, statusCodes ...int) *RetryPolicy {
	if len(statusCodes) == 0 {
		statusCodes = DefaultRetryStatusCodes
	}
	statuses := make(map[int]bool, len(statusCodes))
	for _, code := range statusCodes {
		statuses[code] = true
	}
	return &RetryPolicy{cfg: cfg, statuses: statuses}
}

func (p *RetryPolicy) Execute(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	cfg := p.cfg
	retryIf, onRetry := cfg.RetryIf, cfg.OnRetry

	cfg.RetryIf = func(err error) bool {
		if _, ok := asStatusError(err); ok {
			return true
		}
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return false
		}
		if appErr, ok := errors.AsAppError(err); ok {
			return appErr.Retryable
		}
		if retryIf != nil {
			return retryIf(err)
		}
		return true
	}
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		if se, ok := asStatusError(err); ok {
			discard(se.resp)
		}
		if onRetry != nil {
			onRetry(attempt, err, backoff)
		}
	}

	resp, err := resilience.Retry(ctx, cfg, func(ctx context.Context, _ int) (*http.Response, error) {
		resp, err := fn(ctx)
		if err != nil {
			return resp, err
		}
		if resp != nil && p.statuses[resp.StatusCode] {
			return resp, &statusError{resp: resp}
		}
		return resp, nil
	})

	if se, ok := asStatusError(err); ok {
		if ctxErr := ctx.Err(); ctxErr != nil {
			discard(se.resp)
			return nil, ctxErr
		}
		return se.resp, nil
	}
	return resp, err
}

// CircuitBreakerPolicy counts transport failures and 5xx statuses against
// a circuit breaker. An open circuit fails the call with a non-retryable
// transport fault wrapping resilience.ErrCircuitOpen.
type CircuitBreakerPolicy struct {
	cb *resilience.CircuitBreaker
}

func NewCircuitBreakerPolicy(cfg resilience.CircuitBreakerConfig) *CircuitBreakerPolicy {
	return &CircuitBreakerPolicy{cb: resilience.NewCircuitBreaker(cfg)}
}

// Breaker returns the underlying circuit breaker.
func (p *CircuitBreakerPolicy) Breaker() *resilience.CircuitBreaker { return p.cb }

func (p *CircuitBreakerPolicy) Execute(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	var resp *http.Response
	err := p.cb.ExecuteContext(ctx, func(ctx context.Context) error {
		r, err := fn(ctx)
		resp = r
		if err != nil {
			return err
		}
		if r != nil && r.StatusCode >= http.StatusInternalServerError {
			return &statusError{resp: r}
		}
		return nil
	})

	if se, ok := asStatusError(err); ok {
		return se.resp, nil
	}
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		fault := errors.TransportFault(err).WithDetail("circuit", p.cb.Name())
		fault.Retryable = false
		return nil, fault
	}
	return resp, err
}

// RateLimitPolicy waits for a token before each send.
type RateLimitPolicy struct {
	rl *resilience.RateLimiter
}

func NewRateLimitPolicy(cfg resilience.RateLimiterConfig) *RateLimitPolicy {
	return &RateLimitPolicy{rl: resilience.NewRateLimiter(cfg)}
}

func (p *RateLimitPolicy) Execute(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	if err := p.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return fn(ctx)
}

// BulkheadPolicy bounds the number of sends in flight. The slot is held
// until the response headers arrive.
type BulkheadPolicy struct {
	b *resilience.Bulkhead
}

func NewBulkheadPolicy(cfg resilience.BulkheadConfig) *BulkheadPolicy {
	return &BulkheadPolicy{b: resilience.NewBulkhead(cfg)}
}

func (p *BulkheadPolicy) Execute(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	release, err := p.b.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return fn(ctx)
}

// circuitBreakers returns the breakers reachable from p.
func circuitBreakers(p Policy) []*resilience.CircuitBreaker {
	switch v := p.(type) {
	case *CircuitBreakerPolicy:
		return []*resilience.CircuitBreaker{v.cb}
	case PolicyChain:
		var out []*resilience.CircuitBreaker
		for _, inner := range v {
			out = append(out, circuitBreakers(inner)...)
		}
		return out
	}
	return nil
}
