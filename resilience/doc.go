// Package resilience provides the fault-tolerance building blocks behind
// request policies: retry with exponential backoff, a circuit breaker, a
// bulkhead and a token bucket rate limiter.
//
// They compose by nesting:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("billing"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100, Burst: 20})
//
//	err := cb.ExecuteContext(ctx, func(ctx context.Context) error {
//	    return rl.ExecuteWait(ctx, send)
//	})
package resilience
