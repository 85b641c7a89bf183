package httpclient

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/resilience"
)

type trackedBody struct {
	io.Reader
	closed *atomic.Int32
}

func (b trackedBody) Close() error {
	b.closed.Add(1)
	return nil
}

func statusResponse(status int, closed *atomic.Int32) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       trackedBody{Reader: strings.NewReader(http.StatusText(status)), closed: closed},
	}
}

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestRetryPolicy_RetriesStatus(t *testing.T) {
	var calls, closed atomic.Int32
	p := NewRetryPolicy(fastRetry(3))

	resp, err := p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		calls.Add(1)
		return statusResponse(http.StatusServiceUnavailable, &closed), nil
	})
	if err != nil {
		t.Fatalf("expected the last response, got error %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if closed.Load() != 2 {
		t.Errorf("expected the 2 discarded responses closed, got %d", closed.Load())
	}
}

func TestRetryPolicy_SucceedsAfterFailure(t *testing.T) {
	var calls, closed atomic.Int32
	p := NewRetryPolicy(fastRetry(5))

	resp, err := p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		switch calls.Add(1) {
		case 1:
			return nil, stderrors.New("connection reset")
		case 2:
			return statusResponse(http.StatusBadGateway, &closed), nil
		}
		return statusResponse(http.StatusOK, &closed), nil
	})
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %v, err %v", resp, err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestRetryPolicy_DoesNotRetry(t *testing.T) {
	tests := []struct {
		name string
		resp func(closed *atomic.Int32) (*http.Response, error)
	}{
		{"non retryable status", func(c *atomic.Int32) (*http.Response, error) { return statusResponse(http.StatusNotFound, c), nil }},
		{"non retryable app error", func(*atomic.Int32) (*http.Response, error) {
			return nil, errors.InvalidState("bad descriptor")
		}},
		{"canceled", func(*atomic.Int32) (*http.Response, error) { return nil, context.Canceled }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls, closed atomic.Int32
			p := NewRetryPolicy(fastRetry(3))
			_, _ = p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
				calls.Add(1)
				return tt.resp(&closed)
			})
			if calls.Load() != 1 {
				t.Errorf("expected 1 attempt, got %d", calls.Load())
			}
		})
	}
}

func TestRetryPolicy_CustomStatusCodes(t *testing.T) {
	var calls, closed atomic.Int32
	p := NewRetryPolicy(fastRetry(2), http.StatusConflict)

	_, _ = p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		calls.Add(1)
		return statusResponse(http.StatusConflict, &closed), nil
	})
	if calls.Load() != 2 {
		t.Errorf("expected 409 to be retried, got %d attempts", calls.Load())
	}
}

func TestRetryPolicy_ContextDone(t *testing.T) {
	var closed atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := NewRetryPolicy(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour})

	resp, err := p.Execute(ctx, func(context.Context) (*http.Response, error) {
		cancel()
		return statusResponse(http.StatusServiceUnavailable, &closed), nil
	})
	if !stderrors.Is(err, context.Canceled) || resp != nil {
		t.Fatalf("expected context.Canceled, got %v, %v", resp, err)
	}
}

func TestCircuitBreakerPolicy(t *testing.T) {
	var calls, closed atomic.Int32
	p := NewCircuitBreakerPolicy(resilience.CircuitBreakerConfig{Name: "billing", MaxFailures: 2, Timeout: time.Minute})
	send := func(context.Context) (*http.Response, error) {
		calls.Add(1)
		return statusResponse(http.StatusInternalServerError, &closed), nil
	}

	for i := 0; i < 2; i++ {
		resp, err := p.Execute(context.Background(), send)
		if err != nil || resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("attempt %d: expected the 500 response, got %v, err %v", i, resp, err)
		}
	}
	if p.Breaker().State() != resilience.StateOpen {
		t.Fatalf("expected the circuit open, got %v", p.Breaker().State())
	}

	resp, err := p.Execute(context.Background(), send)
	if resp != nil || !errors.IsCode(err, errors.ErrCodeTransportFault) {
		t.Fatalf("expected TRANSPORT_FAULT, got %v, %v", resp, err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Retryable || appErr.Details["circuit"] != "billing" {
		t.Errorf("unexpected fault %+v", appErr)
	}
	if !stderrors.Is(err, resilience.ErrCircuitOpen) {
		t.Error("expected the fault to wrap ErrCircuitOpen")
	}
	if calls.Load() != 2 {
		t.Errorf("expected the open circuit to skip the send, got %d calls", calls.Load())
	}
}

func TestCircuitBreakerPolicy_ClientErrorsDoNotCount(t *testing.T) {
	var closed atomic.Int32
	p := NewCircuitBreakerPolicy(resilience.CircuitBreakerConfig{Name: "billing", MaxFailures: 1, Timeout: time.Minute})
	for i := 0; i < 3; i++ {
		_, _ = p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
			return statusResponse(http.StatusNotFound, &closed), nil
		})
	}
	if p.Breaker().State() == resilience.StateOpen {
		t.Error("expected 4xx responses to leave the circuit closed")
	}
}

func TestPolicyChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Policy {
		return PolicyFunc(func(ctx context.Context, fn func(context.Context) (*http.Response, error)) (*http.Response, error) {
			order = append(order, name+":before")
			resp, err := fn(ctx)
			order = append(order, name+":after")
			return resp, err
		})
	}

	chain := Policies(tag("outer"), nil, tag("inner"))
	_, _ = chain.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		order = append(order, "send")
		return &http.Response{StatusCode: http.StatusOK}, nil
	})

	want := "outer:before inner:before send inner:after outer:after"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPolicyChain_RetryAroundBreaker(t *testing.T) {
	var calls, closed atomic.Int32
	breaker := NewCircuitBreakerPolicy(resilience.CircuitBreakerConfig{Name: "billing", MaxFailures: 1, Timeout: time.Minute})
	chain := Policies(NewRetryPolicy(fastRetry(3)), breaker)

	_, err := chain.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		calls.Add(1)
		return statusResponse(http.StatusServiceUnavailable, &closed), nil
	})
	if !errors.IsCode(err, errors.ErrCodeTransportFault) {
		t.Fatalf("expected the open circuit to end the retries, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 send before the circuit opened, got %d", calls.Load())
	}
}

func TestBulkheadPolicy(t *testing.T) {
	p := NewBulkheadPolicy(resilience.BulkheadConfig{Name: "billing", MaxConcurrent: 1})
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
			close(entered)
			<-release
			return &http.Response{StatusCode: http.StatusOK}, nil
		})
	}()
	<-entered

	_, err := p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		t.Error("expected the second call to be rejected")
		return nil, nil
	})
	close(release)
	if err == nil {
		t.Fatal("expected a bulkhead rejection")
	}
}

func TestRateLimitPolicy(t *testing.T) {
	p := NewRateLimitPolicy(resilience.RateLimiterConfig{Name: "billing", Rate: 1000, Burst: 1})
	resp, err := p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK}, nil
	})
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected result %v, %v", resp, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Execute(ctx, func(context.Context) (*http.Response, error) { return nil, nil }); err == nil {
		t.Error("expected a canceled wait to fail")
	}
}
