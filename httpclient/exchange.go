package httpclient

import (
	"net/http"
	"time"

	"github.com/kbukum/httpapi/di"
	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/observability"
)

// Call is the ambient context of one Send. It is passed explicitly through
// the handler chain and to loggers.
type Call struct {
	Trace    *observability.TraceInfo
	Services di.Container
	Options  *Options
}

func (c Call) check() error {
	switch {
	case c.Trace == nil:
		return errors.ConfigurationFault("trace info is missing from the call")
	case c.Services == nil:
		return errors.ConfigurationFault("services are missing from the call")
	case c.Options == nil:
		return errors.ConfigurationFault("options are missing from the call")
	}
	return nil
}

// Exchange is the unit the handler chain executes: the descriptor, its
// wire request and the attempt number, starting at 1.
type Exchange struct {
	Call    Call
	Request *Request
	HTTP    *http.Request
	Attempt int
}

// URI returns the full request URI.
func (e *Exchange) URI() string {
	if e.HTTP == nil || e.HTTP.URL == nil {
		return ""
	}
	return e.HTTP.URL.String()
}

// nextAttempt advances the attempt counter and, after the first attempt,
// replaces the consumed body with a fresh copy.
func (e *Exchange) nextAttempt() error {
	e.Attempt++
	if e.Attempt == 1 || e.HTTP.Body == nil || e.HTTP.Body == http.NoBody {
		return nil
	}
	if e.HTTP.GetBody == nil {
		fault := errors.TransportFault(nil).WithDetail("attempt", e.Attempt)
		fault.Message = "request body cannot be replayed"
		fault.Retryable = false
		return fault
	}
	body, err := e.HTTP.GetBody()
	if err != nil {
		fault := errors.TransportFault(err).WithDetail("attempt", e.Attempt)
		fault.Retryable = false
		return fault
	}
	e.HTTP.Body = body
	return nil
}

type callConfig struct {
	services di.Container
	timeout  *time.Duration
}

// CallOption adjusts a single Send.
type CallOption func(*callConfig)

// WithCallServices resolves loggers and sinks from services for this call
// instead of the client's container.
func WithCallServices(services di.Container) CallOption {
	return func(c *callConfig) { c.services = services }
}

// WithCallTimeout overrides the request timeout of the descriptor.
func WithCallTimeout(d time.Duration) CallOption {
	return func(c *callConfig) { c.timeout = &d }
}
