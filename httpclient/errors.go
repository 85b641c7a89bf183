package httpclient

import (
	"context"
	stderrors "errors"
	"net"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/observability"
	"github.com/kbukum/httpapi/util"
)

// isHardError reports errors that Send returns instead of recording on the
// Response: descriptor and configuration faults.
func isHardError(err error) bool {
	return errors.IsCode(err, errors.ErrCodeInvalidState) || errors.IsCode(err, errors.ErrCodeConfigurationFault)
}

// isTimeout reports a deadline or a network timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) || errors.IsCode(err, errors.ErrCodeTimeout) {
		return true
	}
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

func isCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || errors.IsCode(err, errors.ErrCodeCanceled)
}

// IsConnection reports a failure to reach the upstream: dial, DNS or a
// refused connection.
func IsConnection(err error) bool {
	var opErr *net.OpError
	if stderrors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return stderrors.As(err, &dnsErr)
}

// recordFailure classifies a failed exchange onto resp. A timeout counts
// only when the per-request deadline fired while the caller's context was
// still live; a done caller context is a cancellation, whatever its cause.
// bounded is nil when the request has no timeout.
func recordFailure(resp *Response, caller, bounded context.Context, err error) {
	switch {
	case bounded != nil && stderrors.Is(bounded.Err(), context.DeadlineExceeded) && caller.Err() == nil:
		resp.RequestTimedOut = util.Ptr(true)
	case caller.Err() != nil:
		resp.OperationCanceled = util.Ptr(true)
	case isTimeout(err):
		resp.RequestTimedOut = util.Ptr(true)
	default:
		if _, ok := errors.AsAppError(err); ok {
			resp.Err = err
		} else {
			resp.Err = errors.TransportFault(err)
		}
	}
}

// outcome names the result of a Send for spans and metrics.
func outcome(resp *Response) string {
	switch {
	case resp.TimedOut():
		return observability.OutcomeTimeout
	case resp.Canceled():
		return observability.OutcomeCanceled
	case resp.Err != nil:
		return observability.OutcomeTransportFault
	case resp.StatusCode == nil:
		return observability.OutcomeFault
	case !resp.StatusCodeIsOK():
		return observability.OutcomeHTTPError
	}
	return observability.OutcomeOK
}
