package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/httpapi/di"
	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/logger"
	"github.com/kbukum/httpapi/provider"
)

// Handler is one stage of the send chain.
type Handler = provider.Middleware[*Exchange, *http.Response]

// policyHandler runs the exchange under the policy registered for its URI.
// Every execution of the policy's unit is a new attempt.
func (c *Client) policyHandler() Handler {
	return provider.Around(func(ctx context.Context, ex *Exchange, next provider.RequestResponse[*Exchange, *http.Response]) (*http.Response, error) {
		if err := ex.Call.check(); err != nil {
			c.log.WithContext(ctx).Error("policy handler rejected call", logger.ErrorFields("policy", err))
			return nil, err
		}

		unit := func(ctx context.Context) (*http.Response, error) {
			if err := ex.nextAttempt(); err != nil {
				return nil, err
			}
			return next.Execute(ctx, ex)
		}

		policy, ok := ex.Call.Options.GetPolicy(ex.URI())
		if !ok || policy == nil {
			return unit(ctx)
		}
		return policy.Execute(ctx, unit)
	})
}

// logHandler reports each attempt to the RequestResponseLogger for its URI.
// Hook failures go to the error sink and never fail the call.
func (c *Client) logHandler() Handler {
	return provider.Around(func(ctx context.Context, ex *Exchange, next provider.RequestResponse[*Exchange, *http.Response]) (*http.Response, error) {
		if err := ex.Call.check(); err != nil {
			c.report(ctx, ex.Call, err)
			return nil, err
		}
		opts := ex.Call.Options
		rrl, ok := opts.GetLogger(ex.URI(), ex.Call.Services)
		if !ok || rrl == nil {
			return next.Execute(ctx, ex)
		}
		limit := opts.maxLoggedBody()

		var reqBody *ContentSnapshot
		if opts.LogRequestBody {
			reqBody = requestContent(ex, limit)
		}
		id, err := rrl.LogRequest(ctx, requestSnapshot(ex), reqBody, ex.Call)
		if err != nil {
			c.report(ctx, ex.Call, errors.LoggingFault("LogRequest", err))
			id = uuid.Nil
		}

		start := time.Now()
		resp, sendErr := next.Execute(ctx, ex)
		elapsed := time.Since(start)

		if id == uuid.Nil {
			return resp, sendErr
		}
		var respBody *ContentSnapshot
		if opts.LogResponseBody && sendErr == nil {
			respBody = responseContent(ctx, resp, limit)
		}
		if err := rrl.LogResponse(ctx, id, responseSnapshot(resp, sendErr, elapsed), respBody, ex.Call); err != nil {
			c.report(ctx, ex.Call, errors.LoggingFault("LogResponse", err))
		}
		return resp, sendErr
	})
}

// errorSink resolves the sink: Options.ErrorSink, then the services
// registration, then the client's logger.
func (c *Client) errorSink(call Call) ErrorSink {
	if call.Options != nil && call.Options.ErrorSink != nil {
		return call.Options.ErrorSink
	}
	if sink, ok := di.TryResolve[ErrorSink](call.Services, di.Keys.ErrorSink); ok && sink != nil {
		return sink
	}
	return LoggerErrorSink{Log: c.log}
}

func (c *Client) report(ctx context.Context, call Call, err error) {
	c.errorSink(call).Report(ctx, err, call)
}
