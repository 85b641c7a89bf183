package httpclient

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/logger"
)

// RequestResponseLogger records every attempt. LogRequest returns a handle
// that is passed to LogResponse; uuid.Nil skips LogResponse. Errors from
// either hook are reported to the ErrorSink and never fail the call.
type RequestResponseLogger interface {
	LogRequest(ctx context.Context, req RequestSnapshot, body *ContentSnapshot, call Call) (uuid.UUID, error)
	LogResponse(ctx context.Context, id uuid.UUID, resp ResponseSnapshot, body *ContentSnapshot, call Call) error
}

// StructuredLogger writes request and response events through a
// logger.Logger.
type StructuredLogger struct {
	log *logger.Logger
}

// NewStructuredLogger returns a StructuredLogger. A nil log uses the
// registered "httpclient" logger.
func NewStructuredLogger(log *logger.Logger) *StructuredLogger {
	if log == nil {
		log = logger.Get("httpclient")
	}
	return &StructuredLogger{log: log}
}

func (s *StructuredLogger) LogRequest(ctx context.Context, req RequestSnapshot, body *ContentSnapshot, call Call) (uuid.UUID, error) {
	id := uuid.New()
	fields := callFields(call)
	fields[logger.FieldCorrelationID] = id.String()
	fields[logger.FieldMethod] = req.Method
	fields[logger.FieldURI] = req.URI
	fields[logger.FieldAttempt] = req.Attempt
	fields[logger.FieldHeaders] = req.Headers
	if req.ContentType != "" {
		fields[logger.FieldContentType] = req.ContentType
	}
	if body != nil {
		fields[logger.FieldBody] = body.Body
		fields[logger.FieldRequestBytes] = body.Length
	}
	s.log.WithContext(ctx).Info("http request", fields)
	return id, nil
}

func (s *StructuredLogger) LogResponse(ctx context.Context, id uuid.UUID, resp ResponseSnapshot, body *ContentSnapshot, call Call) error {
	fields := callFields(call)
	fields[logger.FieldCorrelationID] = id.String()
	fields[logger.FieldStatusCode] = resp.StatusCode
	fields[logger.FieldDuration] = resp.ElapsedMs
	if resp.Headers != "" {
		fields[logger.FieldHeaders] = resp.Headers
	}
	if body != nil {
		fields[logger.FieldBody] = body.Body
	}

	log := s.log.WithContext(ctx)
	switch {
	case resp.Error != "":
		fields[logger.FieldError] = resp.Error
		fields[logger.FieldTimedOut] = resp.TimedOut
		fields[logger.FieldCanceled] = resp.Canceled
		log.Warn("http response failed", fields)
	case resp.StatusCode >= 400:
		log.Warn("http response", fields)
	default:
		log.Info("http response", fields)
	}
	return nil
}

func callFields(call Call) map[string]interface{} {
	fields := map[string]interface{}{}
	if call.Trace != nil {
		for k, v := range call.Trace.LogFields() {
			fields[k] = v
		}
	}
	if call.Options != nil {
		fields[logger.FieldClient] = call.Options.ClientName
	}
	return fields
}

// ErrorSink receives failures that must not fail the call, such as
// logger hook errors.
type ErrorSink interface {
	Report(ctx context.Context, err error, call Call)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(ctx context.Context, err error, call Call)

func (f ErrorSinkFunc) Report(ctx context.Context, err error, call Call) { f(ctx, err, call) }

// LoggerErrorSink writes reported errors at error level.
type LoggerErrorSink struct {
	Log *logger.Logger
}

func (s LoggerErrorSink) Report(ctx context.Context, err error, call Call) {
	log := s.Log
	if log == nil {
		log = logger.Get("httpclient")
	}
	fields := callFields(call)
	fields[logger.FieldError] = err.Error()
	if appErr, ok := errors.AsAppError(err); ok {
		fields[logger.FieldErrorCode] = string(appErr.Code)
	}
	log.WithContext(ctx).Error("http client fault", fields)
}
