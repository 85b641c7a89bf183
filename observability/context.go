package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Call outcomes recorded on spans and metrics.
const (
	OutcomeOK             = "ok"
	OutcomeHTTPError      = "http_error"
	OutcomeTimeout        = "timeout"
	OutcomeCanceled       = "canceled"
	OutcomeTransportFault = "transport_fault"
	OutcomeFault          = "fault"
)

// ClientOperation tracks one client send: its span and its metrics.
type ClientOperation struct {
	Client    string
	Method    string
	URI       string
	StartTime time.Time
	Metrics   *ClientMetrics

	ctx  context.Context
	span trace.Span
}

// StartClientOperation starts the send span and records the request start.
// If metrics is nil, metric recording is skipped.
func StartClientOperation(ctx context.Context, client, method, uri string, metrics *ClientMetrics) (context.Context, *ClientOperation) {
	ctx, span := StartSpan(ctx, SpanHTTPClientSend, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String(AttrClientName, client),
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPURI, uri),
	)
	if metrics != nil {
		metrics.RecordStart(ctx, client)
	}
	return ctx, &ClientOperation{
		Client:    client,
		Method:    method,
		URI:       uri,
		StartTime: time.Now(),
		Metrics:   metrics,
		ctx:       ctx,
		span:      span,
	}
}

// Span returns the operation span.
func (op *ClientOperation) Span() trace.Span { return op.span }

// End finishes the span and records the completed request. status is 0
// when no response was received.
func (op *ClientOperation) End(outcome string, status int, err error) {
	duration := time.Since(op.StartTime)

	if err != nil {
		op.span.RecordError(err)
		op.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	if outcome != OutcomeOK {
		op.span.SetStatus(codes.Error, outcome)
	}
	if status > 0 {
		op.span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
	}
	op.span.SetAttributes(
		attribute.String(AttrOutcome, outcome),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	op.span.End()

	if op.Metrics != nil {
		op.Metrics.RecordEnd(op.ctx, op.Client, op.Method, outcome, status, duration)
	}
}

// Duration returns the elapsed time since the operation started.
func (op *ClientOperation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
