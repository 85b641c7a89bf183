package observability

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSourceSystemName is used when a TraceInfo is created without one.
const DefaultSourceSystemName = "HttpApiClient"

// TraceInfo identifies the logical operation a request belongs to. It is
// carried explicitly through the client so loggers can correlate calls.
type TraceInfo struct {
	TraceID          uuid.UUID  `json:"trace_id"`
	SpanID           uuid.UUID  `json:"span_id"`
	ParentSpanID     *uuid.UUID `json:"parent_span_id,omitempty"`
	CorrelationID    uuid.UUID  `json:"correlation_id"`
	SourceSystemName string     `json:"source_system_name"`
	Principal        string     `json:"principal,omitempty"`
}

// NewTraceInfo creates a TraceInfo for sourceSystem. The trace id is taken
// from the OpenTelemetry span in ctx when there is a valid one.
func NewTraceInfo(ctx context.Context, sourceSystem string) *TraceInfo {
	if sourceSystem == "" {
		sourceSystem = DefaultSourceSystemName
	}
	ti := &TraceInfo{
		TraceID:          uuid.New(),
		SpanID:           uuid.New(),
		CorrelationID:    uuid.New(),
		SourceSystemName: sourceSystem,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		ti.TraceID = uuid.UUID(sc.TraceID())
	}
	return ti
}

// Child returns a TraceInfo for a nested operation: same trace and
// correlation, new span, parented to ti.
func (ti *TraceInfo) Child() *TraceInfo {
	parent := ti.SpanID
	return &TraceInfo{
		TraceID:          ti.TraceID,
		SpanID:           uuid.New(),
		ParentSpanID:     &parent,
		CorrelationID:    ti.CorrelationID,
		SourceSystemName: ti.SourceSystemName,
		Principal:        ti.Principal,
	}
}

// WithPrincipal returns a copy of ti carrying principal.
func (ti *TraceInfo) WithPrincipal(principal string) *TraceInfo {
	cp := *ti
	cp.Principal = principal
	return &cp
}

// LogFields returns the identifiers as structured log fields.
func (ti *TraceInfo) LogFields() map[string]interface{} {
	fields := map[string]interface{}{
		"trace_id":       ti.TraceID.String(),
		"span_id":        ti.SpanID.String(),
		"correlation_id": ti.CorrelationID.String(),
		"source_system":  ti.SourceSystemName,
	}
	if ti.ParentSpanID != nil {
		fields["parent_span_id"] = ti.ParentSpanID.String()
	}
	if ti.Principal != "" {
		fields["principal"] = ti.Principal
	}
	return fields
}

type traceInfoKey struct{}

// WithTraceInfo stores ti in ctx.
func WithTraceInfo(ctx context.Context, ti *TraceInfo) context.Context {
	return context.WithValue(ctx, traceInfoKey{}, ti)
}

// TraceInfoFromContext returns the TraceInfo stored in ctx, or nil.
func TraceInfoFromContext(ctx context.Context) *TraceInfo {
	if ti, ok := ctx.Value(traceInfoKey{}).(*TraceInfo); ok {
		return ti
	}
	return nil
}
