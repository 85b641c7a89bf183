package provider

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/httpapi/observability"
)

// WithTracing runs every Execute inside a client span called spanName.
func WithTracing[I, O any](spanName string) Middleware[I, O] {
	return Around(func(ctx context.Context, input I, next RequestResponse[I, O]) (O, error) {
		ctx, span := observability.StartSpan(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		observability.SetSpanAttribute(ctx, observability.AttrClientName, next.Name())

		out, err := next.Execute(ctx, input)
		observability.SetSpanError(ctx, err)
		return out, err
	})
}
