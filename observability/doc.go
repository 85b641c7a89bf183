// Package observability provides the OpenTelemetry integration of the
// client: trace handles, send spans and client metrics.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	trace := observability.NewTraceInfo(ctx, "billing-service")
//
// Metrics:
//
//	metrics, err := observability.NewClientMetrics(observability.Meter("httpapi"))
//	ctx, op := observability.StartClientOperation(ctx, "billing", "GET", uri, metrics)
//	op.End(observability.OutcomeOK, 200, nil)
package observability
