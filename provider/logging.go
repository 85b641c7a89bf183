package provider

import (
	"context"
	"time"

	"github.com/kbukum/httpapi/logger"
)

// WithLogging logs every Execute at debug level, or at warn level when it
// fails, tagged with the provider name and the trace ids in ctx.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return Around(func(ctx context.Context, input I, next RequestResponse[I, O]) (O, error) {
		start := time.Now()
		out, err := next.Execute(ctx, input)

		fields := logger.DurationFields(next.Name(), time.Since(start))
		fields["provider"] = next.Name()
		l := log.WithContext(ctx)
		if err != nil {
			fields[logger.FieldError] = err.Error()
			l.Warn("provider execute failed", fields)
			return out, err
		}
		l.Debug("provider execute ok", fields)
		return out, nil
	})
}
