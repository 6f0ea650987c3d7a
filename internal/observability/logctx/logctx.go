// Package logctx carries the request- or event-scoped logger through context.
package logctx

import (
	"context"

	"github.com/h4food/foodmarket/internal/observability"
	"go.opentelemetry.io/otel/trace"
)

type loggerKey struct{}

func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Scoped derives a logger from base tagged with fields and, when sc is valid,
// trace_id and span_id. The logger is stored on the returned context.
func Scoped(ctx context.Context, base observability.Logger, sc trace.SpanContext, fields ...observability.Field) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}
	if sc.IsValid() {
		fields = append(fields[:len(fields):len(fields)],
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	return With(ctx, base.With(fields...))
}

func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

// FromOr never returns nil.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	if fallback == nil {
		return observability.NopLogger()
	}
	return fallback
}
