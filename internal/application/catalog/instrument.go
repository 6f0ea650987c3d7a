package catalog

import (
	"context"
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	catalogService = "catalog-service"
	spanPrefix     = "UC."
)

// instrument gives every catalog operation the same span, RED metrics and
// use_case_done line.
type instrument struct {
	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func newInstrument(tel observability.Observability) instrument {
	tel = observability.OrNop(tel)
	return instrument{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", catalogService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// track starts the span; the returned func must be called with the final error.
func (in instrument) track(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, func(err error, fields ...observability.Field)) {
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := in.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	start := time.Now()

	return ctx, func(err error, fields ...observability.Field) {
		outcome, status := "success", "OK"
		if err != nil {
			outcome, status = "error", string(failure.KindOf(err))
			switch failure.KindOf(err) {
			case failure.KindNotFound, failure.KindValidation, failure.KindInvalidArgument, failure.KindConflict:
				outcome = "rejected"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()

		lat := time.Since(start).Seconds()
		in.reqCounter.Add(1, observability.L("use_case", useCase), observability.L("outcome", outcome))
		in.durHistogram.Observe(lat, observability.L("use_case", useCase))

		fields = append(fields,
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
		)
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}
}
