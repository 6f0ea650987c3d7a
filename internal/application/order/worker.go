package order

import (
	"context"
	"time"

	domorder "github.com/h4food/foodmarket/internal/domain/order"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const workerService = "order-worker"

// Worker watches order events. A record_failed event means stock left the
// ledger without an order behind it; the worker raises it for reconciliation.
type Worker struct {
	subscriber domoutbox.Subscriber
	tracer     observability.Tracer

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewWorker(subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	tel = observability.OrNop(tel)
	return &Worker{
		subscriber:   subscriber,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", workerService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderRecordFailedEvent{}.EventName(), w.handleRecordFailed)
}

func (w *Worker) handleRecordFailed(ctx context.Context, e domoutbox.Event) error {
	const useCase = "order.worker.record_failed"
	evt, ok := e.(domorder.OrderRecordFailedEvent)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}

	ctx, span := w.tracer.Start(ctx, spanPrefix+"OrderRecordFailed",
		attribute.String("use_case", useCase),
		attribute.String("event", e.EventName()),
		attribute.String("food_item.id", evt.FoodItemID),
	)
	start := time.Now()

	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("use_case", useCase),
		observability.F("event", e.EventName()),
	)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	defer func() {
		lat := time.Since(start).Seconds()
		w.observe(useCase, "success", lat)
		logger.Info("use_case_done",
			observability.F("outcome", "success"),
			observability.F("status", "RECONCILIATION_REQUIRED"),
			observability.F("latency_seconds", lat),
		)
		span.SetStatus(codes.Ok, "RECONCILIATION_REQUIRED")
		span.End()
	}()

	logger.Error("reconciliation_required",
		observability.F("food_item_id", evt.FoodItemID),
		observability.F("purchaser_id", evt.PurchaserID),
		observability.F("ordered_quantity", evt.OrderedQuantity),
		observability.F("remaining", evt.Remaining),
		observability.F("sold_count", evt.SoldCount),
		observability.F("reason", evt.Reason),
		observability.F("occurred_at", evt.OccurredAt.Format(time.RFC3339Nano)),
	)
	return nil
}

func (w *Worker) count(useCase, outcome string) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
}

func (w *Worker) observe(useCase string, outcome string, latencySeconds float64) {
	w.count(useCase, outcome)
	w.durHistogram.Observe(latencySeconds, observability.L("use_case", useCase))
}
