package inventory

import (
	"context"
	"time"

	domcatalog "github.com/h4food/foodmarket/internal/domain/catalog"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const workerService = "inventory_worker"

// Worker reacts to ledger events. It counts depletions per category and logs
// an owner-facing alert so listings can be restocked.
type Worker struct {
	subscriber domoutbox.Subscriber
	tracer     observability.Tracer

	log             observability.Logger
	reqCounter      observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram    observability.Histogram // usecase_duration_seconds{use_case}
	depletedCounter observability.Counter   // inventory_stock_depleted_total{category}
}

func NewWorker(subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	tel = observability.OrNop(tel)
	metricsProvider := tel.Metrics()
	return &Worker{
		subscriber:      subscriber,
		tracer:          tel.Tracer(),
		log:             tel.Logger().With(observability.F("service", workerService)),
		reqCounter:      metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram:    metricsProvider.Histogram(observability.MUsecaseDuration),
		depletedCounter: metricsProvider.Counter(observability.MStockDepleted),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domcatalog.StockDepletedEvent{}.EventName(), w.handleStockDepleted)
}

func (w *Worker) handleStockDepleted(ctx context.Context, e domoutbox.Event) error {
	const useCase = "inventory.worker.stock_depleted"
	evt, ok := e.(domcatalog.StockDepletedEvent)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}

	ctx, span := w.tracer.Start(ctx, spanPrefix+"StockDepleted",
		attribute.String("use_case", useCase),
		attribute.String("event", e.EventName()),
		attribute.String("food_item.id", evt.FoodItemID),
	)
	start := time.Now()

	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("use_case", useCase),
		observability.F("food_item_id", evt.FoodItemID),
	)

	category := evt.Category
	if category == "" {
		category = "uncategorized"
	}
	w.depletedCounter.Add(1, observability.L("category", category))
	logger.Warn("stock_depleted",
		observability.F("name", evt.Name),
		observability.F("category", category),
		observability.F("owner_contact", evt.OwnerContact),
		observability.F("sold_count", evt.SoldCount),
	)

	lat := time.Since(start).Seconds()
	w.observe(useCase, "success", lat)
	logger.Info("use_case_done",
		observability.F("outcome", "success"),
		observability.F("status", "OK"),
		observability.F("latency_seconds", lat),
	)
	span.SetStatus(codes.Ok, "OK")
	span.End()
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
