package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domcatalog "github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/failure"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	inventoryService = "inventory-service"
	useCasePurchase  = "inventory.purchase"
	spanPrefix       = "UC."
	publishPeer      = "outbox"
	publishTimeout   = 300 * time.Millisecond
)

type PurchaseInput struct {
	FoodItemID      string
	OrderedQuantity int
	// PurchaserID is carried into events only; the ledger does not check it.
	PurchaserID string
}

// PurchaseResult is the item state right after an applied decrement.
type PurchaseResult struct {
	FoodItemID string
	Quantity   int
	SoldCount  int
	Depleted   bool
	Item       *domcatalog.FoodItem
}

// PurchaseUseCase is the inventory ledger. Its only stock write is a single
// CompareAndDecrement; it never reads then writes and never retries.
type PurchaseUseCase struct {
	repo      domcatalog.Repository
	publisher domoutbox.Publisher
	tracer    observability.Tracer
	log       observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewPurchaseUseCase(repo domcatalog.Repository, publisher domoutbox.Publisher, tel observability.Observability) *PurchaseUseCase {
	tel = observability.OrNop(tel)
	metricsProvider := tel.Metrics()
	return &PurchaseUseCase{
		repo:         repo,
		publisher:    publisher,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", inventoryService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

func (uc *PurchaseUseCase) Execute(ctx context.Context, in PurchaseInput) (_ *PurchaseResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCasePurchase),
		observability.F("food_item_id", in.FoodItemID),
		observability.F("ordered_quantity", in.OrderedQuantity),
	)

	ctx, span := uc.tracer.Start(ctx, spanPrefix+"Purchase",
		attribute.String("use_case", useCasePurchase),
		attribute.String("food_item.id", in.FoodItemID),
		attribute.Int("order.quantity", in.OrderedQuantity),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var result *PurchaseResult
	var publishErr error

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		latency := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("use_case", useCasePurchase),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(latency, observability.L("use_case", useCasePurchase))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if result != nil {
			fields = append(fields,
				observability.F("remaining", result.Quantity),
				observability.F("sold_count", result.SoldCount),
			)
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if strings.TrimSpace(in.FoodItemID) == "" {
		outcome, statusText = "error", "FOOD_ITEM_ID_REQUIRED"
		return nil, domcatalog.ErrIDRequired
	}
	if in.OrderedQuantity <= 0 {
		outcome, statusText = "error", "QUANTITY_INVALID"
		return nil, domcatalog.ErrInvalidQuantity
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	res, err := uc.repo.CompareAndDecrement(ctx, in.FoodItemID, in.OrderedQuantity)
	if err != nil {
		outcome, statusText = "error", "STORE_FAILED"
		return nil, fmt.Errorf("inventory: decrement: %w", err)
	}

	switch res.Outcome {
	case domcatalog.OutcomeApplied:
	case domcatalog.OutcomeNotFound:
		outcome, statusText = "rejected", "NOT_FOUND"
		return nil, domcatalog.ErrNotFound
	case domcatalog.OutcomeInsufficientStock:
		outcome, statusText = "rejected", "INSUFFICIENT_STOCK"
		return nil, domcatalog.ErrInsufficientStock
	default:
		outcome, statusText = "error", "UNKNOWN_OUTCOME"
		return nil, failure.Newf(failure.KindInternal, "inventory: unexpected decrement outcome %q", res.Outcome)
	}
	if res.Item == nil {
		outcome, statusText = "error", "MISSING_ITEM"
		return nil, failure.New(failure.KindInternal, "inventory: store applied a decrement without returning the item")
	}

	item := res.Item
	next, terr := domcatalog.StateFor(item.Quantity+in.OrderedQuantity).OnPurchase(item.Quantity)
	if terr != nil {
		// The write already happened; report it and keep the applied result.
		logger.Warn("stock_state_transition_unexpected", observability.F("error", terr.Error()))
		next = domcatalog.StateFor(item.Quantity)
	}
	result = &PurchaseResult{
		FoodItemID: item.ID,
		Quantity:   item.Quantity,
		SoldCount:  item.SoldCount,
		Depleted:   next.Status() == domcatalog.StockDepleted,
		Item:       item,
	}
	span.SetAttributes(
		attribute.Int("food_item.remaining", item.Quantity),
		attribute.String("food_item.stock_status", string(next.Status())),
	)

	var event domoutbox.Event = domcatalog.NewFoodItemPurchasedEvent(item, in.PurchaserID, in.OrderedQuantity)
	if result.Depleted {
		event = domcatalog.NewStockDepletedEvent(item)
		span.AddEvent("inventory.stock_depleted", trace.WithAttributes(attribute.String("food_item.id", item.ID)))
	}
	if publishErr = uc.publish(ctx, event); publishErr != nil {
		// Events are advisory; the purchase stands.
		statusText = "EVENT_PUBLISH_FAILED"
	}

	return result, nil
}

func (uc *PurchaseUseCase) publish(ctx context.Context, event domoutbox.Event) error {
	if uc.publisher == nil || event == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	start := time.Now()
	err := uc.publisher.Publish(pubCtx, event)
	outcome := "success"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	case err != nil:
		outcome = "error"
	}

	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
	)
	return err
}
