package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/h4food/foodmarket/internal/application/inventory"
	"github.com/h4food/foodmarket/internal/domain/failure"
	domain "github.com/h4food/foodmarket/internal/domain/order"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService      = "order-service"
	useCaseOrderPlace = "order.place"
	spanPrefix        = "UC."
	publishPeer       = "outbox"
	publishTimeout    = 300 * time.Millisecond
)

var (
	ErrConflict   = domain.ErrConflict
	ErrNotFound   = domain.ErrNotFound
	ErrInFlight   = failure.New(failure.KindConflict, "order: a request with this idempotency key is still in progress")
	ErrKeyReused  = failure.New(failure.KindConflict, "order: idempotency key was used for a different order")
	ErrRepository = errors.New("order: repository failure")
)

// PlaceOrderUseCase debits stock through the ledger and then records the order.
type PlaceOrderUseCase struct {
	ledger      Ledger
	repo        domain.Repository
	idem        IdempotencyStore
	idGenerator IDGenerator
	publisher   domoutbox.Publisher
	tracer      observability.Tracer

	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	partialCount observability.Counter   // ledger_partial_failures_total{reason}

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewPlaceOrderUseCase wires the use case. idem may be nil, in which case keys
// are only checked against stored orders.
func NewPlaceOrderUseCase(
	ledger Ledger,
	repo domain.Repository,
	idem IdempotencyStore,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *PlaceOrderUseCase {
	tel = observability.OrNop(tel)
	metricsProvider := tel.Metrics()

	return &PlaceOrderUseCase{
		ledger:       ledger,
		repo:         repo,
		idem:         idem,
		idGenerator:  idGen,
		publisher:    publisher,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		partialCount: metricsProvider.Counter(observability.MLedgerPartialFailures),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

type PlaceOrderInput struct {
	IdempotencyKey  string
	FoodItemID      string
	OrderedQuantity int
	PurchaserID     string
	PurchaserName   string
}

type PlaceOrderResult struct {
	Order *domain.Order
	// Replayed is set when an earlier order with the same key was returned.
	Replayed bool
}

func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseOrderPlace))
	cmd.PurchaserID = strings.TrimSpace(cmd.PurchaserID)
	cmd.IdempotencyKey = strings.TrimSpace(cmd.IdempotencyKey)

	var orderID string
	var publishErr error
	remaining := -1

	ctx, span := uc.tracer.Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("use_case", useCaseOrderPlace),
		attribute.String("order.purchaser_id", cmd.PurchaserID),
		attribute.String("food_item.id", cmd.FoodItemID),
		attribute.Int("order.quantity", cmd.OrderedQuantity),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseOrderPlace),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseOrderPlace))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("food_item_id", cmd.FoodItemID),
			observability.F("ordered_quantity", cmd.OrderedQuantity),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if orderID != "" {
			fields = append(fields, observability.F("order_id", orderID))
		}
		if remaining >= 0 {
			fields = append(fields, observability.F("remaining", remaining))
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
	}()

	if cmd.PurchaserID == "" {
		outcome, statusText = "error", "PURCHASER_ID_REQUIRED"
		return nil, domain.ErrPurchaserRequired
	}
	if strings.TrimSpace(cmd.FoodItemID) == "" {
		outcome, statusText = "error", "FOOD_ITEM_ID_REQUIRED"
		return nil, domain.ErrFoodItemRequired
	}
	if cmd.OrderedQuantity <= 0 {
		outcome, statusText = "error", "QUANTITY_INVALID"
		return nil, domain.ErrInvalidQuantity
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	reserved := false
	if cmd.IdempotencyKey != "" {
		if uc.idem != nil {
			acquired, rerr := uc.idem.Reserve(ctx, cmd.PurchaserID, cmd.IdempotencyKey)
			if rerr != nil {
				outcome, statusText = "error", "IDEMPOTENCY_RESERVE_FAILED"
				return nil, fmt.Errorf("order: reserve idempotency key: %w", rerr)
			}
			reserved = acquired
		}
		if !reserved {
			existing, lerr := uc.repo.FindByIdempotency(ctx, cmd.PurchaserID, cmd.IdempotencyKey)
			switch {
			case lerr == nil:
				orderID = existing.ID
				if !sameRequest(existing, cmd) {
					outcome, statusText = "rejected", "IDEMPOTENCY_KEY_REUSED"
					return nil, ErrKeyReused
				}
				statusText = "IDEMPOTENT_REPLAY"
				span.AddEvent("order.idempotent_replay",
					trace.WithAttributes(attribute.String("order.id", orderID)),
				)
				return &PlaceOrderResult{Order: existing, Replayed: true}, nil
			case errors.Is(lerr, failure.ErrNotFound) && uc.idem != nil:
				outcome, statusText = "rejected", "IDEMPOTENCY_IN_FLIGHT"
				return nil, ErrInFlight
			case errors.Is(lerr, failure.ErrNotFound):
				// no reservation store; the stored orders are the only record
			default:
				outcome, statusText = "error", "IDEMPOTENCY_LOOKUP_FAILED"
				return nil, wrapRepositoryError(lerr)
			}
		}
	}

	purchase, err := uc.ledger.Execute(ctx, inventory.PurchaseInput{
		FoodItemID:      cmd.FoodItemID,
		OrderedQuantity: cmd.OrderedQuantity,
		PurchaserID:     cmd.PurchaserID,
	})
	if err != nil {
		if definitiveRejection(err) {
			outcome, statusText = "rejected", strings.ToUpper(string(failure.KindOf(err)))
			if reserved {
				uc.release(ctx, logger, cmd)
			}
			return nil, err
		}
		// The decrement may have applied before the store failed, so the key
		// stays reserved until it expires.
		outcome, statusText = "error", "LEDGER_FAILED"
		if reserved {
			span.AddEvent("order.idempotency_key_retained")
			logger.Warn("idempotency_key_retained",
				observability.F("idempotency_key", cmd.IdempotencyKey),
				observability.F("error", err),
			)
		}
		return nil, err
	}
	remaining = purchase.Quantity

	line := domain.Line{FoodItemID: purchase.FoodItemID}
	if purchase.Item != nil {
		line.FoodName = purchase.Item.Name
		line.UnitPrice = purchase.Item.Price
	}
	entity, derr := domain.New(uc.idGenerator.NewID(), cmd.PurchaserID, cmd.PurchaserName, cmd.IdempotencyKey, line, cmd.OrderedQuantity)
	if derr == nil {
		// The stock is already gone, so the record is written even if the caller left.
		derr = uc.repo.Insert(context.WithoutCancel(ctx), entity)
	}
	if derr != nil {
		outcome, statusText = "error", "ORDER_RECORD_FAILED"
		pf := &PartialFailureError{
			FoodItemID:      cmd.FoodItemID,
			PurchaserID:     cmd.PurchaserID,
			OrderedQuantity: cmd.OrderedQuantity,
			Remaining:       purchase.Quantity,
			SoldCount:       purchase.SoldCount,
			Err:             derr,
		}
		uc.partialCount.Add(1, observability.L("reason", string(failure.KindOf(derr))))
		span.AddEvent("order.record_failed")
		logger.Error("order_record_failed",
			observability.F("food_item_id", pf.FoodItemID),
			observability.F("purchaser_id", pf.PurchaserID),
			observability.F("ordered_quantity", pf.OrderedQuantity),
			observability.F("remaining", pf.Remaining),
			observability.F("error", derr),
		)
		// The key stays reserved so a retry cannot debit the stock twice.
		publishErr = uc.publish(ctx, domain.OrderRecordFailedEvent{
			FoodItemID:      pf.FoodItemID,
			PurchaserID:     pf.PurchaserID,
			OrderedQuantity: pf.OrderedQuantity,
			Remaining:       pf.Remaining,
			SoldCount:       pf.SoldCount,
			Reason:          derr.Error(),
			OccurredAt:      time.Now().UTC(),
		})
		return nil, pf
	}
	orderID = entity.ID

	if publishErr = uc.publish(ctx, domain.NewOrderPlacedEvent(entity)); publishErr != nil {
		statusText = "EVENT_PUBLISH_FAILED"
	}

	span.SetAttributes(attribute.String("order.id", orderID), attribute.Int("food_item.remaining", remaining))
	span.AddEvent("order.placed", trace.WithAttributes(attribute.String("order.id", orderID)))

	return &PlaceOrderResult{Order: entity}, nil
}

// definitiveRejection reports ledger errors that guarantee no stock was taken.
func definitiveRejection(err error) bool {
	switch failure.KindOf(err) {
	case failure.KindNotFound, failure.KindInsufficientStock, failure.KindInvalidArgument, failure.KindValidation:
		return true
	}
	return false
}

func sameRequest(existing *domain.Order, cmd PlaceOrderInput) bool {
	return existing.FoodItemID == strings.TrimSpace(cmd.FoodItemID) &&
		existing.OrderedQuantity == cmd.OrderedQuantity
}

func (uc *PlaceOrderUseCase) release(ctx context.Context, logger observability.Logger, cmd PlaceOrderInput) {
	if err := uc.idem.Release(context.WithoutCancel(ctx), cmd.PurchaserID, cmd.IdempotencyKey); err != nil {
		logger.Warn("idempotency_release_failed", observability.F("error", err))
	}
}

func (uc *PlaceOrderUseCase) publish(ctx context.Context, event domoutbox.Event) error {
	if uc.publisher == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	pubStart := time.Now()
	pubOutcome := "success"

	err := uc.publisher.Publish(pubCtx, event)
	if err != nil {
		pubOutcome = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			pubOutcome = "canceled"
		}
	}

	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
		observability.L("outcome", pubOutcome),
	)
	uc.extHistogram.Observe(time.Since(pubStart).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
	)
	return err
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, failure.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, failure.ErrConflict):
		return ErrConflict
	case failure.KindOf(err) != failure.KindInternal:
		return fmt.Errorf("order: %w", err)
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
