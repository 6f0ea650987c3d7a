package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/h4food/foodmarket/internal/domain/order"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	useCaseOrderCancel = "order.cancel"
	useCaseOrderList   = "order.list_by_purchaser"
)

// CancelOrderUseCase removes an order record. Stock is not credited back.
type CancelOrderUseCase struct {
	repo      domain.Repository
	publisher domoutbox.Publisher
	tracer    observability.Tracer
	log       observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewCancelOrderUseCase(repo domain.Repository, publisher domoutbox.Publisher, tel observability.Observability) *CancelOrderUseCase {
	tel = observability.OrNop(tel)
	return &CancelOrderUseCase{
		repo:         repo,
		publisher:    publisher,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (uc *CancelOrderUseCase) Execute(ctx context.Context, orderID string) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseOrderCancel),
		observability.F("order_id", orderID),
	)
	ctx, span := uc.tracer.Start(ctx, spanPrefix+"CancelOrder",
		attribute.String("use_case", useCaseOrderCancel),
		attribute.String("order.id", orderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		lat := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseOrderCancel),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseOrderCancel))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
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
	}()

	if strings.TrimSpace(orderID) == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, domain.ErrIDRequired
	}

	existing, err := uc.repo.Get(ctx, orderID)
	if err != nil {
		outcome, statusText = "rejected", "ORDER_LOAD_FAILED"
		return nil, wrapRepositoryError(err)
	}
	if err := uc.repo.Delete(ctx, orderID); err != nil {
		outcome, statusText = "error", "ORDER_DELETE_FAILED"
		return nil, wrapRepositoryError(err)
	}

	if uc.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if perr := uc.publisher.Publish(pubCtx, domain.NewOrderCancelledEvent(existing)); perr != nil {
			statusText = "EVENT_PUBLISH_FAILED"
			logger.Warn("event_publish_failed",
				observability.F("event", "order.cancelled"),
				observability.F("error", perr.Error()),
			)
		}
	}
	return existing, nil
}

// ListByPurchaserUseCase returns a purchaser's orders, newest first.
type ListByPurchaserUseCase struct {
	repo   domain.Repository
	tracer observability.Tracer
	log    observability.Logger

	reqCounter observability.Counter // usecase_requests_total{use_case,outcome}
}

func NewListByPurchaserUseCase(repo domain.Repository, tel observability.Observability) *ListByPurchaserUseCase {
	tel = observability.OrNop(tel)
	return &ListByPurchaserUseCase{
		repo:       repo,
		tracer:     tel.Tracer(),
		log:        tel.Logger().With(observability.F("service", orderService)),
		reqCounter: tel.Metrics().Counter(observability.MUsecaseRequests),
	}
}

func (uc *ListByPurchaserUseCase) Execute(ctx context.Context, purchaserID string) (_ []*domain.Order, err error) {
	ctx, span := uc.tracer.Start(ctx, spanPrefix+"ListOrders", attribute.String("use_case", useCaseOrderList))
	defer span.End()

	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
			span.SetStatus(codes.Error, err.Error())
			logctx.FromOr(ctx, uc.log).Warn("list_orders_failed", observability.F("error", err.Error()))
		}
		uc.reqCounter.Add(1, observability.L("use_case", useCaseOrderList), observability.L("outcome", outcome))
	}()

	purchaserID = strings.TrimSpace(purchaserID)
	if purchaserID == "" {
		return nil, domain.ErrPurchaserRequired
	}
	orders, err := uc.repo.ListByPurchaser(ctx, purchaserID)
	if err != nil {
		return nil, fmt.Errorf("order: list by purchaser: %w", err)
	}
	return orders, nil
}
