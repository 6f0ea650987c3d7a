package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext injects an event-scoped logger for background executions:
// event_id (generated if empty) and trace ids plus caller attributes.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	sc trace.SpanContext,
	attrs map[string]string,
) context.Context {
	fields := make([]observability.Field, 0, len(attrs)+3)

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.Scoped(ctx, base, sc, fields...)
}

// Subscriber decorates a subscriber so each handler runs under WithEventContext.
type Subscriber struct {
	next domoutbox.Subscriber
	base observability.Logger
}

var _ domoutbox.Subscriber = (*Subscriber)(nil)

func NewSubscriber(next domoutbox.Subscriber, base observability.Logger) *Subscriber {
	if base == nil {
		base = observability.NopLogger()
	}
	return &Subscriber{next: next, base: base}
}

func (s *Subscriber) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, func(ctx context.Context, e domoutbox.Event) error {
		ctx = WithEventContext(ctx, s.base, trace.SpanContextFromContext(ctx), map[string]string{
			"event": e.EventName(),
		})
		return h(ctx, e)
	})
}
