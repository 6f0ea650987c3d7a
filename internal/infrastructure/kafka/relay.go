package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	peerKafka    = "kafka"
	writeTimeout = 5 * time.Second
)

// Relay forwards outbox events to Kafka. Delivery is at most once: a failed
// write is logged and counted, never retried.
type Relay struct {
	writer     Writer
	subscriber domoutbox.Subscriber
	producer   string
	log        observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewRelay(writer Writer, subscriber domoutbox.Subscriber, producer string, tel observability.Observability) *Relay {
	tel = observability.OrNop(tel)
	return &Relay{
		writer:       writer,
		subscriber:   subscriber,
		producer:     producer,
		log:          tel.Logger().With(observability.F("component", "kafka_relay")),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

func (r *Relay) Start() {
	if r.writer == nil || r.subscriber == nil {
		return
	}
	for _, name := range RelayedEvents {
		r.subscriber.Subscribe(name, r.forward)
	}
}

func (r *Relay) Close() error {
	if r.writer == nil {
		return nil
	}
	return r.writer.Close()
}

func (r *Relay) forward(ctx context.Context, e domoutbox.Event) error {
	msg, err := r.message(ctx, e)
	if err != nil {
		return err
	}
	logger := logctx.FromOr(ctx, r.log).With(
		observability.F("topic", msg.Topic),
		observability.F("key", string(msg.Key)),
	)

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	start := time.Now()
	err = r.writer.WriteMessages(wctx, msg)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.extCounter.Add(1,
		observability.L("peer", peerKafka),
		observability.L("endpoint", msg.Topic),
		observability.L("outcome", outcome),
	)
	r.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peerKafka),
		observability.L("endpoint", msg.Topic),
	)

	if err != nil {
		logger.Error("kafka_publish_failed", observability.F("error", err.Error()))
		return fmt.Errorf("kafka: write %s: %w", msg.Topic, err)
	}
	logger.Debug("kafka_published")
	return nil
}

func (r *Relay) message(ctx context.Context, e domoutbox.Event) (kafka.Message, error) {
	key, payload, at, ok := payloadFor(e)
	if !ok {
		return kafka.Message{}, fmt.Errorf("kafka: no payload mapping for %s", e.EventName())
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode payload: %w", err)
	}
	env := Envelope{
		EventID:      uuid.NewString(),
		EventType:    e.EventName(),
		EventVersion: 1,
		OccurredAt:   at,
		Producer:     r.producer,
		Payload:      body,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		env.TraceID = sc.TraceID().String()
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode envelope: %w", err)
	}
	return kafka.Message{
		Topic:   TopicFor(e.EventName()),
		Key:     []byte(key),
		Value:   value,
		Time:    at,
		Headers: traceHeaders(ctx),
	}, nil
}

// traceHeaders injects the active trace context so consumers can continue the trace.
func traceHeaders(ctx context.Context) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := make([]kafka.Header, 0, len(carrier))
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
