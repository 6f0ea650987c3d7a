package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/order"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type syncSubscriber struct {
	handlers map[string][]domoutbox.Handler
}

func (s *syncSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = map[string][]domoutbox.Handler{}
	}
	s.handlers[name] = append(s.handlers[name], h)
}

func (s *syncSubscriber) Publish(ctx context.Context, e domoutbox.Event) error {
	for _, h := range s.handlers[e.EventName()] {
		if err := h(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func TestRelayForwardsOrderPlaced(t *testing.T) {
	w := &fakeWriter{}
	sub := &syncSubscriber{}
	relay := NewRelay(w, sub, "foodmarket-api", nil)
	relay.Start()

	o, err := order.New("o-1", "a@x.io", "A", "", order.Line{FoodItemID: "f-9", UnitPrice: decimal.NewFromInt(2)}, 3)
	require.NoError(t, err)
	require.NoError(t, sub.Publish(context.Background(), order.NewOrderPlacedEvent(o)))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "foodmarket.order.placed", msg.Topic)
	assert.Equal(t, "f-9", string(msg.Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "order.placed", env.EventType)
	assert.Equal(t, "foodmarket-api", env.Producer)

	var p OrderPlacedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "o-1", p.OrderID)
	assert.Equal(t, 3, p.OrderedQuantity)
	assert.Equal(t, "6", p.TotalPrice)
}

func TestRelaySubscribesToEveryRelayedEvent(t *testing.T) {
	sub := &syncSubscriber{}
	NewRelay(&fakeWriter{}, sub, "svc", nil).Start()

	for _, name := range RelayedEvents {
		assert.Len(t, sub.handlers[name], 1, name)
	}
	assert.Equal(t, "foodmarket.inventory.stock_depleted", TopicFor(catalog.StockDepletedEvent{}.EventName()))
}

func TestRelayReportsWriteFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	sub := &syncSubscriber{}
	NewRelay(w, sub, "svc", nil).Start()

	err := sub.Publish(context.Background(), catalog.StockDepletedEvent{FoodItemID: "f-1"})
	assert.ErrorContains(t, err, "broker down")
}
