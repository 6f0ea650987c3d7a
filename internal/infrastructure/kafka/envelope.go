package kafka

import (
	"encoding/json"
	"time"

	"github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/order"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
)

const topicPrefix = "foodmarket."

// TopicFor maps an outbox event name to its Kafka topic.
func TopicFor(eventName string) string { return topicPrefix + eventName }

type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	TraceID      string          `json:"trace_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID         string `json:"order_id"`
	FoodItemID      string `json:"food_item_id"`
	PurchaserID     string `json:"purchaser_id"`
	OrderedQuantity int    `json:"ordered_quantity"`
	TotalPrice      string `json:"total_price"`
}

type OrderRecordFailedPayload struct {
	FoodItemID      string `json:"food_item_id"`
	PurchaserID     string `json:"purchaser_id"`
	OrderedQuantity int    `json:"ordered_quantity"`
	Remaining       int    `json:"remaining"`
	SoldCount       int    `json:"sold_count"`
	Reason          string `json:"reason"`
}

type StockDepletedPayload struct {
	FoodItemID   string `json:"food_item_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	OwnerContact string `json:"owner_contact"`
	SoldCount    int    `json:"sold_count"`
}

type PurchasedPayload struct {
	FoodItemID  string `json:"food_item_id"`
	PurchaserID string `json:"purchaser_id"`
	Quantity    int    `json:"quantity"`
	Remaining   int    `json:"remaining"`
	SoldCount   int    `json:"sold_count"`
}

// RelayedEvents lists the event names forwarded to Kafka.
var RelayedEvents = []string{
	order.OrderPlacedEvent{}.EventName(),
	order.OrderRecordFailedEvent{}.EventName(),
	catalog.StockDepletedEvent{}.EventName(),
	catalog.FoodItemPurchasedEvent{}.EventName(),
}

// payloadFor returns the partition key, wire payload and occurrence time of e.
// The key is the food item id so every event about one item stays ordered.
func payloadFor(e domoutbox.Event) (key string, payload any, at time.Time, ok bool) {
	switch ev := e.(type) {
	case order.OrderPlacedEvent:
		return ev.FoodItemID, OrderPlacedPayload{
			OrderID:         ev.OrderID,
			FoodItemID:      ev.FoodItemID,
			PurchaserID:     ev.PurchaserID,
			OrderedQuantity: ev.OrderedQuantity,
			TotalPrice:      ev.TotalPrice.String(),
		}, ev.OccurredAt, true
	case order.OrderRecordFailedEvent:
		return ev.FoodItemID, OrderRecordFailedPayload{
			FoodItemID:      ev.FoodItemID,
			PurchaserID:     ev.PurchaserID,
			OrderedQuantity: ev.OrderedQuantity,
			Remaining:       ev.Remaining,
			SoldCount:       ev.SoldCount,
			Reason:          ev.Reason,
		}, ev.OccurredAt, true
	case catalog.StockDepletedEvent:
		return ev.FoodItemID, StockDepletedPayload{
			FoodItemID:   ev.FoodItemID,
			Name:         ev.Name,
			Category:     ev.Category,
			OwnerContact: ev.OwnerContact,
			SoldCount:    ev.SoldCount,
		}, ev.OccurredAt, true
	case catalog.FoodItemPurchasedEvent:
		return ev.FoodItemID, PurchasedPayload{
			FoodItemID:  ev.FoodItemID,
			PurchaserID: ev.PurchaserID,
			Quantity:    ev.Quantity,
			Remaining:   ev.Remaining,
			SoldCount:   ev.SoldCount,
		}, ev.OccurredAt, true
	default:
		return "", nil, time.Time{}, false
	}
}
