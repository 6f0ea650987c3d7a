package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPlacedEvent is emitted once an order has been recorded after a successful decrement.
type OrderPlacedEvent struct {
	OrderID         string
	FoodItemID      string
	PurchaserID     string
	OrderedQuantity int
	TotalPrice      decimal.Decimal
	OccurredAt      time.Time
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:         o.ID,
		FoodItemID:      o.FoodItemID,
		PurchaserID:     o.PurchaserID,
		OrderedQuantity: o.OrderedQuantity,
		TotalPrice:      o.TotalPrice,
		OccurredAt:      time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted when an order record is deleted. Stock is not credited back.
type OrderCancelledEvent struct {
	OrderID         string
	FoodItemID      string
	OrderedQuantity int
	OccurredAt      time.Time
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:         o.ID,
		FoodItemID:      o.FoodItemID,
		OrderedQuantity: o.OrderedQuantity,
		OccurredAt:      time.Now().UTC(),
	}
}

// OrderRecordFailedEvent flags a purchase whose stock was debited but whose
// order could not be stored. It needs manual reconciliation.
type OrderRecordFailedEvent struct {
	FoodItemID      string
	PurchaserID     string
	OrderedQuantity int
	Remaining       int
	SoldCount       int
	Reason          string
	OccurredAt      time.Time
}

func (OrderRecordFailedEvent) EventName() string { return "order.record_failed" }
