package catalog

import "time"

// FoodItemPurchasedEvent is emitted after every applied ledger decrement.
type FoodItemPurchasedEvent struct {
	FoodItemID  string
	PurchaserID string
	Quantity    int
	Remaining   int
	SoldCount   int
	OccurredAt  time.Time
}

func (FoodItemPurchasedEvent) EventName() string { return "inventory.purchased" }

func NewFoodItemPurchasedEvent(item *FoodItem, purchaserID string, quantity int) FoodItemPurchasedEvent {
	return FoodItemPurchasedEvent{
		FoodItemID:  item.ID,
		PurchaserID: purchaserID,
		Quantity:    quantity,
		Remaining:   item.Quantity,
		SoldCount:   item.SoldCount,
		OccurredAt:  time.Now().UTC(),
	}
}

// StockDepletedEvent is emitted when a purchase moves an item from Available to Depleted.
type StockDepletedEvent struct {
	FoodItemID   string
	Name         string
	Category     string
	OwnerContact string
	SoldCount    int
	OccurredAt   time.Time
}

func (StockDepletedEvent) EventName() string { return "inventory.stock_depleted" }

func NewStockDepletedEvent(item *FoodItem) StockDepletedEvent {
	return StockDepletedEvent{
		FoodItemID:   item.ID,
		Name:         item.Name,
		Category:     item.Category,
		OwnerContact: item.OwnerContact,
		SoldCount:    item.SoldCount,
		OccurredAt:   time.Now().UTC(),
	}
}
