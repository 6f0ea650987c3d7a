package order

import (
	"strings"
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = failure.New(failure.KindNotFound, "order: not found")
	ErrConflict          = failure.New(failure.KindConflict, "order: already exists")
	ErrInvalidQuantity   = failure.New(failure.KindInvalidArgument, "order: quantity must be greater than zero")
	ErrPurchaserRequired = failure.New(failure.KindValidation, "order: purchaser id is required")
	ErrFoodItemRequired  = failure.New(failure.KindValidation, "order: food item id is required")
	ErrIDRequired        = failure.New(failure.KindValidation, "order: id is required")
)

// Line is the denormalised snapshot of the purchased item taken at order time.
// The catalog entry may change or disappear later; the order keeps these values.
type Line struct {
	FoodItemID string
	FoodName   string
	UnitPrice  decimal.Decimal
}

type Order struct {
	ID              string
	FoodItemID      string
	FoodName        string
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	PurchaserID     string
	PurchaserName   string
	OrderedQuantity int
	IdempotencyKey  string
	CreatedAt       time.Time
}

func New(id, purchaserID, purchaserName, idempotencyKey string, line Line, quantity int) (*Order, error) {
	if strings.TrimSpace(purchaserID) == "" {
		return nil, ErrPurchaserRequired
	}
	if line.FoodItemID == "" {
		return nil, ErrFoodItemRequired
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Order{
		ID:              id,
		FoodItemID:      line.FoodItemID,
		FoodName:        line.FoodName,
		UnitPrice:       line.UnitPrice,
		TotalPrice:      line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		PurchaserID:     purchaserID,
		PurchaserName:   purchaserName,
		OrderedQuantity: quantity,
		IdempotencyKey:  idempotencyKey,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}
