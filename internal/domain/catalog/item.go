package catalog

import (
	"strings"
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = failure.New(failure.KindNotFound, "catalog: food item not found")
	ErrInsufficientStock = failure.New(failure.KindInsufficientStock, "catalog: insufficient stock")
	ErrInvalidQuantity   = failure.New(failure.KindInvalidArgument, "catalog: ordered quantity must be greater than zero")
	ErrInvalidPage       = failure.New(failure.KindInvalidArgument, "catalog: page index must not be negative")
	ErrInvalidLimit      = failure.New(failure.KindInvalidArgument, "catalog: limit must not be negative")
	ErrIDRequired        = failure.New(failure.KindValidation, "catalog: food item id is required")
	ErrOwnerRequired     = failure.New(failure.KindValidation, "catalog: owner contact is required")
)

// FoodItem is a listing in the marketplace catalog. Quantity and SoldCount only
// move together through Repository.CompareAndDecrement, except for owner edits
// of Quantity.
type FoodItem struct {
	ID           string
	Name         string
	Image        string
	Category     string
	Origin       string
	Description  string
	Price        decimal.Decimal
	Quantity     int
	SoldCount    int
	OwnerID      string
	OwnerContact string
	// Seq is the insertion sequence assigned by the store; it is the stable
	// ordering key for pages and the tie breaker for top sellers.
	Seq       int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFoodItem validates the listing and stamps its timestamps. The store assigns
// ID and Seq on insert.
func NewFoodItem(item FoodItem) (*FoodItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	item.SoldCount = 0
	if err := item.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	return &item, nil
}

func (i *FoodItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return failure.New(failure.KindValidation, "catalog: name is required")
	}
	if i.Price.IsNegative() {
		return failure.New(failure.KindValidation, "catalog: price must be zero or greater")
	}
	if i.Quantity < 0 {
		return failure.New(failure.KindValidation, "catalog: quantity must be zero or greater")
	}
	if i.SoldCount < 0 {
		return failure.New(failure.KindValidation, "catalog: sold count must be zero or greater")
	}
	return nil
}

func (i *FoodItem) Clone() *FoodItem {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

// StockState reports where the item sits in the Available/Depleted lifecycle.
func (i *FoodItem) StockState() StockState { return StateFor(i.Quantity) }

// Patch carries the owner-editable fields. Nil pointers leave a field untouched.
type Patch struct {
	Name        *string
	Image       *string
	Category    *string
	Origin      *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Image == nil && p.Category == nil && p.Origin == nil &&
		p.Description == nil && p.Price == nil && p.Quantity == nil
}

func (p Patch) Validate() error {
	if p.Empty() {
		return failure.New(failure.KindValidation, "catalog: update has no fields")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return failure.New(failure.KindValidation, "catalog: name must not be blank")
	}
	if p.Price != nil && p.Price.IsNegative() {
		return failure.New(failure.KindValidation, "catalog: price must be zero or greater")
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return failure.New(failure.KindValidation, "catalog: quantity must be zero or greater")
	}
	return nil
}

// ApplyTo copies the set fields onto item. SoldCount, owner and id are never touched.
func (p Patch) ApplyTo(item *FoodItem) {
	if p.Name != nil {
		item.Name = strings.TrimSpace(*p.Name)
	}
	if p.Image != nil {
		item.Image = *p.Image
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Origin != nil {
		item.Origin = *p.Origin
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	item.UpdatedAt = time.Now().UTC()
}

// UpdateResult mirrors a document-store update acknowledgement.
type UpdateResult struct {
	Matched  int64
	Modified int64
}
