package httppresentation

import (
	"time"

	domcatalog "github.com/h4food/foodmarket/internal/domain/catalog"
	domorder "github.com/h4food/foodmarket/internal/domain/order"
	"github.com/shopspring/decimal"
)

type foodItemRequest struct {
	Name         string          `json:"name"`
	Image        string          `json:"image"`
	Category     string          `json:"category"`
	Origin       string          `json:"origin"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	OwnerID      string          `json:"ownerId"`
	OwnerContact string          `json:"ownerContact"`
}

func (r foodItemRequest) toDomain() domcatalog.FoodItem {
	return domcatalog.FoodItem{
		Name:         r.Name,
		Image:        r.Image,
		Category:     r.Category,
		Origin:       r.Origin,
		Description:  r.Description,
		Price:        r.Price,
		Quantity:     r.Quantity,
		OwnerID:      r.OwnerID,
		OwnerContact: r.OwnerContact,
	}
}

type foodItemResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Image        string          `json:"image,omitempty"`
	Category     string          `json:"category,omitempty"`
	Origin       string          `json:"origin,omitempty"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	SoldCount    int             `json:"soldCount"`
	OwnerID      string          `json:"ownerId,omitempty"`
	OwnerContact string          `json:"ownerContact,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func toFoodItemResponse(i *domcatalog.FoodItem) foodItemResponse {
	return foodItemResponse{
		ID:           i.ID,
		Name:         i.Name,
		Image:        i.Image,
		Category:     i.Category,
		Origin:       i.Origin,
		Description:  i.Description,
		Price:        i.Price,
		Quantity:     i.Quantity,
		SoldCount:    i.SoldCount,
		OwnerID:      i.OwnerID,
		OwnerContact: i.OwnerContact,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

func toFoodItemResponses(items []*domcatalog.FoodItem) []foodItemResponse {
	out := make([]foodItemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, toFoodItemResponse(i))
	}
	return out
}

// updateFoodRequest carries the owner-editable fields; absent fields stay untouched.
type updateFoodRequest struct {
	ID          string           `json:"id"`
	Name        *string          `json:"name"`
	Image       *string          `json:"image"`
	Category    *string          `json:"category"`
	Origin      *string          `json:"origin"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
}

func (r updateFoodRequest) patch() domcatalog.Patch {
	return domcatalog.Patch{
		Name:        r.Name,
		Image:       r.Image,
		Category:    r.Category,
		Origin:      r.Origin,
		Description: r.Description,
		Price:       r.Price,
		Quantity:    r.Quantity,
	}
}

type updateResultResponse struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// reduceStockRequest keeps the legacy snapshot fields only to reject them.
type reduceStockRequest struct {
	ID              string `json:"id"`
	OrderedQuantity int    `json:"orderedQuantity"`
	PurchaserID     string `json:"purchaserId"`
	Quantity        *int   `json:"quantity"`
	Count           *int   `json:"count"`
}

type purchaseResponse struct {
	ID        string `json:"id"`
	Quantity  int    `json:"quantity"`
	SoldCount int    `json:"soldCount"`
	Depleted  bool   `json:"depleted"`
}

type placeOrderRequest struct {
	FoodItemID      string `json:"foodItemId"`
	OrderedQuantity int    `json:"orderedQuantity"`
	PurchaserID     string `json:"purchaserId"`
	PurchaserName   string `json:"purchaserName"`
	IdempotencyKey  string `json:"idempotencyKey"`
}

type orderResponse struct {
	ID              string          `json:"id"`
	FoodItemID      string          `json:"foodItemId"`
	FoodName        string          `json:"foodName"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	PurchaserID     string          `json:"purchaserId"`
	PurchaserName   string          `json:"purchaserName,omitempty"`
	OrderedQuantity int             `json:"orderedQuantity"`
	CreatedAt       time.Time       `json:"createdAt"`
	Replayed        bool            `json:"replayed,omitempty"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		FoodItemID:      o.FoodItemID,
		FoodName:        o.FoodName,
		UnitPrice:       o.UnitPrice,
		TotalPrice:      o.TotalPrice,
		PurchaserID:     o.PurchaserID,
		PurchaserName:   o.PurchaserName,
		OrderedQuantity: o.OrderedQuantity,
		CreatedAt:       o.CreatedAt,
	}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

type idResponse struct {
	ID string `json:"id"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

type deletedResponse struct {
	DeletedCount int `json:"deletedCount"`
}

type errorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}
