package mongostore

import (
	"time"

	"github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/order"
	"github.com/h4food/foodmarket/internal/domain/user"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type foodItemDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Name         string               `bson:"name"`
	Image        string               `bson:"image"`
	Category     string               `bson:"category"`
	Origin       string               `bson:"origin"`
	Description  string               `bson:"description"`
	Price        primitive.Decimal128 `bson:"price"`
	Quantity     int                  `bson:"quantity"`
	SoldCount    int                  `bson:"soldCount"`
	OwnerID      string               `bson:"ownerId"`
	OwnerContact string               `bson:"ownerContact"`
	Seq          int64                `bson:"seq"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func newFoodItemDoc(item *catalog.FoodItem) (foodItemDoc, error) {
	price, err := toDecimal128(item.Price)
	if err != nil {
		return foodItemDoc{}, err
	}
	return foodItemDoc{
		Name:         item.Name,
		Image:        item.Image,
		Category:     item.Category,
		Origin:       item.Origin,
		Description:  item.Description,
		Price:        price,
		Quantity:     item.Quantity,
		SoldCount:    item.SoldCount,
		OwnerID:      item.OwnerID,
		OwnerContact: item.OwnerContact,
		Seq:          item.Seq,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}, nil
}

func (d foodItemDoc) toDomain() *catalog.FoodItem {
	return &catalog.FoodItem{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Image:        d.Image,
		Category:     d.Category,
		Origin:       d.Origin,
		Description:  d.Description,
		Price:        fromDecimal128(d.Price),
		Quantity:     d.Quantity,
		SoldCount:    d.SoldCount,
		OwnerID:      d.OwnerID,
		OwnerContact: d.OwnerContact,
		Seq:          d.Seq,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	FoodItemID      string               `bson:"foodItemId"`
	FoodName        string               `bson:"foodName"`
	UnitPrice       primitive.Decimal128 `bson:"unitPrice"`
	TotalPrice      primitive.Decimal128 `bson:"totalPrice"`
	PurchaserID     string               `bson:"purchaserId"`
	PurchaserName   string               `bson:"purchaserName"`
	OrderedQuantity int                  `bson:"orderedQuantity"`
	IdempotencyKey  string               `bson:"idempotencyKey,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
}

func newOrderDoc(o *order.Order) (orderDoc, error) {
	unit, err := toDecimal128(o.UnitPrice)
	if err != nil {
		return orderDoc{}, err
	}
	total, err := toDecimal128(o.TotalPrice)
	if err != nil {
		return orderDoc{}, err
	}
	return orderDoc{
		ID:              o.ID,
		FoodItemID:      o.FoodItemID,
		FoodName:        o.FoodName,
		UnitPrice:       unit,
		TotalPrice:      total,
		PurchaserID:     o.PurchaserID,
		PurchaserName:   o.PurchaserName,
		OrderedQuantity: o.OrderedQuantity,
		IdempotencyKey:  o.IdempotencyKey,
		CreatedAt:       o.CreatedAt,
	}, nil
}

func (d orderDoc) toDomain() *order.Order {
	return &order.Order{
		ID:              d.ID,
		FoodItemID:      d.FoodItemID,
		FoodName:        d.FoodName,
		UnitPrice:       fromDecimal128(d.UnitPrice),
		TotalPrice:      fromDecimal128(d.TotalPrice),
		PurchaserID:     d.PurchaserID,
		PurchaserName:   d.PurchaserName,
		OrderedQuantity: d.OrderedQuantity,
		IdempotencyKey:  d.IdempotencyKey,
		CreatedAt:       d.CreatedAt,
	}
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Name      string             `bson:"name"`
	PhotoURL  string             `bson:"photoUrl"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d userDoc) toDomain() *user.User {
	return &user.User{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		Name:      d.Name,
		PhotoURL:  d.PhotoURL,
		CreatedAt: d.CreatedAt,
	}
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) decimal.Decimal {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}
