package catalog

import (
	"testing"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFoodItemValidation(t *testing.T) {
	tests := []struct {
		name string
		item FoodItem
		ok   bool
	}{
		{"valid", FoodItem{Name: "Pad Thai", Price: decimal.RequireFromString("9.50"), Quantity: 3}, true},
		{"zero price and stock", FoodItem{Name: "Water", Quantity: 0}, true},
		{"blank name", FoodItem{Name: "   ", Quantity: 1}, false},
		{"negative price", FoodItem{Name: "Soup", Price: decimal.NewFromInt(-1)}, false},
		{"negative quantity", FoodItem{Name: "Soup", Quantity: -2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewFoodItem(tt.item)
			if tt.ok {
				require.NoError(t, err)
				assert.False(t, item.CreatedAt.IsZero())
				return
			}
			assert.ErrorIs(t, err, failure.ErrValidation)
		})
	}
}

func TestNewFoodItemResetsSoldCount(t *testing.T) {
	item, err := NewFoodItem(FoodItem{Name: " Ramen ", Quantity: 4, SoldCount: 99})
	require.NoError(t, err)
	assert.Equal(t, 0, item.SoldCount)
	assert.Equal(t, "Ramen", item.Name)
}

func TestPatchApplyTo(t *testing.T) {
	item := &FoodItem{ID: "a", Name: "Old", Quantity: 2, SoldCount: 5, OwnerContact: "chef@example.com"}
	name, qty := "New", 10
	price := decimal.RequireFromString("4.25")
	patch := Patch{Name: &name, Quantity: &qty, Price: &price}
	require.NoError(t, patch.Validate())

	patch.ApplyTo(item)

	assert.Equal(t, "New", item.Name)
	assert.Equal(t, 10, item.Quantity)
	assert.True(t, price.Equal(item.Price))
	assert.Equal(t, 5, item.SoldCount)
	assert.Equal(t, "chef@example.com", item.OwnerContact)
}

func TestPatchValidate(t *testing.T) {
	assert.ErrorIs(t, Patch{}.Validate(), failure.ErrValidation)
	neg := -1
	assert.ErrorIs(t, Patch{Quantity: &neg}.Validate(), failure.ErrValidation)
	blank := " "
	assert.ErrorIs(t, Patch{Name: &blank}.Validate(), failure.ErrValidation)
}

func TestStockState(t *testing.T) {
	s := StateFor(3)
	assert.Equal(t, StockAvailable, s.Status())

	next, err := s.OnPurchase(0)
	require.NoError(t, err)
	assert.Equal(t, StockDepleted, next.Status())

	_, err = next.OnPurchase(0)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	assert.Equal(t, StockAvailable, next.OnOwnerEdit(7).Status())
	assert.Equal(t, StockDepleted, s.OnOwnerEdit(0).Status())
}
