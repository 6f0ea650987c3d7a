package order

import (
	"context"
	"testing"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelOrderDoesNotRestock(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	placed, err := f.useCase(f.orders).Execute(ctx, PlaceOrderInput{
		FoodItemID: f.itemID, OrderedQuantity: 2, PurchaserID: "buyer@example.com",
	})
	require.NoError(t, err)

	cancel := NewCancelOrderUseCase(f.orders, f.pub, nil)
	removed, err := cancel.Execute(ctx, placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.Order.ID, removed.ID)

	qty, sold := f.stock(t)
	assert.Equal(t, 3, qty)
	assert.Equal(t, 2, sold)
	assert.Contains(t, f.pub.names(), "order.cancelled")

	_, err = cancel.Execute(ctx, placed.Order.ID)
	assert.ErrorIs(t, err, failure.ErrNotFound)
	_, err = cancel.Execute(ctx, "")
	assert.ErrorIs(t, err, failure.ErrValidation)
}

func TestListByPurchaserNewestFirst(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	place := f.useCase(f.orders)

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := place.Execute(ctx, PlaceOrderInput{
			FoodItemID: f.itemID, OrderedQuantity: 1, PurchaserID: "Buyer@Example.com",
		})
		require.NoError(t, err)
		ids = append(ids, res.Order.ID)
	}
	_, err := place.Execute(ctx, PlaceOrderInput{FoodItemID: f.itemID, OrderedQuantity: 1, PurchaserID: "other@example.com"})
	require.NoError(t, err)

	list := NewListByPurchaserUseCase(f.orders, nil)
	orders, err := list.Execute(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, ids[2], orders[0].ID)
	assert.Equal(t, ids[0], orders[2].ID)

	_, err = list.Execute(ctx, " ")
	assert.ErrorIs(t, err, failure.ErrValidation)
}
