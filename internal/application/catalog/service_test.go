package catalog

import (
	"context"
	"testing"

	domain "github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/h4food/foodmarket/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewCatalogRepository(), nil)

	created, err := svc.Create(ctx, domain.FoodItem{
		Name:         " Nasi Lemak ",
		Price:        decimal.RequireFromString("6.50"),
		Quantity:     8,
		SoldCount:    3,
		OwnerContact: "Cook@Example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Nasi Lemak", created.Name)
	assert.Equal(t, 0, created.SoldCount)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("6.5")))

	mine, err := svc.ListByOwner(ctx, "cook@example.com")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	qty := 20
	res, err := svc.Update(ctx, created.ID, domain.Patch{Quantity: &qty})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Matched)

	got, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Quantity)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, failure.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), failure.ErrNotFound)
}

func TestServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewCatalogRepository(), nil)

	_, err := svc.Create(ctx, domain.FoodItem{Name: ""})
	assert.ErrorIs(t, err, failure.ErrValidation)

	_, err = svc.Get(ctx, " ")
	assert.ErrorIs(t, err, failure.ErrValidation)

	_, err = svc.ListByOwner(ctx, "")
	assert.ErrorIs(t, err, failure.ErrValidation)

	_, err = svc.Update(ctx, "x", domain.Patch{})
	assert.ErrorIs(t, err, failure.ErrValidation)

	name := "Soup"
	_, err = svc.Update(ctx, "missing", domain.Patch{Name: &name})
	assert.ErrorIs(t, err, failure.ErrNotFound)
}
