package order

import (
	"context"

	"github.com/h4food/foodmarket/internal/application"
	"github.com/h4food/foodmarket/internal/application/inventory"
)

type IDGenerator interface {
	NewID() string
}

// Ledger performs the atomic stock decrement for one purchase.
type Ledger = application.UseCase[inventory.PurchaseInput, *inventory.PurchaseResult]

// IdempotencyStore reserves a purchaser's request key before any stock moves.
// Reserve reports false when the key is already held.
type IdempotencyStore interface {
	Reserve(ctx context.Context, purchaserID, key string) (bool, error)
	Release(ctx context.Context, purchaserID, key string) error
}
