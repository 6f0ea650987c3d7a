package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// ListByPurchaser returns the purchaser's orders, newest first.
	ListByPurchaser(ctx context.Context, purchaserID string) ([]*Order, error)
	Delete(ctx context.Context, id string) error
	FindByIdempotency(ctx context.Context, purchaserID, key string) (*Order, error)
}
