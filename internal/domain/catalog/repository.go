package catalog

import "context"

type DecrementOutcome string

const (
	OutcomeApplied           DecrementOutcome = "applied"
	OutcomeInsufficientStock DecrementOutcome = "insufficient_stock"
	OutcomeNotFound          DecrementOutcome = "not_found"
)

// DecrementResult reports a CompareAndDecrement attempt. Item is the state after
// the write and is only set when Outcome is OutcomeApplied.
type DecrementResult struct {
	Outcome DecrementOutcome
	Item    *FoodItem
}

// Counter is the slice of the store needed by count views and their caches.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type Repository interface {
	Counter

	Create(ctx context.Context, item *FoodItem) (string, error)
	Get(ctx context.Context, id string) (*FoodItem, error)
	List(ctx context.Context) ([]*FoodItem, error)
	ListPage(ctx context.Context, pageIndex, pageSize int) ([]*FoodItem, error)
	ListTopSelling(ctx context.Context, limit int) ([]*FoodItem, error)
	ListByOwner(ctx context.Context, ownerContact string) ([]*FoodItem, error)
	Update(ctx context.Context, id string, patch Patch) (UpdateResult, error)
	Delete(ctx context.Context, id string) error

	// CompareAndDecrement subtracts quantity from stock and adds it to the sold
	// count in one atomic conditional write guarded by stock >= quantity. When
	// nothing was written it tells a missing item apart from a short one.
	CompareAndDecrement(ctx context.Context, id string, quantity int) (DecrementResult, error)
}
