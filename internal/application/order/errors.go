package order

import (
	"fmt"

	"github.com/h4food/foodmarket/internal/domain/failure"
)

// PartialFailureError reports a purchase whose stock was debited but whose
// order record was not stored.
type PartialFailureError struct {
	FoodItemID      string
	PurchaserID     string
	OrderedQuantity int
	Remaining       int
	SoldCount       int
	Err             error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("order: stock debited for %s (qty %d, remaining %d) but order not recorded: %v",
		e.FoodItemID, e.OrderedQuantity, e.Remaining, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

func (e *PartialFailureError) FailureKind() failure.Kind { return failure.KindPartialFailure }

func (e *PartialFailureError) Is(target error) bool {
	t, ok := target.(*failure.Error)
	return ok && t.Kind == failure.KindPartialFailure && t.Message == ""
}
