package mongostore

import (
	"context"
	"errors"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"go.mongodb.org/mongo-driver/mongo"
)

// mapError attaches a failure kind to driver errors. ErrNoDocuments is left to
// the caller, which knows which not-found sentinel applies.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return err
	case mongo.IsDuplicateKeyError(err):
		return failure.Wrap(failure.KindConflict, err, "mongostore: duplicate key")
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, mongo.ErrClientDisconnected):
		return failure.Wrap(failure.KindStoreUnavailable, err, "mongostore: unavailable")
	default:
		return err
	}
}
