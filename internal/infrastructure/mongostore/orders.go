package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/h4food/foodmarket/internal/domain/failure"
	domain "github.com/h4food/foodmarket/internal/domain/order"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderRepository struct {
	store *Store
	coll  *mongo.Collection
}

var _ domain.Repository = (*OrderRepository)(nil)

func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store, coll: store.db.Collection(collOrders)}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	doc, err := newOrderDoc(o)
	if err != nil {
		return fmt.Errorf("mongostore: encode order: %w", err)
	}
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		err = mapError(err)
		if errors.Is(err, failure.ErrConflict) {
			return domain.ErrConflict
		}
		return fmt.Errorf("mongostore: insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *OrderRepository) ListByPurchaser(ctx context.Context, purchaserID string) ([]*domain.Order, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetCollation(caseInsensitive)
	cur, err := r.coll.Find(ctx, bson.M{"purchaserId": purchaserID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: find orders: %w", mapError(err))
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongostore: decode orders: %w", mapError(err))
	}
	out := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongostore: delete order: %w", mapError(err))
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, purchaserID, key string) (*domain.Order, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx,
		bson.M{"purchaserId": purchaserID, "idempotencyKey": key},
		options.FindOne().SetCollation(caseInsensitive),
	)
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Order, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	if opts == nil {
		opts = options.FindOne()
	}
	var doc orderDoc
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("mongostore: find order: %w", mapError(err))
	}
	return doc.toDomain(), nil
}
