package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/h4food/foodmarket/internal/domain/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CatalogRepository struct {
	store *Store
	coll  *mongo.Collection
}

var _ domain.Repository = (*CatalogRepository)(nil)

func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{store: store, coll: store.db.Collection(collFoodItems)}
}

func (r *CatalogRepository) Create(ctx context.Context, item *domain.FoodItem) (string, error) {
	if err := item.Validate(); err != nil {
		return "", err
	}
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	seq, err := r.store.nextSeq(ctx, collFoodItems)
	if err != nil {
		return "", fmt.Errorf("mongostore: next seq: %w", err)
	}
	item.Seq = seq
	doc, err := newFoodItemDoc(item)
	if err != nil {
		return "", fmt.Errorf("mongostore: encode food item: %w", err)
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("mongostore: insert food item: %w", mapError(err))
	}
	oid, _ := res.InsertedID.(primitive.ObjectID)
	item.ID = oid.Hex()
	return item.ID, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (*domain.FoodItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	var doc foodItemDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("mongostore: get food item: %w", mapError(err))
	}
	return doc.toDomain(), nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]*domain.FoodItem, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(sortBySeq))
}

func (r *CatalogRepository) ListPage(ctx context.Context, pageIndex, pageSize int) ([]*domain.FoodItem, error) {
	if pageIndex < 0 {
		return nil, domain.ErrInvalidPage
	}
	if pageSize <= 0 {
		return nil, domain.ErrInvalidLimit
	}
	opts := options.Find().
		SetSort(sortBySeq).
		SetSkip(int64(pageIndex) * int64(pageSize)).
		SetLimit(int64(pageSize))
	return r.find(ctx, bson.M{}, opts)
}

func (r *CatalogRepository) ListTopSelling(ctx context.Context, limit int) ([]*domain.FoodItem, error) {
	if limit < 0 {
		return nil, domain.ErrInvalidLimit
	}
	if limit == 0 {
		return []*domain.FoodItem{}, nil
	}
	opts := options.Find().SetSort(sortByTopSelling).SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *CatalogRepository) ListByOwner(ctx context.Context, ownerContact string) ([]*domain.FoodItem, error) {
	opts := options.Find().SetSort(sortBySeq).SetCollation(caseInsensitive)
	return r.find(ctx, bson.M{"ownerContact": ownerContact}, opts)
}

// Count reads collection metadata. It can drift from the exact document count
// after unclean shutdowns and is meant for display.
func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	n, err := r.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("mongostore: count food items: %w", mapError(err))
	}
	return n, nil
}

func (r *CatalogRepository) Update(ctx context.Context, id string, patch domain.Patch) (domain.UpdateResult, error) {
	if err := patch.Validate(); err != nil {
		return domain.UpdateResult{}, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.UpdateResult{}, domain.ErrNotFound
	}
	set, err := patchSet(patch, time.Now().UTC())
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("mongostore: encode patch: %w", err)
	}
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("mongostore: update food item: %w", mapError(err))
	}
	if res.MatchedCount == 0 {
		return domain.UpdateResult{}, domain.ErrNotFound
	}
	return domain.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongostore: delete food item: %w", mapError(err))
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CompareAndDecrement is a single FindOneAndUpdate guarded by quantity >= q.
// When nothing matches, a second read tells a missing item from a short one.
func (r *CatalogRepository) CompareAndDecrement(ctx context.Context, id string, quantity int) (domain.DecrementResult, error) {
	if quantity <= 0 {
		return domain.DecrementResult{}, domain.ErrInvalidQuantity
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.DecrementResult{Outcome: domain.OutcomeNotFound}, nil
	}
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	var doc foodItemDoc
	err = r.coll.FindOneAndUpdate(ctx,
		decrementFilter(oid, quantity),
		decrementUpdate(quantity, time.Now().UTC()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case err == nil:
		return domain.DecrementResult{Outcome: domain.OutcomeApplied, Item: doc.toDomain()}, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return domain.DecrementResult{}, fmt.Errorf("mongostore: decrement: %w", mapError(err))
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return domain.DecrementResult{}, fmt.Errorf("mongostore: decrement existence check: %w", mapError(err))
	}
	if n == 0 {
		return domain.DecrementResult{Outcome: domain.OutcomeNotFound}, nil
	}
	return domain.DecrementResult{Outcome: domain.OutcomeInsufficientStock}, nil
}

func (r *CatalogRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.FoodItem, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: find food items: %w", mapError(err))
	}
	var docs []foodItemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongostore: decode food items: %w", mapError(err))
	}
	out := make([]*domain.FoodItem, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
