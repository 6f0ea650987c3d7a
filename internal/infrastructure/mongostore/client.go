package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collFoodItems = "foodItems"
	collOrders    = "orders"
	collUsers     = "users"
	collCounters  = "counters"

	defaultTimeout = 5 * time.Second
)

// Store holds the database handle shared by the catalog, order and user stores.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// Connect dials with the stable v1 server API and pings the admin database.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(serverAPI).
		SetTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, failure.Wrap(failure.KindStoreUnavailable, err, "mongostore: connect")
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Database("admin").RunCommand(pingCtx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, failure.Wrap(failure.KindStoreUnavailable, err, "mongostore: ping")
	}
	return &Store{client: client, db: client.Database(database), timeout: timeout}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the stores rely on for ordering and uniqueness.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	idx := map[string][]mongo.IndexModel{
		collFoodItems: {
			{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "soldCount", Value: -1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "ownerContact", Value: 1}},
				Options: options.Index().SetCollation(caseInsensitive)},
		},
		collOrders: {
			{Keys: bson.D{{Key: "purchaserId", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetCollation(caseInsensitive)},
			{Keys: bson.D{{Key: "purchaserId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$gt": ""}})},
		},
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range idx {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongostore: ensure indexes on %s: %w", coll, mapError(err))
		}
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// nextSeq hands out the insertion sequence for name from the counters collection.
func (s *Store) nextSeq(ctx context.Context, name string) (int64, error) {
	var out struct {
		Value int64 `bson:"value"`
	}
	err := s.db.Collection(collCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return 0, mapError(err)
	}
	return out.Value, nil
}

var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}
