package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/h4food/foodmarket/internal/domain/failure"
	domain "github.com/h4food/foodmarket/internal/domain/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository struct {
	store *Store
	coll  *mongo.Collection
}

var _ domain.Repository = (*UserRepository)(nil)

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store, coll: store.db.Collection(collUsers)}
}

// Create relies on the unique email index; EnsureIndexes must have run.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (string, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	doc := userDoc{
		Email:     strings.ToLower(u.Email),
		Name:      u.Name,
		PhotoURL:  u.PhotoURL,
		CreatedAt: u.CreatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, failure.ErrConflict) {
			return "", domain.ErrEmailTaken
		}
		return "", fmt.Errorf("mongostore: insert user: %w", err)
	}
	oid, _ := res.InsertedID.(primitive.ObjectID)
	u.ID = oid.Hex()
	return u.ID, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	var doc userDoc
	err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("mongostore: get user: %w", mapError(err))
	}
	return doc.toDomain(), nil
}
