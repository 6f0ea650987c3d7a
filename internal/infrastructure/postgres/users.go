package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h4food/foodmarket/internal/domain/failure"
	domain "github.com/h4food/foodmarket/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

var _ domain.Repository = (*UserRepository)(nil)

func NewUserRepository(db *pgxpool.Pool, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	id := uuid.NewString()
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, name, photo_url, created_at) VALUES ($1,$2,$3,$4,$5)`,
		id, strings.ToLower(u.Email), u.Name, u.PhotoURL, u.CreatedAt)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, failure.ErrConflict) {
			return "", domain.ErrEmailTaken
		}
		return "", fmt.Errorf("postgres: insert user: %w", err)
	}
	u.ID = id
	return id, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var u domain.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, name, photo_url, created_at FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Email, &u.Name, &u.PhotoURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get user: %w", mapError(err))
	}
	return &u, nil
}
