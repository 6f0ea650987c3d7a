package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	domain "github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const foodColumns = `id, seq, name, image, category, origin, description, price::text,
	quantity, sold_count, owner_id, owner_contact, created_at, updated_at`

type CatalogRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

var _ domain.Repository = (*CatalogRepository)(nil)

func NewCatalogRepository(db *pgxpool.Pool, timeout time.Duration) *CatalogRepository {
	return &CatalogRepository{db: db, timeout: timeout}
}

func (r *CatalogRepository) Create(ctx context.Context, item *domain.FoodItem) (string, error) {
	if err := item.Validate(); err != nil {
		return "", err
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	id := uuid.NewString()
	err := r.db.QueryRow(ctx, `
		INSERT INTO food_items (id, name, image, category, origin, description, price,
			quantity, sold_count, owner_id, owner_contact, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7::text::numeric,$8,$9,$10,$11,$12,$13)
		RETURNING seq`,
		id, item.Name, item.Image, item.Category, item.Origin, item.Description, item.Price.String(),
		item.Quantity, item.SoldCount, item.OwnerID, item.OwnerContact, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.Seq)
	if err != nil {
		return "", fmt.Errorf("postgres: insert food item: %w", mapError(err))
	}
	item.ID = id
	return id, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (*domain.FoodItem, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	item, err := scanFoodItem(r.db.QueryRow(ctx, `SELECT `+foodColumns+` FROM food_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get food item: %w", mapError(err))
	}
	return item, nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]*domain.FoodItem, error) {
	return r.query(ctx, `SELECT `+foodColumns+` FROM food_items ORDER BY seq`)
}

func (r *CatalogRepository) ListPage(ctx context.Context, pageIndex, pageSize int) ([]*domain.FoodItem, error) {
	if pageIndex < 0 {
		return nil, domain.ErrInvalidPage
	}
	if pageSize <= 0 {
		return nil, domain.ErrInvalidLimit
	}
	return r.query(ctx, `SELECT `+foodColumns+` FROM food_items ORDER BY seq LIMIT $1 OFFSET $2`,
		pageSize, int64(pageIndex)*int64(pageSize))
}

func (r *CatalogRepository) ListTopSelling(ctx context.Context, limit int) ([]*domain.FoodItem, error) {
	if limit < 0 {
		return nil, domain.ErrInvalidLimit
	}
	return r.query(ctx, `SELECT `+foodColumns+` FROM food_items ORDER BY sold_count DESC, seq ASC LIMIT $1`, limit)
}

func (r *CatalogRepository) ListByOwner(ctx context.Context, ownerContact string) ([]*domain.FoodItem, error) {
	return r.query(ctx, `SELECT `+foodColumns+` FROM food_items WHERE lower(owner_contact) = lower($1) ORDER BY seq`, ownerContact)
}

func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM food_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count food items: %w", mapError(err))
	}
	return n, nil
}

func (r *CatalogRepository) Update(ctx context.Context, id string, patch domain.Patch) (domain.UpdateResult, error) {
	if err := patch.Validate(); err != nil {
		return domain.UpdateResult{}, err
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	sql, args := buildPatch(id, patch, time.Now().UTC())
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("postgres: update food item: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.UpdateResult{}, domain.ErrNotFound
	}
	return domain.UpdateResult{Matched: tag.RowsAffected(), Modified: tag.RowsAffected()}, nil
}

func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM food_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete food item: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CompareAndDecrement is one UPDATE guarded by quantity >= $2. Row locking in
// Postgres serialises concurrent decrements of the same item.
func (r *CatalogRepository) CompareAndDecrement(ctx context.Context, id string, quantity int) (domain.DecrementResult, error) {
	if quantity <= 0 {
		return domain.DecrementResult{}, domain.ErrInvalidQuantity
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	item, err := scanFoodItem(r.db.QueryRow(ctx, `
		UPDATE food_items
		SET quantity = quantity - $2, sold_count = sold_count + $2, updated_at = $3
		WHERE id = $1 AND quantity >= $2
		RETURNING `+foodColumns,
		id, quantity, time.Now().UTC(),
	))
	switch {
	case err == nil:
		return domain.DecrementResult{Outcome: domain.OutcomeApplied, Item: item}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return domain.DecrementResult{}, fmt.Errorf("postgres: decrement: %w", mapError(err))
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM food_items WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domain.DecrementResult{}, fmt.Errorf("postgres: decrement existence check: %w", mapError(err))
	}
	if !exists {
		return domain.DecrementResult{Outcome: domain.OutcomeNotFound}, nil
	}
	return domain.DecrementResult{Outcome: domain.OutcomeInsufficientStock}, nil
}

func (r *CatalogRepository) query(ctx context.Context, sql string, args ...any) ([]*domain.FoodItem, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query food items: %w", mapError(err))
	}
	defer rows.Close()

	out := make([]*domain.FoodItem, 0)
	for rows.Next() {
		item, err := scanFoodItem(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan food item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate food items: %w", mapError(err))
	}
	return out, nil
}

func scanFoodItem(row rowScanner) (*domain.FoodItem, error) {
	var (
		item  domain.FoodItem
		price string
	)
	err := row.Scan(&item.ID, &item.Seq, &item.Name, &item.Image, &item.Category, &item.Origin,
		&item.Description, &price, &item.Quantity, &item.SoldCount, &item.OwnerID, &item.OwnerContact,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if item.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	return &item, nil
}

// buildPatch renders an UPDATE touching only the fields set in p.
func buildPatch(id string, p domain.Patch, now time.Time) (string, []any) {
	sets := []string{"updated_at = $1"}
	args := []any{now}
	add := func(col string, v any, cast string) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", col, len(args), cast))
	}
	if p.Name != nil {
		add("name", strings.TrimSpace(*p.Name), "")
	}
	if p.Image != nil {
		add("image", *p.Image, "")
	}
	if p.Category != nil {
		add("category", *p.Category, "")
	}
	if p.Origin != nil {
		add("origin", *p.Origin, "")
	}
	if p.Description != nil {
		add("description", *p.Description, "")
	}
	if p.Price != nil {
		add("price", p.Price.String(), "::text::numeric")
	}
	if p.Quantity != nil {
		add("quantity", *p.Quantity, "")
	}
	args = append(args, id)
	return fmt.Sprintf("UPDATE food_items SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)), args
}
