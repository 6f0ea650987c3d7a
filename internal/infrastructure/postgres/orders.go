package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/h4food/foodmarket/internal/domain/failure"
	domain "github.com/h4food/foodmarket/internal/domain/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, food_item_id, food_name, unit_price::text, total_price::text,
	purchaser_id, purchaser_name, ordered_quantity, coalesce(idempotency_key, ''), created_at`

type OrderRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

var _ domain.Repository = (*OrderRepository)(nil)

func NewOrderRepository(db *pgxpool.Pool, timeout time.Duration) *OrderRepository {
	return &OrderRepository{db: db, timeout: timeout}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, food_item_id, food_name, unit_price, total_price, purchaser_id,
			purchaser_name, ordered_quantity, idempotency_key, created_at)
		VALUES ($1,$2,$3,$4::text::numeric,$5::text::numeric,$6,$7,$8,NULLIF($9, ''),$10)`,
		o.ID, o.FoodItemID, o.FoodName, o.UnitPrice.String(), o.TotalPrice.String(), o.PurchaserID,
		o.PurchaserName, o.OrderedQuantity, o.IdempotencyKey, o.CreatedAt,
	)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, failure.ErrConflict) {
			return domain.ErrConflict
		}
		return fmt.Errorf("postgres: insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.queryOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepository) ListByPurchaser(ctx context.Context, purchaserID string) ([]*domain.Order, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE lower(purchaser_id) = lower($1) ORDER BY created_at DESC, id DESC`, purchaserID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query orders: %w", mapError(err))
	}
	defer rows.Close()

	out := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate orders: %w", mapError(err))
	}
	return out, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete order: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, purchaserID, key string) (*domain.Order, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	return r.queryOne(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE lower(purchaser_id) = lower($1) AND idempotency_key = $2`, purchaserID, key)
}

func (r *OrderRepository) queryOne(ctx context.Context, sql string, args ...any) (*domain.Order, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get order: %w", mapError(err))
	}
	return o, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o           domain.Order
		unit, total string
	)
	err := row.Scan(&o.ID, &o.FoodItemID, &o.FoodName, &unit, &total, &o.PurchaserID,
		&o.PurchaserName, &o.OrderedQuantity, &o.IdempotencyKey, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if o.UnitPrice, err = decimal.NewFromString(unit); err != nil {
		return nil, fmt.Errorf("parse unit price %q: %w", unit, err)
	}
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total price %q: %w", total, err)
	}
	return &o, nil
}
