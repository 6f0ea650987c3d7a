package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"
	defaultTimeout  = 5 * time.Second
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, failure.Wrap(failure.KindStoreUnavailable, err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, failure.Wrap(failure.KindStoreUnavailable, err, "postgres: ping")
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS food_items (
	id            TEXT PRIMARY KEY,
	seq           BIGSERIAL UNIQUE,
	name          TEXT NOT NULL,
	image         TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	origin        TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	price         NUMERIC NOT NULL CHECK (price >= 0),
	quantity      INTEGER NOT NULL CHECK (quantity >= 0),
	sold_count    INTEGER NOT NULL DEFAULT 0 CHECK (sold_count >= 0),
	owner_id      TEXT NOT NULL DEFAULT '',
	owner_contact TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS food_items_top_selling_idx ON food_items (sold_count DESC, seq ASC);
CREATE INDEX IF NOT EXISTS food_items_owner_idx ON food_items (lower(owner_contact));

CREATE TABLE IF NOT EXISTS orders (
	id               TEXT PRIMARY KEY,
	food_item_id     TEXT NOT NULL,
	food_name        TEXT NOT NULL DEFAULT '',
	unit_price       NUMERIC NOT NULL,
	total_price      NUMERIC NOT NULL,
	purchaser_id     TEXT NOT NULL,
	purchaser_name   TEXT NOT NULL DEFAULT '',
	ordered_quantity INTEGER NOT NULL CHECK (ordered_quantity > 0),
	idempotency_key  TEXT,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_purchaser_idx ON orders (lower(purchaser_id), created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS orders_idempotency_uidx
	ON orders (lower(purchaser_id), idempotency_key) WHERE idempotency_key IS NOT NULL;

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	photo_url  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the tables and indexes when they are missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return mapError(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// mapError attaches a failure kind to driver errors. pgx.ErrNoRows is left to
// the caller, which knows which not-found sentinel applies.
func mapError(err error) error {
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return failure.Wrap(failure.KindConflict, err, "postgres: unique violation")
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return failure.Wrap(failure.KindStoreUnavailable, err, "postgres: unavailable")
	}
	return err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
