package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	domain "github.com/h4food/foodmarket/internal/domain/order"
)

type OrderRepository struct {
	mu          sync.RWMutex
	orders      map[string]*domain.Order
	idempotency map[string]string
}

var _ domain.Repository = (*OrderRepository)(nil)

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:      make(map[string]*domain.Order),
		idempotency: make(map[string]string),
	}
}

func idempotencyKey(purchaserID, key string) string {
	return strings.ToLower(purchaserID) + "|" + key
}

// Insert assigns an id when the order has none.
func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order repository: order is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}

	var idemKey string
	if order.IdempotencyKey != "" {
		idemKey = idempotencyKey(order.PurchaserID, order.IdempotencyKey)
		if existingID, exists := r.idempotency[idemKey]; exists {
			if _, ok := r.orders[existingID]; ok {
				return domain.ErrConflict
			}
		}
	}

	r.orders[order.ID] = order.Clone()
	if idemKey != "" {
		r.idempotency[idemKey] = order.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) ListByPurchaser(ctx context.Context, purchaserID string) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if strings.EqualFold(o.PurchaserID, purchaserID) {
			out = append(out, o.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if order.IdempotencyKey != "" {
		delete(r.idempotency, idempotencyKey(order.PurchaserID, order.IdempotencyKey))
	}
	delete(r.orders, id)
	return nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, purchaserID, key string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.idempotency[idempotencyKey(purchaserID, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, found := r.orders[orderID]
	if !found {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}
