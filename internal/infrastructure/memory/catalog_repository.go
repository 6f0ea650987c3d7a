package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	domain "github.com/h4food/foodmarket/internal/domain/catalog"
)

// CatalogRepository keeps food items in process memory. CompareAndDecrement runs
// under the write lock, so the check and the update are one step.
type CatalogRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.FoodItem
	seq   int64
}

var _ domain.Repository = (*CatalogRepository)(nil)

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		items: make(map[string]*domain.FoodItem),
	}
}

func (r *CatalogRepository) Create(ctx context.Context, item *domain.FoodItem) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if item == nil {
		return "", domain.ErrIDRequired
	}
	if err := item.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	stored := item.Clone()
	stored.ID = uuid.NewString()
	stored.Seq = r.seq
	r.items[stored.ID] = stored

	item.ID, item.Seq = stored.ID, stored.Seq
	return stored.ID, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (*domain.FoodItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return item.Clone(), nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]*domain.FoodItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.snapshot(nil), nil
}

func (r *CatalogRepository) ListPage(ctx context.Context, pageIndex, pageSize int) ([]*domain.FoodItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pageIndex < 0 {
		return nil, domain.ErrInvalidPage
	}
	if pageSize <= 0 {
		return nil, domain.ErrInvalidLimit
	}

	all := r.snapshot(nil)
	start := pageIndex * pageSize
	if start >= len(all) {
		return []*domain.FoodItem{}, nil
	}
	end := min(start+pageSize, len(all))
	return all[start:end], nil
}

func (r *CatalogRepository) ListTopSelling(ctx context.Context, limit int) ([]*domain.FoodItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, domain.ErrInvalidLimit
	}

	all := r.snapshot(nil)
	// all is in seq order, so a stable sort keeps insertion order among ties.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].SoldCount > all[j].SoldCount
	})
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *CatalogRepository) ListByOwner(ctx context.Context, ownerContact string) ([]*domain.FoodItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.snapshot(func(item *domain.FoodItem) bool {
		return strings.EqualFold(item.OwnerContact, ownerContact)
	}), nil
}

func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *CatalogRepository) Update(ctx context.Context, id string, patch domain.Patch) (domain.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.UpdateResult{}, err
	}
	if err := patch.Validate(); err != nil {
		return domain.UpdateResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return domain.UpdateResult{}, domain.ErrNotFound
	}
	// updatedAt always moves, so a matched item is always modified.
	patch.ApplyTo(item)
	return domain.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *CatalogRepository) CompareAndDecrement(ctx context.Context, id string, quantity int) (domain.DecrementResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.DecrementResult{}, err
	}
	if quantity <= 0 {
		return domain.DecrementResult{}, domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return domain.DecrementResult{Outcome: domain.OutcomeNotFound}, nil
	}
	if item.Quantity < quantity {
		return domain.DecrementResult{Outcome: domain.OutcomeInsufficientStock}, nil
	}
	item.Quantity -= quantity
	item.SoldCount += quantity
	return domain.DecrementResult{Outcome: domain.OutcomeApplied, Item: item.Clone()}, nil
}

// snapshot copies the items accepted by keep, ordered by insertion sequence.
func (r *CatalogRepository) snapshot(keep func(*domain.FoodItem) bool) []*domain.FoodItem {
	r.mu.RLock()
	out := make([]*domain.FoodItem, 0, len(r.items))
	for _, item := range r.items {
		if keep == nil || keep(item) {
			out = append(out, item.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
