package catalog

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Service owns listing lifecycle: create, read, owner edits and removal.
// Stock only decreases through the inventory ledger.
type Service struct {
	repo domain.Repository
	inst instrument
}

func NewService(repo domain.Repository, tel observability.Observability) *Service {
	return &Service{repo: repo, inst: newInstrument(tel)}
}

func (s *Service) Create(ctx context.Context, item domain.FoodItem) (created *domain.FoodItem, err error) {
	ctx, done := s.inst.track(ctx, "catalog.create", "CreateFoodItem")
	defer func() {
		var fields []observability.Field
		if created != nil {
			fields = append(fields, observability.F("food_item_id", created.ID))
		}
		done(err, fields...)
	}()

	created, err = domain.NewFoodItem(item)
	if err != nil {
		return nil, err
	}
	if _, err = s.repo.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("catalog: create: %w", err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (item *domain.FoodItem, err error) {
	ctx, done := s.inst.track(ctx, "catalog.get", "GetFoodItem", attribute.String("food_item.id", id))
	defer func() { done(err, observability.F("food_item_id", id)) }()

	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrIDRequired
	}
	item, err = s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: get: %w", err)
	}
	return item, nil
}

func (s *Service) ListAll(ctx context.Context) (items []*domain.FoodItem, err error) {
	ctx, done := s.inst.track(ctx, "catalog.list", "ListFoodItems")
	defer func() { done(err, observability.F("items", len(items))) }()

	items, err = s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return items, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerContact string) (items []*domain.FoodItem, err error) {
	ctx, done := s.inst.track(ctx, "catalog.list_by_owner", "ListByOwner")
	defer func() { done(err, observability.F("items", len(items))) }()

	if strings.TrimSpace(ownerContact) == "" {
		return nil, domain.ErrOwnerRequired
	}
	items, err = s.repo.ListByOwner(ctx, ownerContact)
	if err != nil {
		return nil, fmt.Errorf("catalog: list by owner: %w", err)
	}
	return items, nil
}

// Update applies an owner edit. Last writer wins; concurrent purchases are not
// coordinated with it.
func (s *Service) Update(ctx context.Context, id string, patch domain.Patch) (res domain.UpdateResult, err error) {
	ctx, done := s.inst.track(ctx, "catalog.update", "UpdateFoodItem", attribute.String("food_item.id", id))
	defer func() { done(err, observability.F("food_item_id", id), observability.F("modified", res.Modified)) }()

	if strings.TrimSpace(id) == "" {
		return res, domain.ErrIDRequired
	}
	if err = patch.Validate(); err != nil {
		return res, err
	}
	res, err = s.repo.Update(ctx, id, patch)
	if err != nil {
		return res, fmt.Errorf("catalog: update: %w", err)
	}
	return res, nil
}

func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, done := s.inst.track(ctx, "catalog.delete", "DeleteFoodItem", attribute.String("food_item.id", id))
	defer func() { done(err, observability.F("food_item_id", id)) }()

	if strings.TrimSpace(id) == "" {
		return domain.ErrIDRequired
	}
	if err = s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	return nil
}
