package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	domcatalog "github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/failure"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

func seedItem(t *testing.T, repo domcatalog.Repository, quantity int) string {
	t.Helper()
	item, err := domcatalog.NewFoodItem(domcatalog.FoodItem{Name: "Gyoza", Category: "dumplings", Quantity: quantity})
	require.NoError(t, err)
	id, err := repo.Create(context.Background(), item)
	require.NoError(t, err)
	return id
}

func TestPurchaseRejectsNonPositiveQuantity(t *testing.T) {
	repo := memory.NewCatalogRepository()
	id := seedItem(t, repo, 5)
	uc := NewPurchaseUseCase(repo, nil, nil)

	for _, q := range []int{0, -1} {
		_, err := uc.Execute(context.Background(), PurchaseInput{FoodItemID: id, OrderedQuantity: q})
		assert.ErrorIs(t, err, failure.ErrInvalidArgument)
	}

	item, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, 0, item.SoldCount)
}

func TestPurchaseMissingItem(t *testing.T) {
	uc := NewPurchaseUseCase(memory.NewCatalogRepository(), nil, nil)

	_, err := uc.Execute(context.Background(), PurchaseInput{FoodItemID: "nope", OrderedQuantity: 1})
	assert.ErrorIs(t, err, failure.ErrNotFound)

	_, err = uc.Execute(context.Background(), PurchaseInput{OrderedQuantity: 1})
	assert.ErrorIs(t, err, failure.ErrValidation)
}

func TestPurchaseInsufficientStockLeavesStateUnchanged(t *testing.T) {
	repo := memory.NewCatalogRepository()
	id := seedItem(t, repo, 3)
	pub := &recordingPublisher{}
	uc := NewPurchaseUseCase(repo, pub, nil)

	_, err := uc.Execute(context.Background(), PurchaseInput{FoodItemID: id, OrderedQuantity: 4})
	assert.ErrorIs(t, err, failure.ErrInsufficientStock)

	item, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, 0, item.SoldCount)
	assert.Empty(t, pub.names())
}

func TestPurchasePublishesPurchasedThenDepleted(t *testing.T) {
	repo := memory.NewCatalogRepository()
	id := seedItem(t, repo, 5)
	pub := &recordingPublisher{}
	uc := NewPurchaseUseCase(repo, pub, nil)

	res, err := uc.Execute(context.Background(), PurchaseInput{FoodItemID: id, OrderedQuantity: 2, PurchaserID: "a@x.io"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Quantity)
	assert.Equal(t, 2, res.SoldCount)
	assert.False(t, res.Depleted)

	res, err = uc.Execute(context.Background(), PurchaseInput{FoodItemID: id, OrderedQuantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Quantity)
	assert.Equal(t, 5, res.SoldCount)
	assert.True(t, res.Depleted)

	assert.Equal(t, []string{"inventory.purchased", "inventory.stock_depleted"}, pub.names())
}

func TestPurchaseSucceedsWhenPublishFails(t *testing.T) {
	repo := memory.NewCatalogRepository()
	id := seedItem(t, repo, 2)
	uc := NewPurchaseUseCase(repo, &recordingPublisher{err: errors.New("bus full")}, nil)

	res, err := uc.Execute(context.Background(), PurchaseInput{FoodItemID: id, OrderedQuantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Quantity)
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := memory.NewCatalogRepository()
	id := seedItem(t, repo, 10)
	uc := NewPurchaseUseCase(repo, nil, nil)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), PurchaseInput{FoodItemID: id, OrderedQuantity: 6})
		}(i)
	}
	wg.Wait()

	var applied, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			applied++
		case errors.Is(err, failure.ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, rejected)

	item, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, 6, item.SoldCount)
}

func TestManyConcurrentSingleUnitPurchases(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := memory.NewCatalogRepository()
	id := seedItem(t, repo, 25)
	uc := NewPurchaseUseCase(repo, nil, nil)

	var mu sync.Mutex
	applied := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.Execute(context.Background(), PurchaseInput{FoodItemID: id, OrderedQuantity: 1}); err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	item, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 25, applied)
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, 25, item.SoldCount)
}
