package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/h4food/foodmarket/internal/application/inventory"
	domcatalog "github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/failure"
	domain "github.com/h4food/foodmarket/internal/domain/order"
	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/infrastructure/memory"
	infraobs "github.com/h4food/foodmarket/internal/infrastructure/observability"
	"github.com/h4food/foodmarket/internal/infrastructure/observability/prometrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type seqIDs struct{ n atomic.Int64 }

func (g *seqIDs) NewID() string { return fmt.Sprintf("ord-%03d", g.n.Add(1)) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
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

// failingInserts stores nothing and reports the store as unreachable.
type failingInserts struct {
	domain.Repository
}

func (failingInserts) Insert(context.Context, *domain.Order) error {
	return failure.Wrap(failure.KindStoreUnavailable, errors.New("connection reset"), "orders: insert")
}

// lostAcknowledgement applies the decrement and then reports the store as
// unreachable, as a timed-out write would.
type lostAcknowledgement struct {
	domcatalog.Repository
}

func (r lostAcknowledgement) CompareAndDecrement(ctx context.Context, id string, quantity int) (domcatalog.DecrementResult, error) {
	if _, err := r.Repository.CompareAndDecrement(ctx, id, quantity); err != nil {
		return domcatalog.DecrementResult{}, err
	}
	return domcatalog.DecrementResult{}, failure.Wrap(failure.KindStoreUnavailable, errors.New("i/o timeout"), "catalog: decrement")
}

type fixture struct {
	catalog *memory.CatalogRepository
	orders  *memory.OrderRepository
	idem    *memory.IdempotencyStore
	pub     *recordingPublisher
	itemID  string
}

func newFixture(t *testing.T, quantity int) *fixture {
	t.Helper()
	f := &fixture{
		catalog: memory.NewCatalogRepository(),
		orders:  memory.NewOrderRepository(),
		idem:    memory.NewIdempotencyStore(time.Hour),
		pub:     &recordingPublisher{},
	}
	item, err := domcatalog.NewFoodItem(domcatalog.FoodItem{
		Name:     "Banh Mi",
		Price:    decimal.RequireFromString("4.75"),
		Quantity: quantity,
	})
	require.NoError(t, err)
	f.itemID, err = f.catalog.Create(context.Background(), item)
	require.NoError(t, err)
	return f
}

func (f *fixture) useCase(repo domain.Repository) *PlaceOrderUseCase {
	ledger := inventory.NewPurchaseUseCase(f.catalog, f.pub, nil)
	return NewPlaceOrderUseCase(ledger, repo, f.idem, &seqIDs{}, f.pub, nil)
}

func (f *fixture) stock(t *testing.T) (int, int) {
	t.Helper()
	item, err := f.catalog.Get(context.Background(), f.itemID)
	require.NoError(t, err)
	return item.Quantity, item.SoldCount
}

func TestPlaceOrderRecordsOrder(t *testing.T) {
	f := newFixture(t, 10)
	uc := f.useCase(f.orders)

	res, err := uc.Execute(context.Background(), PlaceOrderInput{
		FoodItemID:      f.itemID,
		OrderedQuantity: 3,
		PurchaserID:     "buyer@example.com",
		PurchaserName:   "Buyer",
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, "Banh Mi", res.Order.FoodName)
	assert.True(t, res.Order.TotalPrice.Equal(decimal.RequireFromString("14.25")))

	qty, sold := f.stock(t)
	assert.Equal(t, 7, qty)
	assert.Equal(t, 3, sold)

	stored, err := f.orders.Get(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.OrderedQuantity)
	assert.Equal(t, []string{"inventory.purchased", "order.placed"}, f.pub.names())
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t, 10)
	uc := f.useCase(f.orders)
	ctx := context.Background()

	_, err := uc.Execute(ctx, PlaceOrderInput{FoodItemID: f.itemID, OrderedQuantity: 1})
	assert.ErrorIs(t, err, failure.ErrValidation)

	_, err = uc.Execute(ctx, PlaceOrderInput{FoodItemID: f.itemID, OrderedQuantity: 0, PurchaserID: "a@b.c"})
	assert.ErrorIs(t, err, failure.ErrInvalidArgument)

	_, err = uc.Execute(ctx, PlaceOrderInput{FoodItemID: "missing", OrderedQuantity: 1, PurchaserID: "a@b.c"})
	assert.ErrorIs(t, err, failure.ErrNotFound)

	_, err = uc.Execute(ctx, PlaceOrderInput{FoodItemID: f.itemID, OrderedQuantity: 11, PurchaserID: "a@b.c"})
	assert.ErrorIs(t, err, failure.ErrInsufficientStock)

	qty, sold := f.stock(t)
	assert.Equal(t, 10, qty)
	assert.Equal(t, 0, sold)
	assert.Empty(t, f.pub.names())
}

func TestPlaceOrderIdempotentReplay(t *testing.T) {
	f := newFixture(t, 10)
	uc := f.useCase(f.orders)
	in := PlaceOrderInput{FoodItemID: f.itemID, OrderedQuantity: 2, PurchaserID: "Buyer@Example.com", IdempotencyKey: "k-1"}

	first, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)

	in.PurchaserID = "buyer@example.com"
	second, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	qty, _ := f.stock(t)
	assert.Equal(t, 8, qty)
}

func TestPlaceOrderKeyInFlight(t *testing.T) {
	f := newFixture(t, 10)
	uc := f.useCase(f.orders)

	ok, err := f.idem.Reserve(context.Background(), "buyer@example.com", "k-2")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = uc.Execute(context.Background(), PlaceOrderInput{
		FoodItemID: f.itemID, OrderedQuantity: 1, PurchaserID: "buyer@example.com", IdempotencyKey: "k-2",
	})
	assert.ErrorIs(t, err, ErrInFlight)
	assert.ErrorIs(t, err, failure.ErrConflict)

	qty, _ := f.stock(t)
	assert.Equal(t, 10, qty)
}

func TestPlaceOrderRejectionReleasesKey(t *testing.T) {
	f := newFixture(t, 2)
	uc := f.useCase(f.orders)
	in := PlaceOrderInput{FoodItemID: f.itemID, OrderedQuantity: 5, PurchaserID: "buyer@example.com", IdempotencyKey: "k-3"}

	_, err := uc.Execute(context.Background(), in)
	require.ErrorIs(t, err, failure.ErrInsufficientStock)

	in.OrderedQuantity = 2
	res, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
}

func TestPlaceOrderStoreFailureKeepsKey(t *testing.T) {
	f := newFixture(t, 10)
	ledger := inventory.NewPurchaseUseCase(lostAcknowledgement{Repository: f.catalog}, f.pub, nil)
	uc := NewPlaceOrderUseCase(ledger, f.orders, f.idem, &seqIDs{}, f.pub, nil)
	in := PlaceOrderInput{FoodItemID: f.itemID, OrderedQuantity: 3, PurchaserID: "buyer@example.com", IdempotencyKey: "k"}

	_, err := uc.Execute(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, failure.KindStoreUnavailable, failure.KindOf(err))

	_, err = uc.Execute(context.Background(), in)
	assert.ErrorIs(t, err, ErrInFlight)

	qty, sold := f.stock(t)
	assert.Equal(t, 7, qty)
	assert.Equal(t, 3, sold)
}

func TestPlaceOrderKeyReusedForDifferentOrder(t *testing.T) {
	f := newFixture(t, 10)
	uc := f.useCase(f.orders)
	in := PlaceOrderInput{FoodItemID: f.itemID, OrderedQuantity: 2, PurchaserID: "buyer@example.com", IdempotencyKey: "k-4"}

	_, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)

	in.OrderedQuantity = 5
	_, err = uc.Execute(context.Background(), in)
	assert.ErrorIs(t, err, ErrKeyReused)
	assert.ErrorIs(t, err, failure.ErrConflict)

	qty, _ := f.stock(t)
	assert.Equal(t, 8, qty)
}

func TestPlaceOrderPartialFailure(t *testing.T) {
	f := newFixture(t, 10)
	reg := prometheus.NewRegistry()
	tel, err := infraobs.NewPrometheus(nil, nil, prometrics.New(reg, ""))
	require.NoError(t, err)

	ledger := inventory.NewPurchaseUseCase(f.catalog, f.pub, tel)
	uc := NewPlaceOrderUseCase(ledger, failingInserts{f.orders}, f.idem, &seqIDs{}, f.pub, tel)
	in := PlaceOrderInput{FoodItemID: f.itemID, OrderedQuantity: 4, PurchaserID: "buyer@example.com", IdempotencyKey: "k-4"}

	_, err = uc.Execute(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrPartialFailure)
	assert.Equal(t, failure.KindPartialFailure, failure.KindOf(err))

	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, f.itemID, pf.FoodItemID)
	assert.Equal(t, 6, pf.Remaining)
	assert.Equal(t, 4, pf.SoldCount)

	// stock stays debited and the key stays held
	qty, sold := f.stock(t)
	assert.Equal(t, 6, qty)
	assert.Equal(t, 4, sold)
	_, err = uc.Execute(context.Background(), in)
	assert.ErrorIs(t, err, ErrInFlight)

	assert.Equal(t, []string{"inventory.purchased", "order.record_failed"}, f.pub.names())
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "ledger_partial_failures_total"))
}

func TestPlaceOrderConcurrentNeverOversells(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, 10)
	uc := f.useCase(f.orders)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), PlaceOrderInput{
				FoodItemID:      f.itemID,
				OrderedQuantity: 6,
				PurchaserID:     fmt.Sprintf("buyer-%d@example.com", i),
			})
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
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, rejected)

	qty, sold := f.stock(t)
	assert.Equal(t, 4, qty)
	assert.Equal(t, 6, sold)
}
