package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	domain "github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CatalogRepositorySuite struct {
	suite.Suite
	ctx  context.Context
	repo *CatalogRepository
}

func TestCatalogRepositorySuite(t *testing.T) {
	suite.Run(t, new(CatalogRepositorySuite))
}

func (s *CatalogRepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = NewCatalogRepository()
}

func (s *CatalogRepositorySuite) seed(name string, quantity int) string {
	item, err := domain.NewFoodItem(domain.FoodItem{
		Name:         name,
		Price:        decimal.RequireFromString("4.50"),
		Quantity:     quantity,
		OwnerContact: "owner@example.com",
	})
	s.Require().NoError(err)
	id, err := s.repo.Create(s.ctx, item)
	s.Require().NoError(err)
	return id
}

func (s *CatalogRepositorySuite) TestCreateRejectsInvalid() {
	_, err := s.repo.Create(s.ctx, &domain.FoodItem{Name: "x", Quantity: -1})
	s.Require().Error(err)

	n, err := s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), n)
}

func (s *CatalogRepositorySuite) TestPagination() {
	for i := 0; i < 15; i++ {
		s.seed(fmt.Sprintf("item-%02d", i), 1)
	}

	first, err := s.repo.ListPage(s.ctx, 0, 9)
	s.Require().NoError(err)
	second, err := s.repo.ListPage(s.ctx, 1, 9)
	s.Require().NoError(err)
	third, err := s.repo.ListPage(s.ctx, 2, 9)
	s.Require().NoError(err)

	s.Len(first, 9)
	s.Len(second, 6)
	s.Empty(third)

	seen := map[string]bool{}
	for _, it := range append(first, second...) {
		s.False(seen[it.ID], "item repeated across pages")
		seen[it.ID] = true
	}
	s.Equal("item-00", first[0].Name)
	s.Equal("item-09", second[0].Name)

	_, err = s.repo.ListPage(s.ctx, -1, 9)
	s.ErrorIs(err, domain.ErrInvalidPage)
}

func (s *CatalogRepositorySuite) TestTopSellingTieBreak() {
	sold := []int{5, 3, 3, 9, 1, 7, 2}
	ids := make([]string, len(sold))
	for i, n := range sold {
		ids[i] = s.seed(fmt.Sprintf("dish-%d", i), 20)
		_, err := s.repo.CompareAndDecrement(s.ctx, ids[i], n)
		s.Require().NoError(err)
	}

	top, err := s.repo.ListTopSelling(s.ctx, 6)
	s.Require().NoError(err)
	s.Require().Len(top, 6)

	got := make([]int, len(top))
	for i, it := range top {
		got[i] = it.SoldCount
	}
	s.Equal([]int{9, 7, 5, 3, 3, 2}, got)
	s.Equal(ids[1], top[3].ID)
	s.Equal(ids[2], top[4].ID)
}

func (s *CatalogRepositorySuite) TestCompareAndDecrementOutcomes() {
	id := s.seed("noodles", 3)

	res, err := s.repo.CompareAndDecrement(s.ctx, id, 5)
	s.Require().NoError(err)
	s.Equal(domain.OutcomeInsufficientStock, res.Outcome)

	item, err := s.repo.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(3, item.Quantity)
	s.Equal(0, item.SoldCount)

	res, err = s.repo.CompareAndDecrement(s.ctx, "missing", 1)
	s.Require().NoError(err)
	s.Equal(domain.OutcomeNotFound, res.Outcome)

	res, err = s.repo.CompareAndDecrement(s.ctx, id, 3)
	s.Require().NoError(err)
	s.Equal(domain.OutcomeApplied, res.Outcome)
	s.Equal(0, res.Item.Quantity)
	s.Equal(3, res.Item.SoldCount)

	_, err = s.repo.CompareAndDecrement(s.ctx, id, 0)
	s.ErrorIs(err, domain.ErrInvalidQuantity)
}

func (s *CatalogRepositorySuite) TestCountAfterDeletes() {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = s.seed(fmt.Sprintf("c-%d", i), 1)
	}
	for _, id := range ids[:3] {
		s.Require().NoError(s.repo.Delete(s.ctx, id))
	}
	n, err := s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(17), n)

	s.ErrorIs(s.repo.Delete(s.ctx, ids[0]), domain.ErrNotFound)
}

func (s *CatalogRepositorySuite) TestUpdate() {
	id := s.seed("rice", 2)
	name := "fried rice"
	qty := 8

	res, err := s.repo.Update(s.ctx, id, domain.Patch{Name: &name, Quantity: &qty})
	s.Require().NoError(err)
	s.Equal(domain.UpdateResult{Matched: 1, Modified: 1}, res)

	_, err = s.repo.Update(s.ctx, "missing", domain.Patch{Name: &name})
	s.ErrorIs(err, domain.ErrNotFound)

	item, err := s.repo.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("fried rice", item.Name)
	s.Equal(8, item.Quantity)
}

func (s *CatalogRepositorySuite) TestListByOwner() {
	s.seed("a", 1)
	other, err := domain.NewFoodItem(domain.FoodItem{Name: "b", OwnerContact: "someone@else.org"})
	s.Require().NoError(err)
	_, err = s.repo.Create(s.ctx, other)
	s.Require().NoError(err)

	mine, err := s.repo.ListByOwner(s.ctx, "OWNER@example.com")
	s.Require().NoError(err)
	s.Len(mine, 1)
	s.Equal("a", mine[0].Name)
}

func TestCompareAndDecrementNeverOversells(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository()
	item, err := domain.NewFoodItem(domain.FoodItem{Name: "bao", Quantity: 50})
	require.NoError(t, err)
	id, err := repo.Create(ctx, item)
	require.NoError(t, err)

	var applied atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.CompareAndDecrement(ctx, id, 1)
			if err == nil && res.Outcome == domain.OutcomeApplied {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int32(50), applied.Load())
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, 50, got.SoldCount)
}
