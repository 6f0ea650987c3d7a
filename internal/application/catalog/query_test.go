package catalog

import (
	"context"
	"fmt"
	"testing"

	domain "github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/h4food/foodmarket/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNonNegative(t *testing.T) {
	tests := []struct {
		raw  string
		def  int
		want int
		ok   bool
	}{
		{"", 6, 6, true},
		{"  ", 0, 0, true},
		{"0", 6, 0, true},
		{"12", 6, 12, true},
		{" 3 ", 0, 3, true},
		{"-1", 6, 0, false},
		{"abc", 6, 0, false},
		{"1.5", 6, 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			got, err := ParseNonNegative(tt.raw, tt.def)
			if !tt.ok {
				assert.ErrorIs(t, err, failure.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func seed(t *testing.T, repo domain.Repository, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		item, err := domain.NewFoodItem(domain.FoodItem{Name: fmt.Sprintf("dish-%02d", i), Quantity: 50})
		require.NoError(t, err)
		id, err := repo.Create(context.Background(), item)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestQueryPagination(t *testing.T) {
	repo := memory.NewCatalogRepository()
	ids := seed(t, repo, 15)
	svc := NewQueryService(repo, nil)
	ctx := context.Background()

	first, err := svc.Page(ctx, "")
	require.NoError(t, err)
	require.Len(t, first, 9)
	assert.Equal(t, ids[0], first[0].ID)

	second, err := svc.Page(ctx, "1")
	require.NoError(t, err)
	require.Len(t, second, 6)
	assert.Equal(t, ids[9], second[0].ID)

	third, err := svc.Page(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, third)

	_, err = svc.Page(ctx, "-1")
	assert.ErrorIs(t, err, failure.ErrInvalidArgument)
	_, err = svc.Page(ctx, "two")
	assert.ErrorIs(t, err, failure.ErrInvalidArgument)
}

func TestQueryCustomPageSize(t *testing.T) {
	repo := memory.NewCatalogRepository()
	seed(t, repo, 5)
	svc := NewQueryService(repo, nil, WithPageSize(2))

	assert.Equal(t, 2, svc.PageSize())
	page, err := svc.Page(context.Background(), "2")
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestQueryTopSelling(t *testing.T) {
	repo := memory.NewCatalogRepository()
	ids := seed(t, repo, 7)
	ctx := context.Background()
	for i, sold := range []int{5, 3, 3, 9, 1, 7, 2} {
		_, err := repo.CompareAndDecrement(ctx, ids[i], sold)
		require.NoError(t, err)
	}
	svc := NewQueryService(repo, nil)

	top, err := svc.TopSelling(ctx, "")
	require.NoError(t, err)
	require.Len(t, top, 6)
	got := make([]int, 0, len(top))
	for _, it := range top {
		got = append(got, it.SoldCount)
	}
	assert.Equal(t, []int{9, 7, 5, 3, 3, 2}, got)
	assert.Equal(t, ids[1], top[3].ID)
	assert.Equal(t, ids[2], top[4].ID)

	two, err := svc.TopSelling(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, two, 2)

	_, err = svc.TopSelling(ctx, "-3")
	assert.ErrorIs(t, err, failure.ErrInvalidArgument)
}

type fixedCounter int64

func (c fixedCounter) Count(context.Context) (int64, error) { return int64(c), nil }

func TestQueryCount(t *testing.T) {
	repo := memory.NewCatalogRepository()
	ids := seed(t, repo, 20)
	ctx := context.Background()
	for _, id := range ids[:3] {
		require.NoError(t, repo.Delete(ctx, id))
	}

	n, err := NewQueryService(repo, nil).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 17, n)

	n, err = NewQueryService(repo, nil, WithCounter(fixedCounter(42))).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
}
