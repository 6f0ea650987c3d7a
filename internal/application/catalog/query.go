package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/h4food/foodmarket/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultPageSize        = 9
	DefaultTopSellingLimit = 6
)

// ParseNonNegative coerces a raw query value. Empty means def; anything that is
// not a non-negative integer is an InvalidArgument error, never clamped.
func ParseNonNegative(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, failure.Newf(failure.KindInvalidArgument, "catalog: %q is not an integer", raw)
	}
	if n < 0 {
		return 0, failure.Newf(failure.KindInvalidArgument, "catalog: %d must not be negative", n)
	}
	return n, nil
}

// QueryService serves the derived catalog views: pages, count and top sellers.
type QueryService struct {
	repo     domain.Repository
	counter  domain.Counter
	pageSize int
	topLimit int
	inst     instrument
}

type QueryOption func(*QueryService)

func WithPageSize(n int) QueryOption {
	return func(s *QueryService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithTopSellingLimit(n int) QueryOption {
	return func(s *QueryService) {
		if n >= 0 {
			s.topLimit = n
		}
	}
}

// WithCounter routes Count through c, typically a cache in front of the store.
func WithCounter(c domain.Counter) QueryOption {
	return func(s *QueryService) {
		if c != nil {
			s.counter = c
		}
	}
}

func NewQueryService(repo domain.Repository, tel observability.Observability, opts ...QueryOption) *QueryService {
	s := &QueryService{
		repo:     repo,
		counter:  repo,
		pageSize: DefaultPageSize,
		topLimit: DefaultTopSellingLimit,
		inst:     newInstrument(tel),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *QueryService) PageSize() int { return s.pageSize }

// Page returns page rawPage (0-based) in insertion order.
func (s *QueryService) Page(ctx context.Context, rawPage string) (items []*domain.FoodItem, err error) {
	ctx, done := s.inst.track(ctx, "catalog.page", "Page", attribute.String("catalog.page", rawPage))
	defer func() { done(err, observability.F("items", len(items))) }()

	page, err := ParseNonNegative(rawPage, 0)
	if err != nil {
		return nil, err
	}
	items, err = s.repo.ListPage(ctx, page, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("catalog: page %d: %w", page, err)
	}
	return items, nil
}

// Count is approximate when the counter is a cache or a metadata count.
func (s *QueryService) Count(ctx context.Context) (n int64, err error) {
	ctx, done := s.inst.track(ctx, "catalog.count", "Count")
	defer func() { done(err, observability.F("count", n)) }()

	n, err = s.counter.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("catalog: count: %w", err)
	}
	return n, nil
}

func (s *QueryService) TopSelling(ctx context.Context, rawLimit string) (items []*domain.FoodItem, err error) {
	ctx, done := s.inst.track(ctx, "catalog.top_selling", "TopSelling", attribute.String("catalog.limit", rawLimit))
	defer func() { done(err, observability.F("items", len(items))) }()

	limit, err := ParseNonNegative(rawLimit, s.topLimit)
	if err != nil {
		return nil, err
	}
	items, err = s.repo.ListTopSelling(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: top selling: %w", err)
	}
	return items, nil
}
