package usecase

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/logging"
)

const defaultLookupLimit = 20

// Catalog serves the read side of the product store used while building a
// cart.
type Catalog struct {
	products ProductRepo
	limit    int
}

func NewCatalog(products ProductRepo, limit int) *Catalog {
	if limit <= 0 {
		limit = defaultLookupLimit
	}
	return &Catalog{products: products, limit: limit}
}

// Lookup matches an exact barcode first and falls back to a name search.
func (c *Catalog) Lookup(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search term", domain.ErrInvalidRequest)
	}
	return c.products.Search(ctx, query, c.limit)
}

func (c *Catalog) ByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("%w: empty barcode", domain.ErrInvalidRequest)
	}
	return c.products.FindByBarcode(ctx, barcode)
}

// OrderQueries reads committed orders through an optional cache. Orders are
// immutable once written, so cached copies never go stale.
type OrderQueries struct {
	orders OrderRepo
	cache  OrderCache
}

func NewOrderQueries(orders OrderRepo, cache OrderCache) *OrderQueries {
	return &OrderQueries{orders: orders, cache: cache}
}

func (q *OrderQueries) Get(ctx context.Context, id string) (*domain.Order, error) {
	log := logging.FromCtx(ctx)
	if q.cache != nil {
		o, ok, err := q.cache.Get(ctx, id)
		if err != nil {
			log.Warn("order cache read failed", "order_id", id, "err", err)
		}
		if ok {
			return o, nil
		}
	}
	o, err := q.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.cache != nil {
		if err := q.cache.Set(ctx, o); err != nil {
			log.Warn("order cache write failed", "order_id", id, "err", err)
		}
	}
	return o, nil
}
