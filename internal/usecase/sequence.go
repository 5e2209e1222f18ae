package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
)

const defaultAllocateAttempts = 32

// SequenceGenerator hands out DDMMYY##### product identifiers. The read of
// the current maximum is only a starting hint; the unique index on barcode
// decides who wins, and losers move on to the next counter value.
type SequenceGenerator struct {
	products    ProductRepo
	now         Clock
	loc         *time.Location
	maxAttempts int
}

func NewSequenceGenerator(products ProductRepo, now Clock, loc *time.Location) *SequenceGenerator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &SequenceGenerator{products: products, now: now, loc: loc, maxAttempts: defaultAllocateAttempts}
}

// Next computes the next identifier for today from the stored maximum.
func (g *SequenceGenerator) Next(ctx context.Context) (string, error) {
	prefix, counter, err := g.start(ctx)
	if err != nil {
		return "", err
	}
	return domain.FormatBarcode(prefix, counter)
}

// Allocate generates an identifier and passes it to create, retrying with the
// following counter value whenever create reports domain.ErrDuplicateBarcode.
func (g *SequenceGenerator) Allocate(ctx context.Context, create func(barcode string) error) (string, error) {
	prefix, counter, err := g.start(ctx)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := domain.FormatBarcode(prefix, counter+attempt)
		if err != nil {
			return "", err
		}
		err = create(code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, domain.ErrDuplicateBarcode) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %d attempts exhausted for prefix %s", domain.ErrGenerationFailed, g.maxAttempts, prefix)
}

func (g *SequenceGenerator) start(ctx context.Context) (string, int, error) {
	prefix := domain.BarcodePrefix(g.now().In(g.loc))
	last, err := g.products.MaxBarcodeWithPrefix(ctx, prefix)
	if err != nil {
		return "", 0, fmt.Errorf("%w: lookup: %v", domain.ErrGenerationFailed, err)
	}
	if last == "" {
		return prefix, 1, nil
	}
	n, err := domain.BarcodeCounter(last)
	if err != nil {
		return "", 0, err
	}
	return prefix, n + 1, nil
}
