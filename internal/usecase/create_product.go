package usecase

import (
	"context"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/google/uuid"
)

type CreateProductInput struct {
	Name        string
	ImportPrice int64
	RetailPrice int64
	CategoryID  string
	Quantity    int
	Description string
	Images      []domain.Image
}

type CreateProduct struct {
	products ProductRepo
	seq      *SequenceGenerator
	now      Clock
}

func NewCreateProduct(products ProductRepo, seq *SequenceGenerator, now Clock) *CreateProduct {
	if now == nil {
		now = time.Now
	}
	return &CreateProduct{products: products, seq: seq, now: now}
}

// Execute never persists a product without an identifier: a generation
// failure aborts the whole operation.
func (uc *CreateProduct) Execute(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	p := &domain.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		ImportPrice: in.ImportPrice,
		RetailPrice: in.RetailPrice,
		CategoryID:  in.CategoryID,
		Quantity:    in.Quantity,
		Description: strings.TrimSpace(in.Description),
		Images:      in.Images,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	_, err := uc.seq.Allocate(ctx, func(code string) error {
		p.Barcode = code
		p.CreatedAt, p.UpdatedAt = now, now
		p.Normalize()
		return uc.products.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
