package usecase

import (
	"context"
	"errors"
	"strings"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/google/uuid"
)

// CustomerDirectory resolves a phone number to a customer, creating the
// record on first sight.
type CustomerDirectory struct {
	repo CustomerRepo
}

func NewCustomerDirectory(repo CustomerRepo) *CustomerDirectory {
	return &CustomerDirectory{repo: repo}
}

func (d *CustomerDirectory) FindByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, domain.ErrInvalidRequest
	}
	return d.repo.FindByPhone(ctx, phone)
}

// Resolve returns the existing customer for phone, or a validated but
// unsaved customer and isNew=true. It performs no writes.
func (d *CustomerDirectory) Resolve(ctx context.Context, phone, name, address string) (c *domain.Customer, isNew bool, err error) {
	existing, err := d.FindByPhone(ctx, phone)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		return nil, false, err
	}
	c, err = domain.NewCustomer(uuid.NewString(), phone, name, address)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// CreateIfAbsent returns the existing customer for phone, or creates one.
func (d *CustomerDirectory) CreateIfAbsent(ctx context.Context, phone, name, address string) (*domain.Customer, error) {
	c, isNew, err := d.Resolve(ctx, phone, name, address)
	if err != nil || !isNew {
		return c, err
	}
	return saveCustomer(ctx, d.repo, c)
}

// saveCustomer inserts c. Losing a concurrent create surfaces as
// ErrDuplicateCustomer from the repo; that is resolved by reading the
// winner's record through the same repo.
func saveCustomer(ctx context.Context, repo CustomerRepo, c *domain.Customer) (*domain.Customer, error) {
	err := repo.Create(ctx, c)
	if errors.Is(err, domain.ErrDuplicateCustomer) {
		return repo.FindByPhone(ctx, c.Phone)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
