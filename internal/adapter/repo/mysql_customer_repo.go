package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/usecase"
)

type MySQLCustomerRepo struct{ q dbtx }

func NewMySQLCustomerRepo(db *sql.DB) *MySQLCustomerRepo { return &MySQLCustomerRepo{q: db} }

func (r *MySQLCustomerRepo) find(ctx context.Context, where string, arg any) (*domain.Customer, error) {
	var c domain.Customer
	err := r.q.QueryRowContext(ctx, `SELECT id,name,phone,address FROM customers WHERE `+where, arg).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MySQLCustomerRepo) FindByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return r.find(ctx, `phone=?`, phone)
}

func (r *MySQLCustomerRepo) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	return r.find(ctx, `id=?`, id)
}

// Create relies on the unique index on phone to resolve concurrent
// registrations of the same number.
func (r *MySQLCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO customers (id,name,phone,address,created_at)
VALUES (?,?,?,?,NOW(3))`, c.ID, c.Name, c.Phone, c.Address)
	if isDuplicate(err) {
		return domain.ErrDuplicateCustomer
	}
	return err
}

var _ usecase.CustomerRepo = (*MySQLCustomerRepo)(nil)
