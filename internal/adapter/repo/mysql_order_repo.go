package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/usecase"
)

const orderColumns = `id,customer_id,customer_phone,employee_id,status,total_price,amount_paid,change_amount,items_json,created_at`

type MySQLOrderRepo struct{ q dbtx }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{q: db} }

// Line items are stored as a JSON snapshot next to the order; they are
// never joined back to the catalog. units caches the item quantity sum for
// reports.
func (r *MySQLOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
INSERT INTO orders (id,customer_id,customer_phone,employee_id,status,total_price,units,amount_paid,change_amount,items_json,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
`, o.ID, o.CustomerID, o.CustomerPhone, o.EmployeeID, o.Status, o.TotalPrice, o.TotalQuantity(),
		o.Payment.AmountPaid, o.Payment.Change, items, o.CreatedAt.UTC())
	return err
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *MySQLOrderRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) (usecase.OrderPage, error) {
	var page usecase.OrderPage
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE customer_id=?`, customerID).
		Scan(&page.Total); err != nil {
		return page, err
	}
	if page.Total == 0 {
		return page, nil
	}
	rows, err := r.q.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders
WHERE customer_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`, customerID, limit, offset)
	if err != nil {
		return page, err
	}
	page.Orders, err = scanOrders(rows)
	return page, err
}

func (r *MySQLOrderRepo) ListByRange(ctx context.Context, p domain.Period, limit, offset int) (usecase.OrderPage, error) {
	var page usecase.OrderPage
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE created_at >= ? AND created_at < ?`,
		p.From.UTC(), p.To.UTC()).Scan(&page.Total); err != nil {
		return page, err
	}
	if page.Total == 0 {
		return page, nil
	}
	rows, err := r.q.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders
WHERE created_at >= ? AND created_at < ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`, p.From.UTC(), p.To.UTC(), limit, offset)
	if err != nil {
		return page, err
	}
	page.Orders, err = scanOrders(rows)
	return page, err
}

func (r *MySQLOrderRepo) SummarizeRange(ctx context.Context, p domain.Period) (domain.SalesSummary, error) {
	var s domain.SalesSummary
	err := r.q.QueryRowContext(ctx, `
SELECT COALESCE(SUM(total_price),0), COUNT(*), COALESCE(SUM(units),0)
FROM orders WHERE created_at >= ? AND created_at < ?`, p.From.UTC(), p.To.UTC()).
		Scan(&s.Revenue, &s.Orders, &s.Units)
	return s, err
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o     domain.Order
		items []byte
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerPhone, &o.EmployeeID, &o.Status, &o.TotalPrice,
		&o.Payment.AmountPaid, &o.Payment.Change, &items, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	return &o, nil
}

func scanOrders(rows *sql.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
