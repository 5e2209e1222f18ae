package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/usecase"
)

type MySQLProductRepo struct{ q dbtx }

func NewMySQLProductRepo(db *sql.DB) *MySQLProductRepo { return &MySQLProductRepo{q: db} }

const productColumns = `id,barcode,name,import_price,retail_price,category_id,quantity,description,images_json,in_stock,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p      domain.Product
		images []byte
	)
	if err := row.Scan(&p.ID, &p.Barcode, &p.Name, &p.ImportPrice, &p.RetailPrice, &p.CategoryID,
		&p.Quantity, &p.Description, &images, &p.InStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decode images of %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func (r *MySQLProductRepo) findOne(ctx context.Context, where string, arg any) (*domain.Product, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE `+where, arg)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	return p, err
}

func (r *MySQLProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.findOne(ctx, `id=?`, id)
}

func (r *MySQLProductRepo) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return r.findOne(ctx, `barcode=?`, barcode)
}

func (r *MySQLProductRepo) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	p, err := r.FindByBarcode(ctx, query)
	if err == nil {
		return []domain.Product{*p}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.q.QueryContext(ctx, `
SELECT `+productColumns+`
FROM products WHERE LOWER(name) LIKE ? ORDER BY name LIMIT ?`,
		"%"+escapeLike(strings.ToLower(query))+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *MySQLProductRepo) MaxBarcodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var code string
	err := r.q.QueryRowContext(ctx, `
SELECT barcode FROM products WHERE barcode LIKE ? ORDER BY barcode DESC LIMIT 1`,
		escapeLike(prefix)+"%").Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return code, err
}

func (r *MySQLProductRepo) Create(ctx context.Context, p *domain.Product) error {
	p.Normalize()
	images, err := json.Marshal(p.Images)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
INSERT INTO products (`+productColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Barcode, p.Name, p.ImportPrice, p.RetailPrice, p.CategoryID, p.Quantity,
		p.Description, images, p.InStock, p.CreatedAt, p.UpdatedAt)
	if isDuplicate(err) {
		return domain.ErrDuplicateBarcode
	}
	return err
}

// DecrementQuantity is a single conditional UPDATE, so two sales can never
// both take the last unit. When nothing matched, a follow-up read tells a
// missing product from a shortfall.
func (r *MySQLProductRepo) DecrementQuantity(ctx context.Context, id string, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.q.ExecContext(ctx, `
UPDATE products
SET quantity = quantity - ?, in_stock = (quantity > 0), updated_at = NOW(3)
WHERE id = ? AND quantity >= ?`,
		amount, id, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var (
		name      string
		available int
	)
	err = r.q.QueryRowContext(ctx, `SELECT name, quantity FROM products WHERE id=?`, id).Scan(&name, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return err
	}
	return &domain.InsufficientStockError{ProductID: id, Name: name, Available: available, Requested: amount}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ usecase.ProductRepo = (*MySQLProductRepo)(nil)
