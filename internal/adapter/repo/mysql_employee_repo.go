package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aq2208/gorder-pos/internal/usecase"
)

// MySQLEmployeeDirectory reads the employees table maintained by the
// account service.
type MySQLEmployeeDirectory struct{ db *sql.DB }

func NewMySQLEmployeeDirectory(db *sql.DB) *MySQLEmployeeDirectory {
	return &MySQLEmployeeDirectory{db: db}
}

func (d *MySQLEmployeeDirectory) DisplayName(ctx context.Context, employeeID string) (string, error) {
	var name string
	err := d.db.QueryRowContext(ctx, `SELECT fullname FROM employees WHERE id=?`, employeeID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

var _ usecase.EmployeeDirectory = (*MySQLEmployeeDirectory)(nil)
