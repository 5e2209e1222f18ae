package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NormalizeDSN pins every session to UTC: DATETIME values are scanned as
// time.Time in UTC and NOW() on the server agrees with Go's time.Now().UTC().
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["time_zone"] = "'+00:00'"
	return cfg.FormatDSN(), nil
}

// OpenMySQL opens the pool and pings it.
func OpenMySQL(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	dsn, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// MySQLStore implements usecase.Store. Repositories obtained inside
// WithinTx share the transaction.
type MySQLStore struct {
	db *sql.DB
	q  dbtx
}

func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db, q: db} }

func (s *MySQLStore) Products() usecase.ProductRepo   { return &MySQLProductRepo{q: s.q} }
func (s *MySQLStore) Customers() usecase.CustomerRepo { return &MySQLCustomerRepo{q: s.q} }
func (s *MySQLStore) Orders() usecase.OrderRepo       { return &MySQLOrderRepo{q: s.q} }
func (s *MySQLStore) Outbox() usecase.OutboxRepo {
	return &MySQLOutboxRepo{db: s.db, q: s.q, now: time.Now}
}

func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx usecase.Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&MySQLStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

var _ usecase.Store = (*MySQLStore)(nil)
