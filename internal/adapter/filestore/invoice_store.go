// Package filestore keeps invoice documents on the local filesystem as
// <dir>/<orderId>.pdf.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/google/uuid"
)

type InvoiceStore struct {
	dir string
}

func NewInvoiceStore(dir string) (*InvoiceStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create invoice dir: %w", err)
	}
	return &InvoiceStore{dir: dir}, nil
}

// path rejects anything that is not a UUID so an order id can never
// escape the invoice directory.
func (s *InvoiceStore) path(orderID string) (string, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return "", fmt.Errorf("%w: invalid order id %q", domain.ErrInvalidRequest, orderID)
	}
	return filepath.Join(s.dir, id.String()+".pdf"), nil
}

// Save writes through a temp file and renames it into place, so a reader
// never sees a partial document.
func (s *InvoiceStore) Save(ctx context.Context, orderID string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.path(orderID)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".invoice-*")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return nil
}

func (s *InvoiceStore) Load(ctx context.Context, orderID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(orderID)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return b, nil
}
