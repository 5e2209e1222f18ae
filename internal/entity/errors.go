package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidImages       = errors.New("a product needs between 1 and 4 images")
	ErrPriceChanged        = errors.New("unit price does not match catalog")
	ErrValidation          = errors.New("name and address are required for a new customer")
	ErrNotFound            = errors.New("not found")
	ErrProductNotFound     = fmt.Errorf("product %w", ErrNotFound)
	ErrCustomerNotFound    = fmt.Errorf("customer %w", ErrNotFound)
	ErrOrderNotFound       = fmt.Errorf("order %w", ErrNotFound)
	ErrInvoiceNotFound     = fmt.Errorf("invoice %w", ErrNotFound)
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrDuplicateCustomer   = errors.New("duplicate customer")
	ErrDuplicateBarcode    = errors.New("duplicate barcode")
	ErrGenerationFailed    = errors.New("barcode generation failed")
	ErrPostCommitInventory = errors.New("inventory adjustment failed after order commit")
	ErrInvoiceGeneration   = errors.New("invoice generation failed")
	ErrRender              = errors.New("invoice render error")
	ErrStorage             = errors.New("invoice storage error")
)

type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type InsufficientPaymentError struct {
	Total int64
	Paid  int64
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("amount paid %d is below total %d", e.Paid, e.Total)
}

func (e *InsufficientPaymentError) Is(target error) bool { return target == ErrInsufficientPayment }

// PostCommitInventoryError reports decrements that failed after the order
// was already recorded. The sale stands; someone has to reconcile stock.
type PostCommitInventoryError struct {
	OrderID string
	Failed  []error
}

func (e *PostCommitInventoryError) Error() string {
	return fmt.Sprintf("order %s committed but %d inventory adjustment(s) failed: %v",
		e.OrderID, len(e.Failed), errors.Join(e.Failed...))
}

func (e *PostCommitInventoryError) Is(target error) bool { return target == ErrPostCommitInventory }

func (e *PostCommitInventoryError) Unwrap() []error { return e.Failed }

type InvoiceErrorKind string

const (
	InvoiceRender  InvoiceErrorKind = "render"
	InvoiceStorage InvoiceErrorKind = "storage"
)

// InvoiceError wraps a render or storage failure. It matches both its kind
// sentinel and ErrInvoiceGeneration.
type InvoiceError struct {
	OrderID string
	Kind    InvoiceErrorKind
	Err     error
}

func (e *InvoiceError) Error() string {
	return fmt.Sprintf("invoice %s for order %s: %v", e.Kind, e.OrderID, e.Err)
}

func (e *InvoiceError) Unwrap() error { return e.Err }

func (e *InvoiceError) Is(target error) bool {
	switch target {
	case ErrInvoiceGeneration:
		return true
	case ErrRender:
		return e.Kind == InvoiceRender
	case ErrStorage:
		return e.Kind == InvoiceStorage
	}
	return false
}
