package usecase

import (
	"context"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
)

type ProductRepo interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	// Search matches an exact barcode first, then a case-insensitive name substring.
	Search(ctx context.Context, query string, limit int) ([]domain.Product, error)
	// MaxBarcodeWithPrefix returns "" when no identifier shares the prefix.
	MaxBarcodeWithPrefix(ctx context.Context, prefix string) (string, error)
	// Create fails with domain.ErrDuplicateBarcode when the barcode is taken.
	Create(ctx context.Context, p *domain.Product) error
	// DecrementQuantity is a conditional update: it either removes amount units
	// and refreshes in_stock, or fails with *domain.InsufficientStockError and
	// changes nothing.
	DecrementQuantity(ctx context.Context, id string, amount int) error
}

type CustomerRepo interface {
	FindByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	FindByID(ctx context.Context, id string) (*domain.Customer, error)
	// Create fails with domain.ErrDuplicateCustomer when the phone is taken.
	Create(ctx context.Context, c *domain.Customer) error
}

// OrderPage is one page of orders, newest first. Total counts every match.
type OrderPage struct {
	Orders []domain.Order
	Total  int
}

type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) (OrderPage, error)
	ListByRange(ctx context.Context, p domain.Period, limit, offset int) (OrderPage, error)
	// SummarizeRange aggregates every order in p, not just one page.
	SummarizeRange(ctx context.Context, p domain.Period) (domain.SalesSummary, error)
}

type OutboxRecord struct {
	ID          string
	Channel     string
	Key         string
	Payload     []byte
	RetryCount  int
	NextAttempt time.Time
}

type OutboxRepo interface {
	Insert(ctx context.Context, channel, key string, payload []byte) error
}

// OutboxQueue is the relay side of the outbox. A claimed record is leased:
// if it is neither marked sent nor failed, it becomes claimable again once
// the lease runs out.
type OutboxQueue interface {
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, retryAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, channel, key string, payload []byte) error
}

// Store groups the repositories that take part in one checkout. WithinTx
// runs fn against a transactional view; fn's error rolls everything back.
type Store interface {
	Products() ProductRepo
	Customers() CustomerRepo
	Orders() OrderRepo
	Outbox() OutboxRepo
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// EmployeeDirectory is owned by the identity service. An unknown employee
// yields an empty name, not an error.
type EmployeeDirectory interface {
	DisplayName(ctx context.Context, employeeID string) (string, error)
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	Release(ctx context.Context, scope, key string) error
}

type OrderCache interface {
	Get(ctx context.Context, orderID string) (*domain.Order, bool, error)
	Set(ctx context.Context, o *domain.Order) error
}

// InvoiceStorage persists one document per order id; Save overwrites.
type InvoiceStorage interface {
	Save(ctx context.Context, orderID string, doc []byte) error
	Load(ctx context.Context, orderID string) ([]byte, error)
}

// InvoiceJobs queues an asynchronous (re)generation of an order's invoice.
type InvoiceJobs interface {
	PublishInvoiceRequested(ctx context.Context, msg InvoiceRequestedMsg) error
}

type Clock func() time.Time

// Metrics is implemented by the observability adapter; a nil Metrics is
// replaced by a no-op.
type Metrics interface {
	CheckoutResult(result string)
	InvoiceRendered(d time.Duration, err error)
	OutboxPublished(channel string, err error)
}

type nopMetrics struct{}

func (nopMetrics) CheckoutResult(string)                {}
func (nopMetrics) InvoiceRendered(time.Duration, error) {}
func (nopMetrics) OutboxPublished(string, error)        {}
