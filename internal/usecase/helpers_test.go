package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aq2208/gorder-pos/internal/adapter/memstore"
	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/google/uuid"
)

var fixedNow = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type memInvoices struct {
	mu      sync.Mutex
	docs    map[string][]byte
	failing error
}

func newMemInvoices() *memInvoices { return &memInvoices{docs: map[string][]byte{}} }

func (m *memInvoices) Save(_ context.Context, id string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	m.docs[id] = doc
	return nil
}

func (m *memInvoices) Load(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return d, nil
}

func (m *memInvoices) setFailing(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = err
}

type countingRenderer struct {
	mu    sync.Mutex
	calls int
	last  domain.InvoiceData
}

func (r *countingRenderer) Render(d domain.InvoiceData) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = d
	return []byte("doc:" + d.Order.ID), nil
}

type recordingJobs struct {
	mu   sync.Mutex
	msgs []usecase.InvoiceRequestedMsg
}

func (j *recordingJobs) PublishInvoiceRequested(_ context.Context, msg usecase.InvoiceRequestedMsg) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.msgs = append(j.msgs, msg)
	return nil
}

// failingDecrements wraps a store so that stock decrements for one product
// always fail, inside and outside transactions.
type failingDecrements struct {
	usecase.Store
	productID string
}

func (s failingDecrements) Products() usecase.ProductRepo {
	return failingProducts{ProductRepo: s.Store.Products(), productID: s.productID}
}

func (s failingDecrements) WithinTx(ctx context.Context, fn func(tx usecase.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx usecase.Store) error {
		return fn(failingDecrements{Store: tx, productID: s.productID})
	})
}

type failingProducts struct {
	usecase.ProductRepo
	productID string
}

var errDiskGone = errors.New("row vanished")

func (p failingProducts) DecrementQuantity(ctx context.Context, id string, amount int) error {
	if id == p.productID {
		return errDiskGone
	}
	return p.ProductRepo.DecrementQuantity(ctx, id, amount)
}

// staleStock reports inflated quantities outside transactions, as a read
// that raced with another checkout would.
type staleStock struct {
	usecase.Store
}

func (s staleStock) Products() usecase.ProductRepo {
	return staleProducts{s.Store.Products()}
}

type staleProducts struct {
	usecase.ProductRepo
}

func (p staleProducts) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	got, err := p.ProductRepo.FindByID(ctx, id)
	if err == nil {
		got.Quantity += 100
	}
	return got, err
}

type brokenRecall struct {
	usecase.IdempotencyStore
}

func (brokenRecall) Recall(context.Context, string, string) (string, bool, error) {
	return "", false, errors.New("redis down")
}

type env struct {
	store    *memstore.Store
	docs     *memInvoices
	renderer *countingRenderer
	jobs     *recordingJobs
	invoices *usecase.Invoices
	seq      int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	st.SeedEmployee("emp-1", "Minh")
	docs := newMemInvoices()
	r := &countingRenderer{}
	return &env{
		store:    st,
		docs:     docs,
		renderer: r,
		jobs:     &recordingJobs{},
		invoices: usecase.NewInvoices(st.Orders(), st.Customers(), st, r, docs, nil),
	}
}

func (e *env) checkout(opts ...usecase.CheckoutOption) *usecase.Checkout {
	opts = append([]usecase.CheckoutOption{usecase.WithClock(fixedClock), usecase.WithInvoiceJobs(e.jobs)}, opts...)
	return usecase.NewCheckout(e.store, e.invoices, opts...)
}

func (e *env) product(name string, price int64, qty int) *domain.Product {
	e.seq++
	return e.store.SeedProduct(domain.Product{
		ID:          uuid.NewString(),
		Barcode:     fmt.Sprintf("311223%05d", e.seq),
		Name:        name,
		ImportPrice: price / 2,
		RetailPrice: price,
		CategoryID:  "general",
		Quantity:    qty,
		Description: name,
		Images:      []domain.Image{{Data: "x", ContentType: "image/png"}},
	})
}

func input(lines ...usecase.CartLine) usecase.CheckoutInput {
	return usecase.CheckoutInput{
		CustomerPhone:   "0900000001",
		CustomerName:    "Lan",
		CustomerAddress: "1 Le Loi",
		Lines:           lines,
		EmployeeID:      "emp-1",
	}
}

func line(p *domain.Product, qty int) usecase.CartLine {
	return usecase.CartLine{ProductID: p.ID, Name: p.Name, Quantity: qty}
}
