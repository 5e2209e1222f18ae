// Package memstore is an in-process implementation of the usecase
// repositories. It backs the "memory" storage driver and the use-case tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/google/uuid"
)

type state struct {
	mu        sync.Mutex
	products  map[string]*domain.Product
	barcodes  map[string]string
	customers map[string]*domain.Customer
	phones    map[string]string
	orders    map[string]*domain.Order
	outbox    []usecase.OutboxRecord
	sent      map[string]bool
	leased    map[string]time.Time
	employees map[string]string
}

// Store is safe for concurrent use. Transactions are serialised; writes
// inside a transaction record an undo step so a rollback never clobbers
// changes made concurrently outside it.
type Store struct {
	st   *state
	txMu *sync.Mutex
	undo *[]func()
}

func New() *Store {
	return &Store{
		st: &state{
			products:  map[string]*domain.Product{},
			barcodes:  map[string]string{},
			customers: map[string]*domain.Customer{},
			phones:    map[string]string{},
			orders:    map[string]*domain.Order{},
			sent:      map[string]bool{},
			leased:    map[string]time.Time{},
			employees: map[string]string{},
		},
		txMu: &sync.Mutex{},
	}
}

func (s *Store) Products() usecase.ProductRepo   { return productRepo{s} }
func (s *Store) Customers() usecase.CustomerRepo { return customerRepo{s} }
func (s *Store) Orders() usecase.OrderRepo       { return orderRepo{s} }
func (s *Store) Outbox() usecase.OutboxRepo      { return outboxRepo{s} }

func (s *Store) WithinTx(_ context.Context, fn func(tx usecase.Store) error) error {
	if s.undo != nil {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	var undo []func()
	tx := &Store{st: s.st, txMu: s.txMu, undo: &undo}
	if err := fn(tx); err != nil {
		s.st.mu.Lock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		s.st.mu.Unlock()
		return err
	}
	return nil
}

// onRollback must be called with st.mu held.
func (s *Store) onRollback(f func()) {
	if s.undo != nil {
		*s.undo = append(*s.undo, f)
	}
}

// SeedProduct inserts p as-is (after recomputing InStock).
func (s *Store) SeedProduct(p domain.Product) *domain.Product {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Normalize()
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	cp := p
	s.st.products[p.ID] = &cp
	if p.Barcode != "" {
		s.st.barcodes[p.Barcode] = p.ID
	}
	out := cp
	return &out
}

func (s *Store) SeedEmployee(id, name string) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.employees[id] = name
}

// OutboxRecords returns a copy of everything written to the outbox.
func (s *Store) OutboxRecords() []usecase.OutboxRecord {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return append([]usecase.OutboxRecord(nil), s.st.outbox...)
}

func (s *Store) CountOrders() int {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) CountCustomers() int {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return len(s.st.customers)
}

func (s *Store) DisplayName(_ context.Context, employeeID string) (string, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.employees[employeeID], nil
}

type productRepo struct{ s *Store }

func (r productRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r productRepo) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	r.s.st.mu.Lock()
	id, ok := r.s.st.barcodes[barcode]
	r.s.st.mu.Unlock()
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return r.FindByID(ctx, id)
}

func (r productRepo) Search(_ context.Context, query string, limit int) ([]domain.Product, error) {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	if id, ok := r.s.st.barcodes[query]; ok {
		return []domain.Product{*r.s.st.products[id]}, nil
	}
	q := strings.ToLower(query)
	var out []domain.Product
	for _, p := range r.s.st.products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r productRepo) MaxBarcodeWithPrefix(_ context.Context, prefix string) (string, error) {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	max := ""
	for code := range r.s.st.barcodes {
		if strings.HasPrefix(code, prefix) && code > max {
			max = code
		}
	}
	return max, nil
}

func (r productRepo) Create(_ context.Context, p *domain.Product) error {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	if _, taken := r.s.st.barcodes[p.Barcode]; taken {
		return domain.ErrDuplicateBarcode
	}
	cp := *p
	cp.Normalize()
	p.InStock = cp.InStock
	r.s.st.products[cp.ID] = &cp
	r.s.st.barcodes[cp.Barcode] = cp.ID
	r.s.onRollback(func() {
		delete(r.s.st.products, cp.ID)
		delete(r.s.st.barcodes, cp.Barcode)
	})
	return nil
}

func (r productRepo) DecrementQuantity(_ context.Context, id string, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Quantity < amount {
		return &domain.InsufficientStockError{ProductID: id, Name: p.Name, Available: p.Quantity, Requested: amount}
	}
	p.Quantity -= amount
	p.UpdatedAt = time.Now().UTC()
	p.Normalize()
	r.s.onRollback(func() {
		if p, ok := r.s.st.products[id]; ok {
			p.Quantity += amount
			p.Normalize()
		}
	})
	return nil
}

type customerRepo struct{ s *Store }

func (r customerRepo) FindByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	id, ok := r.s.st.phones[phone]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	cp := *r.s.st.customers[id]
	return &cp, nil
}

func (r customerRepo) FindByID(_ context.Context, id string) (*domain.Customer, error) {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	c, ok := r.s.st.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (r customerRepo) Create(_ context.Context, c *domain.Customer) error {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	if _, taken := r.s.st.phones[c.Phone]; taken {
		return domain.ErrDuplicateCustomer
	}
	cp := *c
	r.s.st.customers[cp.ID] = &cp
	r.s.st.phones[cp.Phone] = cp.ID
	r.s.onRollback(func() {
		delete(r.s.st.customers, cp.ID)
		delete(r.s.st.phones, cp.Phone)
	})
	return nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(_ context.Context, o *domain.Order) error {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	r.s.st.orders[cp.ID] = &cp
	r.s.onRollback(func() { delete(r.s.st.orders, cp.ID) })
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	o, ok := r.s.st.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	return &cp, nil
}

func (r orderRepo) ListByCustomer(_ context.Context, customerID string, limit, offset int) (usecase.OrderPage, error) {
	return r.page(func(o *domain.Order) bool { return o.CustomerID == customerID }, limit, offset), nil
}

func (r orderRepo) ListByRange(_ context.Context, p domain.Period, limit, offset int) (usecase.OrderPage, error) {
	return r.page(func(o *domain.Order) bool { return p.Contains(o.CreatedAt) }, limit, offset), nil
}

func (r orderRepo) SummarizeRange(_ context.Context, p domain.Period) (domain.SalesSummary, error) {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	var sum domain.SalesSummary
	for _, o := range r.s.st.orders {
		if p.Contains(o.CreatedAt) {
			sum.Add(o)
		}
	}
	return sum, nil
}

// page sorts matches newest first, ties broken by id, like the SQL queries.
func (r orderRepo) page(match func(*domain.Order) bool, limit, offset int) usecase.OrderPage {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	var hits []*domain.Order
	for _, o := range r.s.st.orders {
		if match(o) {
			hits = append(hits, o)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID > hits[j].ID
	})

	out := usecase.OrderPage{Total: len(hits)}
	offset = max(offset, 0)
	if offset >= len(hits) {
		return out
	}
	hits = hits[offset:]
	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	for _, o := range hits {
		cp := *o
		cp.Items = append([]domain.LineItem(nil), o.Items...)
		out.Orders = append(out.Orders, cp)
	}
	return out
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Insert(_ context.Context, channel, key string, payload []byte) error {
	r.s.st.mu.Lock()
	defer r.s.st.mu.Unlock()
	id := uuid.NewString()
	r.s.st.outbox = append(r.s.st.outbox, usecase.OutboxRecord{
		ID:          id,
		Channel:     channel,
		Key:         key,
		Payload:     append([]byte(nil), payload...),
		NextAttempt: time.Now().UTC(),
	})
	r.s.onRollback(func() {
		for i := range r.s.st.outbox {
			if r.s.st.outbox[i].ID == id {
				r.s.st.outbox = append(r.s.st.outbox[:i], r.s.st.outbox[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *Store) ClaimPending(_ context.Context, limit int, lease time.Duration) ([]usecase.OutboxRecord, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	now := time.Now()
	var out []usecase.OutboxRecord
	for _, rec := range s.st.outbox {
		if len(out) == limit {
			break
		}
		if s.st.sent[rec.ID] || rec.NextAttempt.After(now) || s.st.leased[rec.ID].After(now) {
			continue
		}
		s.st.leased[rec.ID] = now.Add(lease)
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) MarkSent(_ context.Context, id string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.sent[id] = true
	delete(s.st.leased, id)
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id string, retryAt time.Time) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for i := range s.st.outbox {
		if s.st.outbox[i].ID == id {
			s.st.outbox[i].RetryCount++
			s.st.outbox[i].NextAttempt = retryAt
		}
	}
	delete(s.st.leased, id)
	return nil
}

var (
	_ usecase.OutboxQueue       = (*Store)(nil)
	_ usecase.Store             = (*Store)(nil)
	_ usecase.EmployeeDirectory = (*Store)(nil)
)
