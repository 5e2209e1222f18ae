package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/logging"
)

type InvoiceRenderer interface {
	Render(data domain.InvoiceData) ([]byte, error)
}

// Invoices renders, stores and serves invoice documents keyed by order id.
// Generation only reads committed data, so it can run on any worker.
type Invoices struct {
	orders    OrderRepo
	customers CustomerRepo
	employees EmployeeDirectory
	renderer  InvoiceRenderer
	storage   InvoiceStorage
	metrics   Metrics
}

func NewInvoices(orders OrderRepo, customers CustomerRepo, employees EmployeeDirectory,
	renderer InvoiceRenderer, storage InvoiceStorage, metrics Metrics) *Invoices {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Invoices{
		orders:    orders,
		customers: customers,
		employees: employees,
		renderer:  renderer,
		storage:   storage,
		metrics:   metrics,
	}
}

// Publish renders the invoice for a committed order and overwrites any
// previous document for the same id. Failures come back as *domain.InvoiceError.
func (s *Invoices) Publish(ctx context.Context, o *domain.Order, c *domain.Customer) error {
	start := time.Now()
	err := s.publish(ctx, o, c)
	s.metrics.InvoiceRendered(time.Since(start), err)
	return err
}

func (s *Invoices) publish(ctx context.Context, o *domain.Order, c *domain.Customer) error {
	if o == nil {
		return &domain.InvoiceError{Kind: domain.InvoiceRender, Err: domain.ErrOrderNotFound}
	}
	if c == nil {
		return &domain.InvoiceError{OrderID: o.ID, Kind: domain.InvoiceRender, Err: domain.ErrCustomerNotFound}
	}

	data := domain.InvoiceData{Order: *o, Customer: *c, EmployeeID: o.EmployeeID}
	if s.employees != nil && o.EmployeeID != "" {
		name, err := s.employees.DisplayName(ctx, o.EmployeeID)
		if err != nil {
			logging.FromCtx(ctx).Warn("invoice: employee lookup failed, leaving blank",
				"order_id", o.ID, "employee_id", o.EmployeeID, "err", err)
		}
		data.EmployeeName = name
	}

	doc, err := s.renderer.Render(data)
	if err != nil {
		return &domain.InvoiceError{OrderID: o.ID, Kind: domain.InvoiceRender, Err: err}
	}
	if err := s.storage.Save(ctx, o.ID, doc); err != nil {
		return &domain.InvoiceError{OrderID: o.ID, Kind: domain.InvoiceStorage, Err: err}
	}
	return nil
}

// Generate rebuilds the invoice from the persisted order.
func (s *Invoices) Generate(ctx context.Context, orderID string) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	c, err := s.customers.FindByID(ctx, o.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return &domain.InvoiceError{OrderID: o.ID, Kind: domain.InvoiceRender, Err: err}
		}
		return fmt.Errorf("load customer: %w", err)
	}
	return s.Publish(ctx, o, c)
}

// Get returns the stored document or domain.ErrInvoiceNotFound. It never
// regenerates.
func (s *Invoices) Get(ctx context.Context, orderID string) ([]byte, error) {
	return s.storage.Load(ctx, orderID)
}

// HandleRequested is the queue entry point for out-of-band regeneration.
// An order that does not exist is dropped rather than retried.
func (s *Invoices) HandleRequested(ctx context.Context, msg InvoiceRequestedMsg) error {
	err := s.Generate(ctx, msg.OrderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		logging.FromCtx(ctx).Warn("invoice job for unknown order dropped", "order_id", msg.OrderID)
		return nil
	}
	return err
}

// EnsureGenerated renders the invoice only when none is stored yet. Orders
// that cannot be rendered are logged and skipped so a stream consumer does
// not stall on them.
func (s *Invoices) EnsureGenerated(ctx context.Context, orderID string) error {
	_, err := s.storage.Load(ctx, orderID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrInvoiceNotFound) {
		return err
	}

	log := logging.FromCtx(ctx)
	err = s.Generate(ctx, orderID)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		log.Warn("invoice backfill for unknown order skipped", "order_id", orderID)
		return nil
	case errors.Is(err, domain.ErrRender):
		log.Error("invoice backfill cannot render order", "order_id", orderID, "err", err)
		return nil
	}
	return err
}
