package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/logging"
	"github.com/google/uuid"
)

var ErrDuplicate = errors.New("duplicate idempotency key")

// MaxLineQuantity bounds a single product's quantity in one cart, merged
// lines included, so that line totals stay far from int64 overflow.
const MaxLineQuantity = 10000

type CheckoutState string

const (
	StateValidating        CheckoutState = "Validating"
	StateStockChecked      CheckoutState = "StockChecked"
	StateCustomerResolved  CheckoutState = "CustomerResolved"
	StateCommitted         CheckoutState = "Committed"
	StateInventoryAdjusted CheckoutState = "InventoryAdjusted"
	StateInvoiceRequested  CheckoutState = "InvoiceRequested"
	StateDone              CheckoutState = "Done"
	StateAborted           CheckoutState = "Aborted"
)

// InventoryMode selects where stock is decremented relative to the order
// write.
type InventoryMode string

const (
	// InventoryTransactional decrements stock in the same transaction as the
	// order insert; a shortfall aborts the sale.
	InventoryTransactional InventoryMode = "transactional"
	// InventoryPostCommit commits the order first and decrements afterwards;
	// a shortfall is reported as a PostCommitInventoryError warning.
	InventoryPostCommit InventoryMode = "post_commit"
)

func ParseInventoryMode(s string) (InventoryMode, error) {
	switch InventoryMode(s) {
	case "", InventoryTransactional:
		return InventoryTransactional, nil
	case InventoryPostCommit:
		return InventoryPostCommit, nil
	}
	return "", fmt.Errorf("unknown inventory mode %q", s)
}

type CartLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice int64
}

type CheckoutInput struct {
	CustomerPhone   string
	CustomerName    string
	CustomerAddress string
	Lines           []CartLine
	AmountPaid      int64
	EmployeeID      string
	IdempotencyKey  string
}

type CheckoutOutput struct {
	Order    *domain.Order
	Customer *domain.Customer
	// Warnings carries post-commit problems. The sale stands regardless.
	Warnings []error
	Replayed bool
}

type CheckoutOption func(*Checkout)

func WithInventoryMode(m InventoryMode) CheckoutOption { return func(c *Checkout) { c.mode = m } }
func WithClock(now Clock) CheckoutOption               { return func(c *Checkout) { c.now = now } }
func WithIdempotency(s IdempotencyStore) CheckoutOption {
	return func(c *Checkout) { c.idem = s }
}
func WithInvoiceJobs(j InvoiceJobs) CheckoutOption { return func(c *Checkout) { c.jobs = j } }
func WithMetrics(m Metrics) CheckoutOption         { return func(c *Checkout) { c.metrics = m } }
func WithIDGenerator(f func() string) CheckoutOption {
	return func(c *Checkout) { c.newID = f }
}

// Checkout turns a cart into a committed cash sale.
type Checkout struct {
	store     Store
	customers *CustomerDirectory
	invoices  *Invoices
	jobs      InvoiceJobs
	idem      IdempotencyStore
	metrics   Metrics
	mode      InventoryMode
	now       Clock
	newID     func() string
}

func NewCheckout(store Store, invoices *Invoices, opts ...CheckoutOption) *Checkout {
	c := &Checkout{
		store:     store,
		customers: NewCustomerDirectory(store.Customers()),
		invoices:  invoices,
		metrics:   nopMetrics{},
		mode:      InventoryTransactional,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (uc *Checkout) Execute(ctx context.Context, in CheckoutInput) (CheckoutOutput, error) {
	if uc.idem == nil || in.IdempotencyKey == "" {
		out, err := uc.run(ctx, in)
		uc.record(out, err)
		return out, err
	}

	// Fast path: idempotency recall
	id, ok, err := uc.idem.Recall(ctx, in.EmployeeID, in.IdempotencyKey)
	if err != nil {
		logging.FromCtx(ctx).Warn("idempotency recall failed",
			"component", "checkout", "employee_id", in.EmployeeID, "err", err)
	}
	if ok {
		if out, err := uc.replay(ctx, id); err == nil {
			uc.metrics.CheckoutResult("replayed")
			return out, nil
		}
	}
	ok, err = uc.idem.TryLock(ctx, in.EmployeeID, in.IdempotencyKey)
	if err != nil {
		return CheckoutOutput{}, err
	}
	if !ok {
		return CheckoutOutput{}, ErrDuplicate
	}

	out, err := uc.run(ctx, in)
	uc.record(out, err)
	if out.Order == nil {
		// nothing was recorded; let the client retry with the same key
		_ = uc.idem.Release(context.WithoutCancel(ctx), in.EmployeeID, in.IdempotencyKey)
		return out, err
	}
	_ = uc.idem.Remember(context.WithoutCancel(ctx), in.EmployeeID, in.IdempotencyKey, out.Order.ID)
	return out, err
}

func (uc *Checkout) replay(ctx context.Context, orderID string) (CheckoutOutput, error) {
	o, err := uc.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return CheckoutOutput{}, err
	}
	c, err := uc.store.Customers().FindByID(ctx, o.CustomerID)
	if err != nil {
		return CheckoutOutput{}, err
	}
	return CheckoutOutput{Order: o, Customer: c, Replayed: true}, nil
}

func (uc *Checkout) record(out CheckoutOutput, err error) {
	switch {
	case err != nil:
		uc.metrics.CheckoutResult(resultLabel(err))
	case len(out.Warnings) > 0:
		uc.metrics.CheckoutResult("completed_with_warnings")
	default:
		uc.metrics.CheckoutResult("completed")
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrPriceChanged):
		return "invalid_request"
	}
	return "error"
}

// pending is one merged cart position after the stock check.
type pending struct {
	product  domain.Product
	quantity int
}

func (uc *Checkout) run(ctx context.Context, in CheckoutInput) (CheckoutOutput, error) {
	log := logging.FromCtx(ctx).With("component", "checkout", "employee_id", in.EmployeeID)
	state := StateValidating
	abort := func(err error) (CheckoutOutput, error) {
		log.Info("checkout aborted", "state", state, "err", err)
		return CheckoutOutput{}, err
	}

	if err := validateInput(in); err != nil {
		return abort(err)
	}

	lines, err := uc.checkStock(ctx, in.Lines)
	if err != nil {
		return abort(err)
	}
	state = StateStockChecked
	log.Debug("checkout state", "state", state, "lines", len(lines))

	items := make([]domain.LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.NewLineItem(l.product, l.quantity))
	}
	if total := domain.SumItems(items); in.AmountPaid < total {
		return abort(&domain.InsufficientPaymentError{Total: total, Paid: in.AmountPaid})
	}

	// a new customer is only written inside the commit transaction, so an
	// aborted checkout leaves none behind
	customer, newCustomer, err := uc.customers.Resolve(ctx, in.CustomerPhone, in.CustomerName, in.CustomerAddress)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			err = fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		return abort(err)
	}
	state = StateCustomerResolved
	log.Debug("checkout state", "state", state, "customer_id", customer.ID, "new_customer", newCustomer)

	order, err := domain.NewCompletedOrder(uc.newID(), *customer, in.EmployeeID, items, in.AmountPaid, uc.now())
	if err != nil {
		return abort(err)
	}
	log = log.With("order_id", order.ID)

	var warnings []error
	switch uc.mode {
	case InventoryPostCommit:
		if err := uc.commit(ctx, order, customer, newCustomer, nil); err != nil {
			return abort(err)
		}
		state = StateCommitted
		log.Debug("checkout state", "state", state)
		// the sale is recorded; nothing after this point is cancellable
		ctx = context.WithoutCancel(ctx)
		if err := uc.adjustAfterCommit(ctx, log, order.ID, lines); err != nil {
			warnings = append(warnings, err)
		}
	default:
		if err := uc.commit(ctx, order, customer, newCustomer, lines); err != nil {
			return abort(err)
		}
		state = StateCommitted
		log.Debug("checkout state", "state", state)
		ctx = context.WithoutCancel(ctx)
	}
	state = StateInventoryAdjusted
	log.Debug("checkout state", "state", state)

	state = StateInvoiceRequested
	if err := uc.requestInvoice(ctx, log, order, customer); err != nil {
		warnings = append(warnings, err)
	}

	state = StateDone
	log.Info("checkout completed", "state", state, "total", order.TotalPrice, "warnings", len(warnings))
	return CheckoutOutput{Order: order, Customer: customer, Warnings: warnings}, nil
}

func validateInput(in CheckoutInput) error {
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: cart is empty", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(in.CustomerPhone) == "" {
		return fmt.Errorf("%w: customer phone is required", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(in.EmployeeID) == "" {
		return fmt.Errorf("%w: employee is required", domain.ErrInvalidRequest)
	}
	if in.AmountPaid < 0 {
		return fmt.Errorf("%w: amount paid is negative", domain.ErrInvalidRequest)
	}
	for i, l := range in.Lines {
		if l.ProductID == "" {
			return fmt.Errorf("%w: line %d has no product", domain.ErrInvalidRequest, i+1)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: line %d quantity must be positive", domain.ErrInvalidRequest, i+1)
		}
		if l.Quantity > MaxLineQuantity {
			return fmt.Errorf("%w: line %d quantity exceeds %d", domain.ErrInvalidRequest, i+1, MaxLineQuantity)
		}
	}
	return nil
}

// checkStock verifies the whole cart before any write. Lines for the same
// product are merged so that the check sees the real demand.
func (uc *Checkout) checkStock(ctx context.Context, cart []CartLine) ([]pending, error) {
	index := make(map[string]int, len(cart))
	out := make([]pending, 0, len(cart))

	for _, l := range cart {
		if i, ok := index[l.ProductID]; ok {
			out[i].quantity += l.Quantity
			if out[i].quantity > MaxLineQuantity {
				return nil, fmt.Errorf("%w: %s quantity exceeds %d", domain.ErrInvalidRequest, out[i].product.Name, MaxLineQuantity)
			}
			if l.UnitPrice != 0 && l.UnitPrice != out[i].product.RetailPrice {
				return nil, fmt.Errorf("%w: %s", domain.ErrPriceChanged, out[i].product.Name)
			}
			continue
		}
		p, err := uc.store.Products().FindByID(ctx, l.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, displayName(l))
			}
			return nil, fmt.Errorf("load product %s: %w", l.ProductID, err)
		}
		if l.UnitPrice != 0 && l.UnitPrice != p.RetailPrice {
			return nil, fmt.Errorf("%w: %s", domain.ErrPriceChanged, p.Name)
		}
		index[l.ProductID] = len(out)
		out = append(out, pending{product: *p, quantity: l.Quantity})
	}

	for _, l := range out {
		if l.product.Quantity < l.quantity {
			return nil, &domain.InsufficientStockError{
				ProductID: l.product.ID,
				Name:      l.product.Name,
				Available: l.product.Quantity,
				Requested: l.quantity,
			}
		}
	}
	return out, nil
}

func displayName(l CartLine) string {
	if l.Name != "" {
		return l.Name
	}
	return l.ProductID
}

// commit writes the new customer (if any), the order and its outbox event in
// one transaction. When lines is non-nil the stock decrements join the same
// transaction, in ascending product id order so concurrent checkouts lock
// rows consistently. customer is updated in place when a concurrent checkout
// created the same phone first.
func (uc *Checkout) commit(ctx context.Context, order *domain.Order, customer *domain.Customer, newCustomer bool, lines []pending) error {
	sorted := append([]pending(nil), lines...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].product.ID < sorted[j].product.ID })

	return uc.store.WithinTx(ctx, func(tx Store) error {
		if newCustomer {
			saved, err := saveCustomer(ctx, tx.Customers(), customer)
			if err != nil {
				return fmt.Errorf("create customer: %w", err)
			}
			*customer = *saved
			order.CustomerID, order.CustomerPhone = saved.ID, saved.Phone
		}
		payload, err := json.Marshal(OrderCompletedMsg{
			Type:       "OrderCompletedV1",
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			EmployeeID: order.EmployeeID,
			Total:      order.TotalPrice,
			Units:      order.TotalQuantity(),
			CreatedAt:  order.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("encode order event: %w", err)
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for _, l := range sorted {
			if err := tx.Products().DecrementQuantity(ctx, l.product.ID, l.quantity); err != nil {
				return withProductName(err, l.product)
			}
		}
		return tx.Outbox().Insert(ctx, ChannelOrderCompleted, order.ID, payload)
	})
}

func (uc *Checkout) adjustAfterCommit(ctx context.Context, log *slog.Logger, orderID string, lines []pending) error {
	var failed []error
	for _, l := range lines {
		if err := uc.store.Products().DecrementQuantity(ctx, l.product.ID, l.quantity); err != nil {
			err = withProductName(err, l.product)
			log.Error("post-commit inventory adjustment failed",
				"product_id", l.product.ID, "quantity", l.quantity, "err", err)
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &domain.PostCommitInventoryError{OrderID: orderID, Failed: failed}
}

func withProductName(err error, p domain.Product) error {
	var se *domain.InsufficientStockError
	if errors.As(err, &se) && se.Name == "" {
		se.Name = p.Name
	}
	return err
}

func (uc *Checkout) requestInvoice(ctx context.Context, log *slog.Logger, o *domain.Order, c *domain.Customer) error {
	if uc.invoices == nil {
		return nil
	}
	err := uc.invoices.Publish(ctx, o, c)
	if err == nil {
		return nil
	}
	log.Error("invoice generation failed", "err", err)
	if uc.jobs != nil {
		jerr := uc.jobs.PublishInvoiceRequested(ctx, InvoiceRequestedMsg{
			OrderID:     o.ID,
			RequestedAt: uc.now().UTC(),
			Reason:      err.Error(),
		})
		if jerr != nil {
			log.Warn("invoice retry not queued", "err", jerr)
		}
	}
	return err
}
