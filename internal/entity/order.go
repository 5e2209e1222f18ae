package domain

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// LineItem is a value snapshot of a product at purchase time. It never
// follows later catalog edits.
type LineItem struct {
	ProductID string `json:"product_id"`
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"price"`
	Total     int64  `json:"total"`
}

func NewLineItem(p Product, quantity int) LineItem {
	return LineItem{
		ProductID: p.ID,
		Barcode:   p.Barcode,
		Name:      p.Name,
		Quantity:  quantity,
		UnitPrice: p.RetailPrice,
		Total:     p.RetailPrice * int64(quantity),
	}
}

type PaymentInfo struct {
	AmountPaid int64 `json:"amount_paid"`
	Change     int64 `json:"change"`
}

type Order struct {
	ID            string      `json:"_id"`
	CustomerID    string      `json:"customer_id"`
	CustomerPhone string      `json:"customer_phone"`
	EmployeeID    string      `json:"employee_id"`
	Items         []LineItem  `json:"products"`
	TotalPrice    int64       `json:"total_price"`
	Payment       PaymentInfo `json:"payment_info"`
	Status        Status      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

// SumItems returns the grand total of the given line items.
func SumItems(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Total
	}
	return total
}

// NewCompletedOrder builds a cash sale. amountPaid must cover the total.
func NewCompletedOrder(id string, customer Customer, employeeID string, items []LineItem, amountPaid int64, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrInvalidRequest
	}
	total := SumItems(items)
	if amountPaid < total {
		return nil, &InsufficientPaymentError{Total: total, Paid: amountPaid}
	}
	return &Order{
		ID:            id,
		CustomerID:    customer.ID,
		CustomerPhone: customer.Phone,
		EmployeeID:    employeeID,
		Items:         items,
		TotalPrice:    total,
		Payment: PaymentInfo{
			AmountPaid: amountPaid,
			Change:     amountPaid - total,
		},
		Status:    StatusCompleted,
		CreatedAt: now.UTC(),
	}, nil
}

// Validate checks the conservation rules of a persisted order.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrInvalidRequest
	}
	for _, it := range o.Items {
		if it.Quantity <= 0 || it.Total != it.UnitPrice*int64(it.Quantity) {
			return ErrInvalidAmount
		}
	}
	if o.TotalPrice != SumItems(o.Items) {
		return ErrInvalidAmount
	}
	if o.Payment.AmountPaid < o.TotalPrice || o.Payment.Change != o.Payment.AmountPaid-o.TotalPrice {
		return ErrInvalidAmount
	}
	return nil
}

// TotalQuantity is the number of units sold in the order.
func (o *Order) TotalQuantity() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
