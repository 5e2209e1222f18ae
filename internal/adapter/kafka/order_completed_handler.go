package kafka

import (
	"context"

	"github.com/aq2208/gorder-pos/internal/usecase"
)

type InvoiceEnsurer interface {
	EnsureGenerated(ctx context.Context, orderID string) error
}

// OrderCompletedHandler backfills invoices for completed orders whose
// document never reached storage, e.g. after a crash between commit and
// render.
type OrderCompletedHandler struct {
	Invoices InvoiceEnsurer
}

func NewOrderCompletedHandler(inv InvoiceEnsurer) *OrderCompletedHandler {
	return &OrderCompletedHandler{Invoices: inv}
}

func (h *OrderCompletedHandler) Handle(ctx context.Context, ev usecase.OrderCompletedMsg) error {
	if ev.OrderID == "" {
		return nil
	}
	return h.Invoices.EnsureGenerated(ctx, ev.OrderID)
}
