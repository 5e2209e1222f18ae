package queue

import (
	"context"
	"errors"

	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/google/uuid"
)

type InvoiceGenerator interface {
	HandleRequested(ctx context.Context, msg usecase.InvoiceRequestedMsg) error
}

// NewInvoiceRequestedHandler regenerates the invoice named by each
// invoice.requested message.
func NewInvoiceRequestedHandler(gen InvoiceGenerator) Handler {
	return JSONHandler[usecase.InvoiceRequestedMsg]{
		Validate: func(msg usecase.InvoiceRequestedMsg) error {
			if msg.OrderID == "" {
				return errors.New("missing orderId")
			}
			if _, err := uuid.Parse(msg.OrderID); err != nil {
				return err
			}
			return nil
		},
		HandleFunc: gen.HandleRequested,
	}
}
