package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPoison marks a delivery that can never succeed. The router drops it
// instead of requeueing.
var ErrPoison = errors.New("poison message")

// Handler processes a single delivery. It should be idempotent.
// Return nil => ACK; return error => NACK (requeue behavior controlled by Router).
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}

// JSONHandler decodes d.Body into T and calls HandleFunc. Deliveries with a
// non-JSON content type, an undecodable body or a payload rejected by
// Validate are poison.
type JSONHandler[T any] struct {
	Validate   func(msg T) error
	HandleFunc func(ctx context.Context, msg T) error
}

func (h JSONHandler[T]) Handle(ctx context.Context, d amqp.Delivery) error {
	if d.ContentType != "" && !strings.HasPrefix(d.ContentType, "application/json") {
		return fmt.Errorf("%w: content type %q", ErrPoison, d.ContentType)
	}
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrPoison, err)
	}
	if h.Validate != nil {
		if err := h.Validate(v); err != nil {
			return fmt.Errorf("%w: %w", ErrPoison, err)
		}
	}
	return h.HandleFunc(ctx, v)
}
