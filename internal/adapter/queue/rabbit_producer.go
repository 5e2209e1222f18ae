package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aq2208/gorder-pos/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

// DeclareTopology sets up the exchange, queue, and binding once at startup.
func DeclareTopology(ch *amqp.Channel, t Topology) error {
	// 1. declare exchange (topic type, durable)
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// 2. declare queue
	q, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// 3. bind queue → exchange
	if err := ch.QueueBind(q.Name, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

type publisher interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string,
		mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// RabbitProducer implements usecase.InvoiceJobs.
type RabbitProducer struct {
	ch publisher
	t  Topology
}

// NewRabbitProducer puts ch in confirm mode so each publish waits for the
// broker to take ownership of the message.
func NewRabbitProducer(ch *amqp.Channel, t Topology) (*RabbitProducer, error) {
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}
	return &RabbitProducer{ch: ch, t: t}, nil
}

var errNacked = errors.New("broker nacked publish")

// PublishInvoiceRequested sends an "invoice.requested" job to the exchange.
func (p *RabbitProducer) PublishInvoiceRequested(ctx context.Context, msg usecase.InvoiceRequestedMsg) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		MessageId:    msg.OrderID,
		Timestamp:    msg.RequestedAt,
		Body:         body,
	}

	conf, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.t.Exchange, p.t.RoutingKey, false, false, pub)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if conf == nil {
		return nil
	}
	ok, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !ok {
		return errNacked
	}
	return nil
}

var _ usecase.InvoiceJobs = (*RabbitProducer)(nil)
