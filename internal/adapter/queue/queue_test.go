package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackResult struct {
	acked   bool
	requeue bool
}

type fakeAck struct {
	mu      sync.Mutex
	results map[uint64]ackResult
}

func (a *fakeAck) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[tag] = ackResult{acked: true}
	return nil
}

func (a *fakeAck) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[tag] = ackResult{requeue: requeue}
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

type fakeChannel struct {
	msgs chan amqp.Delivery
}

func (c *fakeChannel) Qos(int, int, bool) error { return nil }
func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.msgs, nil
}
func (c *fakeChannel) Cancel(string, bool) error { return nil }

type fakeGenerator struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (g *fakeGenerator) HandleRequested(_ context.Context, msg usecase.InvoiceRequestedMsg) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = append(g.seen, msg.OrderID)
	return g.err
}

func TestJSONHandler_BadBodyIsPoison(t *testing.T) {
	h := JSONHandler[usecase.InvoiceRequestedMsg]{
		HandleFunc: func(context.Context, usecase.InvoiceRequestedMsg) error { return nil },
	}
	err := h.Handle(context.Background(), amqp.Delivery{Body: []byte("{not json")})
	assert.ErrorIs(t, err, ErrPoison)

	err = h.Handle(context.Background(), amqp.Delivery{ContentType: "text/plain", Body: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrPoison)
}

func TestRouter_AckNackAndDrop(t *testing.T) {
	ack := &fakeAck{results: map[uint64]ackResult{}}
	ch := &fakeChannel{msgs: make(chan amqp.Delivery, 4)}
	gen := &fakeGenerator{}
	id := uuid.NewString()

	r := NewRouter(ch, WithTimeout(time.Second))
	r.Register("invoice.requested.q", NewInvoiceRequestedHandler(gen))

	ch.msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, ContentType: "application/json", Body: []byte(`{"orderId":"` + id + `"}`)}
	ch.msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`garbage`)}
	ch.msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte(`{"reason":"x"}`)}
	ch.msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 4, Body: []byte(`{"orderId":"../etc/passwd"}`)}
	close(ch.msgs)

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{id}, gen.seen)
	assert.Equal(t, ackResult{acked: true}, ack.results[1])
	assert.Equal(t, ackResult{}, ack.results[2], "undecodable body is dropped")
	assert.Equal(t, ackResult{}, ack.results[3], "missing order id is dropped")
	assert.Equal(t, ackResult{}, ack.results[4], "malformed order id is dropped")
}

func TestRouter_RequeuesTransientFailure(t *testing.T) {
	ack := &fakeAck{results: map[uint64]ackResult{}}
	ch := &fakeChannel{msgs: make(chan amqp.Delivery, 1)}
	gen := &fakeGenerator{err: errors.New("disk full")}

	r := NewRouter(ch)
	r.Register("invoice.requested.q", NewInvoiceRequestedHandler(gen))
	ch.msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 9, Body: []byte(`{"orderId":"` + uuid.NewString() + `"}`)}
	close(ch.msgs)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, ackResult{requeue: true}, ack.results[9])
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (p *fakePublisher) PublishWithDeferredConfirmWithContext(_ context.Context, exchange, key string,
	_, _ bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	p.exchange, p.key, p.msg = exchange, key, msg
	return nil, p.err
}

func TestRabbitProducer_PublishInvoiceRequested(t *testing.T) {
	fp := &fakePublisher{}
	p := &RabbitProducer{ch: fp, t: Topology{Exchange: "pos.invoices", RoutingKey: "invoice.requested"}}

	err := p.PublishInvoiceRequested(context.Background(), usecase.InvoiceRequestedMsg{OrderID: "o1", Reason: "render"})
	require.NoError(t, err)
	assert.Equal(t, "pos.invoices", fp.exchange)
	assert.Equal(t, "invoice.requested", fp.key)
	assert.Equal(t, amqp.Persistent, fp.msg.DeliveryMode)
	assert.JSONEq(t, `{"orderId":"o1","requestedAt":"0001-01-01T00:00:00Z","reason":"render"}`, string(fp.msg.Body))

	fp.err = errors.New("channel closed")
	assert.Error(t, p.PublishInvoiceRequested(context.Background(), usecase.InvoiceRequestedMsg{OrderID: "o2"}))
}
