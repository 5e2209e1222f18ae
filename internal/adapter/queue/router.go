package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aq2208/gorder-pos/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

type consumerChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            consumerChannel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	registrations []registration
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

// --- Options ---

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s, requeueOnErr=true.
func NewRouter(ch consumerChannel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Run consumes until ctx is cancelled or every delivery channel closes.
// QoS (prefetch) is set per-channel and applies to all consumers on this channel.
func (r *Router) Run(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(reg registration, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			r.consume(ctx, reg, msgs)
		}(reg, deliveries)
	}

	go func() {
		<-ctx.Done()
		for _, reg := range r.registrations {
			_ = r.ch.Cancel(reg.consumerTag, false)
		}
	}()
	wg.Wait()
	return nil
}

func (r *Router) consume(ctx context.Context, reg registration, msgs <-chan amqp.Delivery) {
	log := logging.FromCtx(ctx).With("queue", reg.queueName, "tag", reg.consumerTag)
	for d := range msgs {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.callTimeout)
		err := reg.handler.Handle(logging.WithCtx(callCtx, log), d)
		cancel()

		switch {
		case err == nil:
			_ = d.Ack(false)
		case errors.Is(err, ErrPoison):
			log.Error("dropping poison message", "rk", d.RoutingKey, "err", err)
			_ = d.Nack(false, false)
		default:
			log.Warn("handler error", "rk", d.RoutingKey, "err", err, "requeue", r.requeueOnErr)
			_ = d.Nack(false, r.requeueOnErr)
		}
	}
	log.Info("consumer stopped")
}
