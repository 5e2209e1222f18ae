// Package observ exports use-case metrics to Prometheus.
package observ

import (
	"strconv"
	"time"

	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	checkouts *prometheus.CounterVec
	renders   *prometheus.HistogramVec
	published *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route template and status",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .2, .4, .8, 1.6, 5},
		}, []string{"method", "route"}),
		checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_total",
			Help: "Checkout attempts by result",
		}, []string{"result"}),
		renders: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoice_render_seconds",
			Help:    "Time to render and store an invoice",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"outcome"}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Outbox records relayed to the event bus",
		}, []string{"channel", "outcome"}),
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) CheckoutResult(result string) {
	m.checkouts.WithLabelValues(result).Inc()
}

func (m *Metrics) InvoiceRendered(d time.Duration, err error) {
	m.renders.WithLabelValues(outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) OutboxPublished(channel string, err error) {
	m.published.WithLabelValues(channel, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ usecase.Metrics = (*Metrics)(nil)
