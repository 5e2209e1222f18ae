package usecase

import (
	"context"
	"time"

	"github.com/aq2208/gorder-pos/internal/logging"
)

const maxRelayBackoff = 5 * time.Minute

type RelayConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Lease        time.Duration
}

// OutboxRelay drains committed outbox rows to the event bus. Delivery is at
// least once: a crash between publish and MarkSent republishes after the
// lease expires.
type OutboxRelay struct {
	queue   OutboxQueue
	pub     EventPublisher
	cfg     RelayConfig
	now     Clock
	metrics Metrics
}

func NewOutboxRelay(queue OutboxQueue, pub EventPublisher, cfg RelayConfig, metrics Metrics) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 30 * time.Second
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &OutboxRelay{queue: queue, pub: pub, cfg: cfg, now: time.Now, metrics: metrics}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	log := logging.FromCtx(ctx).With("worker", "outbox-relay")
	t := time.NewTicker(r.cfg.PollInterval)
	defer t.Stop()
	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error("outbox relay pass failed", "err", err)
		}
		// a full batch means there is likely more waiting
		if n == r.cfg.BatchSize && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// RunOnce relays a single batch and returns how many records were claimed.
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	recs, err := r.queue.ClaimPending(ctx, r.cfg.BatchSize, r.cfg.Lease)
	if err != nil {
		return 0, err
	}
	log := logging.FromCtx(ctx)
	for _, rec := range recs {
		perr := r.pub.Publish(ctx, rec.Channel, rec.Key, rec.Payload)
		r.metrics.OutboxPublished(rec.Channel, perr)
		if perr != nil {
			retryAt := r.now().Add(backoff(rec.RetryCount))
			log.Warn("outbox publish failed", "outbox_id", rec.ID, "channel", rec.Channel,
				"retry", rec.RetryCount+1, "retry_at", retryAt, "err", perr)
			if err := r.queue.MarkFailed(ctx, rec.ID, retryAt); err != nil {
				return len(recs), err
			}
			continue
		}
		if err := r.queue.MarkSent(ctx, rec.ID); err != nil {
			return len(recs), err
		}
	}
	return len(recs), nil
}

func backoff(retry int) time.Duration {
	if retry > 16 {
		return maxRelayBackoff
	}
	d := time.Second << retry
	if d > maxRelayBackoff {
		return maxRelayBackoff
	}
	return d
}
