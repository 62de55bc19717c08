package outbox

import (
	"context"
	"errors"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const batchSize = 100

// Dispatcher drains pending outbox events on a ticker. Wake lets a request
// nudge it right after a commit instead of waiting for the next tick.
type Dispatcher struct {
	repo     Repository
	pub      Publisher
	interval time.Duration
	wake     chan struct{}
}

func NewDispatcher(repo Repository, pub Publisher, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Dispatcher{
		repo:     repo,
		pub:      pub,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Wake never blocks; a pending nudge absorbs further ones.
func (d *Dispatcher) Wake() {
	if d == nil {
		return
	}
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log := logger.L().With(zap.String("component", "outbox-dispatcher"))
	log.Info("outbox dispatcher started", zap.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchPending(ctx)
		case <-d.wake:
			d.DispatchPending(ctx)
		}
	}
}

// DispatchPending publishes one batch and returns how many events were
// marked processed. An open breaker ends the batch without spending attempts.
func (d *Dispatcher) DispatchPending(ctx context.Context) int {
	log := logger.FromCtx(ctx).With(zap.String("component", "outbox-dispatcher"))

	events, err := d.repo.FetchPending(ctx, batchSize)
	if err != nil {
		log.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	rec := metrics.Default()
	published := 0
	for _, e := range events {
		if err := d.pub.Publish(ctx, e); err != nil {
			if breakerRejected(err) {
				log.Warn("publisher unavailable, deferring outbox batch",
					zap.Uint("event_id", e.ID),
					zap.Error(err),
				)
				break
			}
			log.Warn("failed to publish outbox event",
				zap.Uint("event_id", e.ID),
				zap.String("event_type", string(e.EventType)),
				zap.Int("attempts", e.Attempts+1),
				zap.Error(err),
			)
			rec.OutboxPublished(ctx, string(e.EventType), "failed")
			if markErr := d.repo.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
				log.Error("failed to record outbox failure", zap.Uint("event_id", e.ID), zap.Error(markErr))
			}
			continue
		}

		rec.OutboxPublished(ctx, string(e.EventType), "published")
		if err := d.repo.MarkProcessed(ctx, e.ID); err != nil {
			log.Error("failed to mark outbox event processed", zap.Uint("event_id", e.ID), zap.Error(err))
			continue
		}
		published++
	}

	return published
}

func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
