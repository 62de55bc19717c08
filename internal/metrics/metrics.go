package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "storefront-be"

// Recorder holds the storefront's business instruments. The zero value and a
// nil *Recorder drop every measurement.
type Recorder struct {
	ordersPlaced      metric.Int64Counter
	couponRejections  metric.Int64Counter
	webhookDeliveries metric.Int64Counter
	outboxPublished   metric.Int64Counter
	placeDuration     metric.Float64Histogram
}

func New(mp metric.MeterProvider) (*Recorder, error) {
	m := mp.Meter(meterName)

	ordersPlaced, err := m.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders committed by checkout"))
	if err != nil {
		return nil, err
	}
	couponRejections, err := m.Int64Counter("storefront.coupon.rejections",
		metric.WithDescription("Coupon evaluations that failed, by reason"))
	if err != nil {
		return nil, err
	}
	webhookDeliveries, err := m.Int64Counter("storefront.webhook.deliveries",
		metric.WithDescription("Payment webhook deliveries, by result"))
	if err != nil {
		return nil, err
	}
	outboxPublished, err := m.Int64Counter("storefront.outbox.published",
		metric.WithDescription("Outbox events handed to the publisher, by outcome"))
	if err != nil {
		return nil, err
	}
	placeDuration, err := m.Float64Histogram("storefront.orders.place.duration",
		metric.WithDescription("Time spent placing an order"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		ordersPlaced:      ordersPlaced,
		couponRejections:  couponRejections,
		webhookDeliveries: webhookDeliveries,
		outboxPublished:   outboxPublished,
		placeDuration:     placeDuration,
	}, nil
}

var std atomic.Pointer[Recorder]

// Default returns the recorder installed by SetDefault, falling back to one
// built on the global otel MeterProvider.
func Default() *Recorder {
	if r := std.Load(); r != nil {
		return r
	}
	r, err := New(otel.GetMeterProvider())
	if err != nil {
		return nil
	}
	std.CompareAndSwap(nil, r)
	return std.Load()
}

func SetDefault(r *Recorder) {
	std.Store(r)
}

func (r *Recorder) OrderPlaced(ctx context.Context, delivery string, elapsed time.Duration) {
	if r == nil || r.ordersPlaced == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("delivery_method", delivery))
	r.ordersPlaced.Add(ctx, 1, attrs)
	r.placeDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

func (r *Recorder) CouponRejected(ctx context.Context, reason string) {
	if r == nil || r.couponRejections == nil {
		return
	}
	r.couponRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (r *Recorder) WebhookDelivered(ctx context.Context, result string) {
	if r == nil || r.webhookDeliveries == nil {
		return
	}
	r.webhookDeliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (r *Recorder) OutboxPublished(ctx context.Context, eventType, outcome string) {
	if r == nil || r.outboxPublished == nil {
		return
	}
	r.outboxPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	))
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
