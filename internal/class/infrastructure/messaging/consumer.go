package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	bookingdomain "github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Gym-Booking-System/internal/class/application"
	"github.com/dmehra2102/Gym-Booking-System/pkg/channel"
	"github.com/dmehra2102/Gym-Booking-System/pkg/tracing"
)

// Deduplicator filters redeliveries before the store is touched. It is an
// optimisation; the store's own reservation record is what guarantees a
// booking is applied once.
type Deduplicator interface {
	Key(topic string, id int64) string
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Consumer applies BookingCreated events to class capacity.
type Consumer struct {
	log    *slog.Logger
	sub    channel.Subscriber
	group  string
	svc    *application.Service
	idem   Deduplicator
	tracer trace.Tracer
}

// NewConsumer builds a consumer for group. idem may be nil.
func NewConsumer(log *slog.Logger, sub channel.Subscriber, group string, svc *application.Service, idem Deduplicator) *Consumer {
	return &Consumer{
		log:    log,
		sub:    sub,
		group:  group,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("class-consumer"),
	}
}

// Run subscribes workers members of the consumer group and blocks until ctx
// is done or a subscription fails.
func (c *Consumer) Run(ctx context.Context, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	for range max(workers, 1) {
		g.Go(func() error {
			return c.sub.Subscribe(ctx, bookingdomain.BookingCreatedTopic, c.group, c.Handle)
		})
	}
	c.log.Info("booking consumer started", "topic", bookingdomain.BookingCreatedTopic, "group", c.group, "workers", max(workers, 1))
	return g.Wait()
}

// Handle processes one message. A returned error leaves the message to the
// transport's redelivery rules.
func (c *Consumer) Handle(ctx context.Context, msg channel.Message) error {
	ctx = tracing.Extract(ctx, msg.Headers)
	ctx, span := c.tracer.Start(ctx, "ConsumeBookingCreated", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var evt bookingdomain.BookingCreated
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		// A malformed payload never decodes on redelivery either.
		c.log.ErrorContext(ctx, "unmarshal booking event failed, message dropped", "message_id", msg.ID, "err", err)
		span.SetStatus(codes.Error, "malformed payload")
		return nil
	}
	span.SetAttributes(
		attribute.Int64("booking.id", evt.BookingID),
		attribute.Int64("class.id", evt.ClassID),
	)

	var key string
	if c.idem != nil {
		key = c.idem.Key(bookingdomain.BookingCreatedTopic, evt.BookingID)
		claimed, err := c.idem.Claim(ctx, key)
		switch {
		case err != nil:
			c.log.WarnContext(ctx, "idempotency claim failed, relying on store", "key", key, "err", err)
			key = ""
		case !claimed:
			c.log.InfoContext(ctx, "duplicate message skipped", "key", key, "message_id", msg.ID)
			return nil
		}
	}

	if err := c.svc.ApplyBookingCreated(ctx, evt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if key != "" {
			if rErr := c.idem.Release(ctx, key); rErr != nil {
				c.log.WarnContext(ctx, "idempotency release failed", "key", key, "err", rErr)
			}
		}
		return err
	}
	return nil
}
