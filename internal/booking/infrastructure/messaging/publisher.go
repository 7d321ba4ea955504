package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Gym-Booking-System/pkg/channel"
	"github.com/dmehra2102/Gym-Booking-System/pkg/outbox"
	"github.com/dmehra2102/Gym-Booking-System/pkg/tracing"
)

// Publisher sends BookingCreated straight to the channel. Messages are keyed
// by class so partitioned transports keep one class's events together.
type Publisher struct {
	log *slog.Logger
	pub channel.Publisher
}

func NewPublisher(log *slog.Logger, pub channel.Publisher) *Publisher {
	return &Publisher{log: log, pub: pub}
}

func (p *Publisher) PublishBookingCreated(ctx context.Context, evt domain.BookingCreated) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshal BookingCreated")
	}
	headers := map[string]string{outbox.EventTypeHeader: domain.BookingCreatedType}
	tracing.Inject(ctx, headers)

	msg := channel.Message{
		ID:      "booking-" + strconv.FormatInt(evt.BookingID, 10),
		Key:     strconv.FormatInt(evt.ClassID, 10),
		Value:   payload,
		Headers: headers,
	}
	if err := p.pub.Publish(ctx, domain.BookingCreatedTopic, msg); err != nil {
		return errors.Wrapf(err, "publish BookingCreated for booking %d", evt.BookingID)
	}
	p.log.DebugContext(ctx, "BookingCreated published", "booking_id", evt.BookingID, "class_id", evt.ClassID)
	return nil
}
