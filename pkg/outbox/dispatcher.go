package outbox

import (
	"context"
	"log/slog"
	"maps"
	"strconv"

	"github.com/dmehra2102/Gym-Booking-System/pkg/channel"
)

const EventTypeHeader = "event_type"

type Dispatcher struct {
	log       *slog.Logger
	publisher channel.Publisher
}

func NewDispatcher(log *slog.Logger, publisher channel.Publisher) *Dispatcher {
	return &Dispatcher{log: log, publisher: publisher}
}

// Dispatch publishes event keyed by its aggregate. The outbox row id is the
// message id, so every retry of one row is recognisable as the same message.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	headers := maps.Clone(event.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	headers[EventTypeHeader] = event.Type

	msg := channel.Message{
		ID:      "outbox-" + strconv.FormatInt(event.ID, 10),
		Key:     event.AggregateID,
		Value:   event.Payload,
		Headers: headers,
	}
	if err := d.publisher.Publish(ctx, event.Topic, msg); err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "err", err)
		return err
	}
	d.log.Info("outbox dispatched", "event_id", event.ID, "type", event.Type)
	return nil
}
