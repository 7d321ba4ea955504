package channel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQP routes every topic through one durable topic exchange. Each group owns
// a durable queue "<group>.<topic>"; failed deliveries are nacked with requeue.
type AMQP struct {
	log      *slog.Logger
	conn     *amqp.Connection
	exchange string
	prefetch int

	mu  sync.Mutex
	pub *amqp.Channel
}

func DialAMQP(log *slog.Logger, url, exchange string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}
	return &AMQP{log: log, conn: conn, exchange: exchange, prefetch: 16, pub: ch}, nil
}

func (a *AMQP) Publish(ctx context.Context, topic string, msg Message) error {
	msg = withID(msg)
	headers := amqp.Table{"key": msg.Key}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.pub.PublishWithContext(ctx, a.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Headers:      headers,
		Body:         msg.Value,
	})
	return errors.Wrapf(err, "publish %s", topic)
}

func (a *AMQP) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	ch, err := a.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(group+"."+topic, true, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "declare queue")
	}
	if err := ch.QueueBind(q.Name, topic, a.exchange, false, nil); err != nil {
		return errors.Wrapf(err, "bind %s", topic)
	}
	if err := ch.Qos(a.prefetch, 0, false); err != nil {
		return errors.Wrap(err, "set qos")
	}
	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consume")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("amqp deliveries closed")
			}
			msg := fromDelivery(d)
			if err := h(ctx, msg); err != nil {
				a.log.Error("handler failed, requeueing", "topic", topic, "message_id", msg.ID, "redelivered", d.Redelivered, "err", err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (a *AMQP) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.pub.Close()
	return a.conn.Close()
}

func fromDelivery(d amqp.Delivery) Message {
	msg := Message{
		ID:      d.MessageId,
		Value:   d.Body,
		Headers: make(map[string]string, len(d.Headers)),
	}
	for k, v := range d.Headers {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if k == "key" {
			msg.Key = s
			continue
		}
		msg.Headers[k] = s
	}
	return msg
}
