package channel

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"
)

const messageIDHeader = "message_id"

// Kafka publishes with a hash balancer, so messages sharing a key land on the
// same partition. Offsets are committed after the handler returns whatever its
// outcome: a failing message is logged and not redelivered.
type Kafka struct {
	log     *slog.Logger
	brokers []string
	writer  *kafka.Writer
}

func NewKafka(log *slog.Logger, brokers []string) *Kafka {
	return &Kafka{
		log:     log,
		brokers: brokers,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, topic string, msg Message) error {
	msg = withID(msg)
	headers := make([]kafka.Header, 0, len(msg.Headers)+1)
	for key, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}
	headers = append(headers, kafka.Header{Key: messageIDHeader, Value: []byte(msg.ID)})

	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Headers: headers,
	})
	return errors.Wrapf(err, "kafka write to %s", topic)
}

func (k *Kafka) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       topic,
		GroupID:     group,
		StartOffset: kafka.FirstOffset,
	})
	defer r.Close()

	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrapf(err, "kafka fetch from %s", topic)
		}

		msg := fromKafka(km)
		if err := h(ctx, msg); err != nil {
			k.log.Error("handler failed, offset committed anyway",
				"topic", topic, "partition", km.Partition, "offset", km.Offset, "message_id", msg.ID, "err", err)
		}
		if err := r.CommitMessages(ctx, km); err != nil && ctx.Err() == nil {
			k.log.Error("kafka commit failed", "topic", topic, "offset", km.Offset, "err", err)
		}
	}
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

func fromKafka(km kafka.Message) Message {
	msg := Message{
		Key:     string(km.Key),
		Value:   km.Value,
		Headers: make(map[string]string, len(km.Headers)),
	}
	for _, h := range km.Headers {
		if h.Key == messageIDHeader {
			msg.ID = string(h.Value)
			continue
		}
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}
