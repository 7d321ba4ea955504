package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis uses one stream per topic and one consumer group per group. Entries
// are acknowledged only after the handler succeeds; anything left pending
// longer than claimIdle is claimed again, so a message that keeps failing is
// retried indefinitely.
type Redis struct {
	log       *slog.Logger
	rdb       redis.UniversalClient
	maxLen    int64
	batch     int64
	block     time.Duration
	claimIdle time.Duration
}

func NewRedis(log *slog.Logger, rdb redis.UniversalClient) *Redis {
	return &Redis{
		log:       log,
		rdb:       rdb,
		maxLen:    100_000,
		batch:     16,
		block:     2 * time.Second,
		claimIdle: 30 * time.Second,
	}
}

func (r *Redis) Publish(ctx context.Context, topic string, msg Message) error {
	msg = withID(msg)
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return errors.Wrap(err, "encode headers")
	}
	err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":      msg.ID,
			"key":     msg.Key,
			"value":   msg.Value,
			"headers": headers,
		},
	}).Err()
	return errors.Wrapf(err, "xadd %s", topic)
}

func (r *Redis) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	if err := r.rdb.XGroupCreateMkStream(ctx, topic, group, "0").Err(); err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.Wrapf(err, "create group %s on %s", group, topic)
	}
	consumer := group + "-" + uuid.NewString()

	for ctx.Err() == nil {
		claimed, _, err := r.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   topic,
			Group:    group,
			Consumer: consumer,
			MinIdle:  r.claimIdle,
			Start:    "0-0",
			Count:    r.batch,
		}).Result()
		if err != nil && ctx.Err() == nil {
			r.log.Warn("xautoclaim failed", "topic", topic, "err", err)
		}
		r.handle(ctx, topic, group, claimed, h)

		streams, err := r.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{topic, ">"},
			Count:    r.batch,
			Block:    r.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrapf(err, "xreadgroup %s", topic)
		}
		for _, s := range streams {
			r.handle(ctx, topic, group, s.Messages, h)
		}
	}
	return nil
}

func (r *Redis) handle(ctx context.Context, topic, group string, entries []redis.XMessage, h Handler) {
	for _, xm := range entries {
		msg, err := fromStream(xm)
		if err != nil {
			r.log.Error("undecodable stream entry dropped", "topic", topic, "entry", xm.ID, "err", err)
			_ = r.rdb.XAck(ctx, topic, group, xm.ID).Err()
			continue
		}
		if err := h(ctx, msg); err != nil {
			r.log.Error("handler failed, entry left pending", "topic", topic, "entry", xm.ID, "message_id", msg.ID, "err", err)
			continue
		}
		if err := r.rdb.XAck(ctx, topic, group, xm.ID).Err(); err != nil {
			r.log.Error("xack failed", "topic", topic, "entry", xm.ID, "err", err)
		}
	}
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func fromStream(xm redis.XMessage) (Message, error) {
	field := func(name string) string {
		s, _ := xm.Values[name].(string)
		return s
	}
	msg := Message{
		ID:    field("id"),
		Key:   field("key"),
		Value: []byte(field("value")),
	}
	if raw := field("headers"); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &msg.Headers); err != nil {
			return Message{}, errors.Wrap(err, "decode headers")
		}
	}
	return msg, nil
}
