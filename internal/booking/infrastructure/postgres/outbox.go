package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Gym-Booking-System/pkg/outbox"
	"github.com/dmehra2102/Gym-Booking-System/pkg/tracing"
)

// maxRetries is how many failed dispatches an event gets before it is parked
// as failed.
const maxRetries = 10

// enqueue writes evt to the outbox inside tx. A relay forwards pending rows
// to the channel and retries until the broker accepts them.
func enqueue(ctx context.Context, tx pgx.Tx, evt domain.BookingCreated) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshal BookingCreated")
	}
	headers := map[string]string{}
	tracing.Inject(ctx, headers)

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, topic, type, payload, headers, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"class", strconv.FormatInt(evt.ClassID, 10), domain.BookingCreatedTopic, domain.BookingCreatedType, payload, headers)
	if err != nil {
		return errors.Wrapf(err, "enqueue BookingCreated for booking %d", evt.BookingID)
	}
	return nil
}

type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, topic, type, payload, headers, retry_count, created_at
		FROM outbox
		WHERE status = 'pending' OR (status = 'in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "select outbox batch")
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Event, error) {
		var e outbox.Event
		err := row.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.Topic, &e.Type, &e.Payload, &e.Headers, &e.RetryCount, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan outbox batch")
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for i := range events {
		events[i].Status = outbox.StatusInProgress
		events[i].RelayID = relayID
		ids = append(ids, events[i].ID)
	}

	_, err = tx.Exec(ctx, `UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + make_interval(secs => $2)
		WHERE id = ANY($3)`, relayID, lease.Seconds(), ids)
	if err != nil {
		return nil, errors.Wrap(err, "lease outbox batch")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent', lease_until=NULL WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox
		SET retry_count = retry_count + 1,
			last_error = $2,
			lease_until = NULL,
			status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END
		WHERE id=$1`, id, errMsg, maxRetries)
	return err
}
