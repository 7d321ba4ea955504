//go:build integration

package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingdomain "github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
	bookingpg "github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/postgres"
	classapp "github.com/dmehra2102/Gym-Booking-System/internal/class/application"
	"github.com/dmehra2102/Gym-Booking-System/internal/class/domain"
	classpg "github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/postgres"
	"github.com/dmehra2102/Gym-Booking-System/pkg/channel"
	"github.com/dmehra2102/Gym-Booking-System/pkg/outbox"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func classService(t *testing.T) (*classapp.Service, *classpg.Repository) {
	t.Helper()
	pool := freshPool(t)
	require.NoError(t, classpg.Migrate(context.Background(), pool))
	repo := classpg.NewRepository(discard(), pool)
	return classapp.NewService(discard(), repo), repo
}

func TestPostgresClassRepository(t *testing.T) {
	ctx := context.Background()
	svc, _ := classService(t)

	yoga, err := svc.CreateClass(ctx, "Yoga", 20)
	require.NoError(t, err)
	_, err = svc.CreateClass(ctx, "Spin", 8)
	require.NoError(t, err)

	got, err := svc.GetClass(ctx, yoga.ID())
	require.NoError(t, err)
	assert.Equal(t, "Yoga", got.Name())
	assert.Equal(t, "20/20", got.Capacity().String())

	list, err := svc.ListClasses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, yoga.ID(), list[0].ID())

	_, err = svc.GetClass(ctx, 12345)
	require.ErrorIs(t, err, domain.ErrClassNotFound)
}

func TestPostgresConcurrentReservationsNeverOverbook(t *testing.T) {
	const (
		spots   = 5
		workers = 40
	)
	ctx := context.Background()
	svc, _ := classService(t)
	class, err := svc.CreateClass(ctx, "Spin", spots)
	require.NoError(t, err)

	var ok, exhausted atomic.Int32
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(bookingID int64) {
			defer wg.Done()
			err := svc.ApplyBookingCreated(ctx, bookingdomain.BookingCreated{ClassID: class.ID(), BookingID: bookingID})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrCapacityExhausted):
				exhausted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.EqualValues(t, spots, ok.Load())
	assert.EqualValues(t, workers-spots, exhausted.Load())

	got, err := svc.GetClass(ctx, class.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Capacity().Available())
}

func TestPostgresDuplicateReservationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := classService(t)
	class, err := svc.CreateClass(ctx, "Yoga", 3)
	require.NoError(t, err)

	evt := bookingdomain.BookingCreated{ClassID: class.ID(), BookingID: 99}
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.ApplyBookingCreated(ctx, evt))
		}()
	}
	wg.Wait()

	got, err := svc.GetClass(ctx, class.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Capacity().Available())
}

func TestPostgresCapacityCheckConstraint(t *testing.T) {
	ctx := context.Background()
	pool := freshPool(t)
	require.NoError(t, classpg.Migrate(ctx, pool))

	var id int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO classes (name, total_capacity, available_capacity) VALUES ('Yoga', 2, 2) RETURNING id`).Scan(&id))

	for _, available := range []int{-1, 3} {
		_, err := pool.Exec(ctx, `UPDATE classes SET available_capacity=$2 WHERE id=$1`, id, available)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "23514", pgErr.Code)
	}
}

func TestPostgresBookingRepository(t *testing.T) {
	ctx := context.Background()
	pool := freshPool(t)
	require.NoError(t, bookingpg.Migrate(ctx, pool))
	repo := bookingpg.NewRepository(discard(), pool)

	created := time.Date(2026, 4, 1, 10, 0, 0, 123456789, time.UTC)
	saved, err := repo.Save(ctx, bookingdomain.Booking{ClassID: 3, UserName: "alice", CreatedAt: created})
	require.NoError(t, err)
	require.Positive(t, saved.ID)
	assert.Equal(t, 123456000, saved.CreatedAt.Nanosecond(), "created_at comes back as stored")

	got, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	_, err = repo.Save(ctx, bookingdomain.Booking{ClassID: 3, UserName: "bob", CreatedAt: created})
	require.NoError(t, err)
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = repo.Get(ctx, 404)
	require.ErrorIs(t, err, bookingdomain.ErrBookingNotFound)
}

func publishedNow(b bookingdomain.Booking) bookingdomain.BookingCreated {
	return bookingdomain.NewBookingCreated(b, time.Now())
}

func TestPostgresSaveWithOutboxStoresBothRows(t *testing.T) {
	ctx := context.Background()
	pool := freshPool(t)
	require.NoError(t, bookingpg.Migrate(ctx, pool))
	repo := bookingpg.NewRepository(discard(), pool)

	var built bookingdomain.Booking
	saved, err := repo.SaveWithOutbox(ctx, bookingdomain.Booking{ClassID: 4, UserName: "dana", CreatedAt: time.Now().UTC()},
		func(b bookingdomain.Booking) bookingdomain.BookingCreated {
			built = b
			return publishedNow(b)
		})
	require.NoError(t, err)
	assert.Equal(t, saved, built, "the event is built from the stored booking")

	var bookingID int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT (payload->>'bookingId')::bigint FROM outbox WHERE aggregate_id='4'`).Scan(&bookingID))
	assert.Equal(t, saved.ID, bookingID)
}

func TestPostgresSaveWithOutboxRollsBackBookingOnOutboxFailure(t *testing.T) {
	ctx := context.Background()
	pool := freshPool(t)
	require.NoError(t, bookingpg.Migrate(ctx, pool))
	_, err := pool.Exec(ctx, `DROP TABLE outbox`)
	require.NoError(t, err)
	repo := bookingpg.NewRepository(discard(), pool)

	_, err = repo.SaveWithOutbox(ctx, bookingdomain.Booking{ClassID: 4, UserName: "erin", CreatedAt: time.Now().UTC()}, publishedNow)
	require.Error(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "no booking is kept without its event")
}

func TestPostgresOutboxRelay(t *testing.T) {
	ctx := context.Background()
	pool := freshPool(t)
	require.NoError(t, bookingpg.Migrate(ctx, pool))

	repo := bookingpg.NewRepository(discard(), pool)
	saved, err := repo.SaveWithOutbox(ctx, bookingdomain.Booking{ClassID: 2, UserName: "alice", CreatedAt: time.Now().UTC()}, publishedNow)
	require.NoError(t, err)
	require.Positive(t, saved.ID)

	bus := channel.NewMemory(discard())
	store := bookingpg.NewOutboxStore(discard(), pool)
	relay := outbox.NewRelay(discard(), store, outbox.NewDispatcher(discard(), bus), "relay-test")

	sent, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, bus.Len(bookingdomain.BookingCreatedTopic))

	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM outbox WHERE aggregate_id='2'`).Scan(&status))
	assert.Equal(t, "sent", status)

	sent, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "sent rows are not relayed again")
}

func TestPostgresOutboxMarkFailedReturnsToPending(t *testing.T) {
	ctx := context.Background()
	pool := freshPool(t)
	require.NoError(t, bookingpg.Migrate(ctx, pool))
	_, err := bookingpg.NewRepository(discard(), pool).
		SaveWithOutbox(ctx, bookingdomain.Booking{ClassID: 1, UserName: "alice", CreatedAt: time.Now().UTC()}, publishedNow)
	require.NoError(t, err)

	store := bookingpg.NewOutboxStore(discard(), pool)
	events, err := store.LockBatch(ctx, "relay-a", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, events, 1)

	again, err := store.LockBatch(ctx, "relay-b", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again, "a leased row is invisible to other relays")

	require.NoError(t, store.MarkFailed(ctx, events[0].ID, "broker down"))

	var (
		status  string
		retries int
	)
	require.NoError(t, pool.QueryRow(ctx, `SELECT status, retry_count FROM outbox WHERE id=$1`, events[0].ID).Scan(&status, &retries))
	assert.Equal(t, "pending", status)
	assert.Equal(t, 1, retries)
}
