package postgres

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const insertBooking = `INSERT INTO bookings (class_id, user_name, created_at) VALUES ($1,$2,$3) RETURNING id, created_at`

// Save returns b as stored, with its ID and the created_at postgres kept.
func (r *Repository) Save(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	err := r.pool.QueryRow(ctx, insertBooking, b.ClassID, b.UserName, b.CreatedAt).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return domain.Booking{}, errors.Wrap(err, "insert booking")
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}

// SaveWithOutbox inserts the booking and its BookingCreated outbox row in one
// transaction. build sees the booking with its assigned ID.
func (r *Repository) SaveWithOutbox(ctx context.Context, b domain.Booking, build func(domain.Booking) domain.BookingCreated) (domain.Booking, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Booking{}, errors.Wrap(err, "begin tx")
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := tx.QueryRow(ctx, insertBooking, b.ClassID, b.UserName, b.CreatedAt).Scan(&b.ID, &b.CreatedAt); err != nil {
		return domain.Booking{}, errors.Wrap(err, "insert booking")
	}
	b.CreatedAt = b.CreatedAt.UTC()

	evt := build(b)
	if err := enqueue(ctx, tx, evt); err != nil {
		return domain.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Booking{}, errors.Wrap(err, "commit booking")
	}
	r.log.DebugContext(ctx, "BookingCreated queued", "booking_id", b.ID)
	return b, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Booking, error) {
	var b domain.Booking
	err := r.pool.QueryRow(ctx, `SELECT id, class_id, user_name, created_at FROM bookings WHERE id=$1`, id).
		Scan(&b.ID, &b.ClassID, &b.UserName, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	if err != nil {
		return domain.Booking{}, errors.Wrap(err, "get booking")
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, class_id, user_name, created_at FROM bookings ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	bookings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Booking, error) {
		var b domain.Booking
		err := row.Scan(&b.ID, &b.ClassID, &b.UserName, &b.CreatedAt)
		b.CreatedAt = b.CreatedAt.UTC()
		return b, err
	})
	return bookings, errors.Wrap(err, "scan bookings")
}
