package postgres

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/Gym-Booking-System/internal/class/domain"
)

const checkViolation = "23514"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, class *domain.GymClass) (*domain.GymClass, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO classes (name, total_capacity, available_capacity)
		VALUES ($1,$2,$3) RETURNING id`,
		class.Name(), class.Capacity().Total(), class.Capacity().Available()).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "insert class")
	}
	return domain.RestoreGymClass(id, class.Name(), class.Capacity()), nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.GymClass, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, total_capacity, available_capacity FROM classes WHERE id=$1`, id)
	return scanClass(row)
}

func (r *Repository) List(ctx context.Context) ([]*domain.GymClass, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, total_capacity, available_capacity FROM classes ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list classes")
	}
	defer rows.Close()

	var classes []*domain.GymClass
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}

func (r *Repository) Update(ctx context.Context, id int64, fn func(*domain.GymClass) error) (*domain.GymClass, error) {
	var out *domain.GymClass
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		class, err := lockClass(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(class); err != nil {
			return err
		}
		out = class
		return saveCapacity(ctx, tx, class)
	})
	return out, err
}

// ApplyReservation locks the class row, records bookingID and writes the new
// capacity in one transaction. The row lock orders concurrent reservations of
// one class; the primary key on booking_id rejects a second application.
func (r *Repository) ApplyReservation(ctx context.Context, classID, bookingID int64, fn func(*domain.GymClass) error) (*domain.GymClass, error) {
	var out *domain.GymClass
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		class, err := lockClass(ctx, tx, classID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `INSERT INTO class_reservations (booking_id, class_id) VALUES ($1,$2)
			ON CONFLICT (booking_id) DO NOTHING`, bookingID, classID)
		if err != nil {
			return errors.Wrap(err, "record reservation")
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrReservationApplied
		}

		if err := fn(class); err != nil {
			return err
		}
		out = class
		return saveCapacity(ctx, tx, class)
	})
	return out, err
}

func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

func lockClass(ctx context.Context, tx pgx.Tx, id int64) (*domain.GymClass, error) {
	row := tx.QueryRow(ctx, `SELECT id, name, total_capacity, available_capacity FROM classes WHERE id=$1 FOR UPDATE`, id)
	return scanClass(row)
}

func saveCapacity(ctx context.Context, tx pgx.Tx, class *domain.GymClass) error {
	_, err := tx.Exec(ctx, `UPDATE classes SET available_capacity=$2, updated_at=now() WHERE id=$1`,
		class.ID(), class.Capacity().Available())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
		return domain.ErrCapacityExhausted
	}
	return errors.Wrap(err, "update class capacity")
}

func scanClass(row pgx.Row) (*domain.GymClass, error) {
	var (
		id               int64
		name             string
		total, available int
	)
	if err := row.Scan(&id, &name, &total, &available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClassNotFound
		}
		return nil, errors.Wrap(err, "scan class")
	}
	capacity, err := domain.RestoreCapacity(total, available)
	if err != nil {
		return nil, err
	}
	return domain.RestoreGymClass(id, name, capacity), nil
}
