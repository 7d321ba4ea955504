package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS classes (
	id                 BIGSERIAL PRIMARY KEY,
	name               VARCHAR(100) NOT NULL,
	total_capacity     INTEGER NOT NULL CHECK (total_capacity > 0),
	available_capacity INTEGER NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT classes_capacity_bounds CHECK (available_capacity >= 0 AND available_capacity <= total_capacity)
);

CREATE TABLE IF NOT EXISTS class_reservations (
	booking_id  BIGINT PRIMARY KEY,
	class_id    BIGINT NOT NULL REFERENCES classes (id),
	reserved_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS class_reservations_class_id_idx ON class_reservations (class_id);
`

// Migrate creates the class-service tables when they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return errors.Wrap(err, "migrate class schema")
}
