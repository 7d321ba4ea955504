package application

import (
	"context"

	"github.com/dmehra2102/Gym-Booking-System/internal/class/domain"
)

// ClassRepository stores GymClass aggregates. Mutations go through Update or
// ApplyReservation, which serialize per class so concurrent changes to one
// class never interleave.
type ClassRepository interface {
	Create(ctx context.Context, class *domain.GymClass) (*domain.GymClass, error)
	// Get returns domain.ErrClassNotFound when id is unknown.
	Get(ctx context.Context, id int64) (*domain.GymClass, error)
	List(ctx context.Context) ([]*domain.GymClass, error)
	// Update loads class id under its lock, applies fn and persists the result
	// when fn succeeds. Nothing is written when fn fails.
	Update(ctx context.Context, id int64, fn func(*domain.GymClass) error) (*domain.GymClass, error)
	// ApplyReservation behaves like Update and records bookingID in the same
	// unit of work. It returns domain.ErrReservationApplied, without calling fn,
	// when bookingID was recorded before.
	ApplyReservation(ctx context.Context, classID, bookingID int64, fn func(*domain.GymClass) error) (*domain.GymClass, error)
}
