package application

import (
	"context"

	"github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Gym-Booking-System/pkg/apperr"
)

var (
	ErrClassNotFound           = apperr.New(apperr.NotFound, "class does not exist")
	ErrClassFull               = apperr.New(apperr.CapacityExhausted, "class has no available spots")
	ErrClassServiceUnavailable = apperr.New(apperr.Communication, "class service unavailable")
)

type BookingRepository interface {
	// Save stores b and returns it with its assigned ID.
	Save(ctx context.Context, b domain.Booking) (domain.Booking, error)
	// Get returns domain.ErrBookingNotFound when id is unknown.
	Get(ctx context.Context, id int64) (domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
}

// Availability is the class service's answer at the time of the call. It may
// be stale by the time the booking is stored.
type Availability struct {
	ClassID   int64
	Name      string
	Total     int
	Available int
}

// ClassAvailabilityClient asks the class service whether a class can take a
// booking. It fails with ErrClassNotFound, ErrClassFull or
// ErrClassServiceUnavailable.
type ClassAvailabilityClient interface {
	CheckAvailability(ctx context.Context, classID int64) (Availability, error)
}

// OutboxRepository stores a booking and the event announcing it in one
// transaction. build is called with the booking after its ID is assigned; if
// either insert fails neither row is kept.
type OutboxRepository interface {
	SaveWithOutbox(ctx context.Context, b domain.Booking, build func(domain.Booking) domain.BookingCreated) (domain.Booking, error)
}

type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, evt domain.BookingCreated) error
}
