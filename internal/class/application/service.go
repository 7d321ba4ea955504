package application

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	bookingdomain "github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Gym-Booking-System/internal/class/domain"
)

// Availability is the advisory capacity snapshot served to other services.
type Availability struct {
	ClassID   int64
	Name      string
	Exists    bool
	Total     int
	Available int
}

type Service struct {
	log  *slog.Logger
	repo ClassRepository
}

func NewService(log *slog.Logger, repo ClassRepository) *Service {
	return &Service{log: log, repo: repo}
}

func (s *Service) CreateClass(ctx context.Context, name string, capacity int) (*domain.GymClass, error) {
	c, err := domain.NewCapacity(capacity)
	if err != nil {
		return nil, err
	}
	class, err := domain.NewGymClass(name, c)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, class)
	if err != nil {
		return nil, errors.Wrap(err, "create class")
	}
	s.log.InfoContext(ctx, "class created", "class_id", created.ID(), "name", created.Name(), "capacity", created.Capacity().Total())
	return created, nil
}

func (s *Service) GetClass(ctx context.Context, id int64) (*domain.GymClass, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListClasses(ctx context.Context) ([]*domain.GymClass, error) {
	return s.repo.List(ctx)
}

// Availability reports Exists=false rather than an error for unknown classes.
func (s *Service) Availability(ctx context.Context, id int64) (Availability, error) {
	class, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrClassNotFound) {
		return Availability{ClassID: id}, nil
	}
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		ClassID:   class.ID(),
		Name:      class.Name(),
		Exists:    true,
		Total:     class.Capacity().Total(),
		Available: class.Capacity().Available(),
	}, nil
}

// ApplyBookingCreated consumes one spot of the booked class. A redelivered
// event for a booking already applied is a no-op. Capacity is never clamped:
// a full class yields domain.ErrCapacityExhausted.
func (s *Service) ApplyBookingCreated(ctx context.Context, evt bookingdomain.BookingCreated) error {
	log := s.log.With("class_id", evt.ClassID, "booking_id", evt.BookingID)

	class, err := s.repo.ApplyReservation(ctx, evt.ClassID, evt.BookingID, (*domain.GymClass).ReserveSpot)
	switch {
	case errors.Is(err, domain.ErrReservationApplied):
		log.InfoContext(ctx, "duplicate booking event ignored")
		return nil
	case errors.Is(err, domain.ErrClassNotFound):
		log.ErrorContext(ctx, "booking references unknown class")
		return err
	case errors.Is(err, domain.ErrCapacityExhausted):
		log.ErrorContext(ctx, "class capacity exhausted, booking is over capacity")
		return err
	case err != nil:
		return errors.Wrapf(err, "reserve spot for booking %d", evt.BookingID)
	}

	log.InfoContext(ctx, "spot reserved", "capacity", class.Capacity().String())
	if class.Capacity().IsFull() {
		log.InfoContext(ctx, "class is now full")
	}
	return nil
}

// ReleaseSpot returns one spot to class id. No workflow calls it yet; it is
// the entry point for a future cancellation flow.
func (s *Service) ReleaseSpot(ctx context.Context, id int64) (*domain.GymClass, error) {
	class, err := s.repo.Update(ctx, id, (*domain.GymClass).ReleaseSpot)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "spot released", "class_id", id, "capacity", class.Capacity().String())
	return class, nil
}
