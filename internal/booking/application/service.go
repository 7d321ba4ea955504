package application

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Gym-Booking-System/pkg/clock"
)

type Service struct {
	log     *slog.Logger
	repo    BookingRepository
	classes ClassAvailabilityClient
	events  EventPublisher
	outbox  OutboxRepository
	clock   clock.Clock
}

func NewService(log *slog.Logger, repo BookingRepository, classes ClassAvailabilityClient, events EventPublisher, clk clock.Clock) *Service {
	return &Service{log: log, repo: repo, classes: classes, events: events, clock: clk}
}

// WithOutbox makes CreateBooking store each booking together with its
// BookingCreated event through o instead of publishing directly. A relay then
// forwards the queued events to the channel.
func (s *Service) WithOutbox(o OutboxRepository) *Service {
	s.outbox = o
	return s
}

// CreateBooking checks availability with the class service, stores the
// booking and announces it. The availability answer is advisory: two
// concurrent calls may both pass it for the last spot, and the class service
// settles the race when it applies the events.
//
// The booking is stored before the event is built. A direct publish failure
// is logged and the stored booking is still returned; that booking's spot is
// then never deducted. With an outbox the booking and its event commit
// together.
func (s *Service) CreateBooking(ctx context.Context, classID int64, userName string) (domain.Booking, error) {
	if err := domain.Validate(classID, userName); err != nil {
		return domain.Booking{}, err
	}

	if _, err := s.classes.CheckAvailability(ctx, classID); err != nil {
		return domain.Booking{}, err
	}

	b, err := domain.NewBooking(classID, userName, s.clock.Now())
	if err != nil {
		return domain.Booking{}, err
	}
	if s.outbox != nil {
		saved, err := s.outbox.SaveWithOutbox(ctx, b, s.bookingCreated)
		if err != nil {
			return domain.Booking{}, errors.Wrap(err, "save booking with outbox")
		}
		s.log.InfoContext(ctx, "booking created", "booking_id", saved.ID, "class_id", saved.ClassID, "publish", "outbox")
		return saved, nil
	}

	saved, err := s.repo.Save(ctx, b)
	if err != nil {
		return domain.Booking{}, errors.Wrap(err, "save booking")
	}

	if err := s.events.PublishBookingCreated(ctx, s.bookingCreated(saved)); err != nil {
		s.log.ErrorContext(ctx, "publish BookingCreated failed, class capacity not updated",
			"booking_id", saved.ID, "class_id", saved.ClassID, "err", err)
	}

	s.log.InfoContext(ctx, "booking created", "booking_id", saved.ID, "class_id", saved.ClassID)
	return saved, nil
}

func (s *Service) bookingCreated(saved domain.Booking) domain.BookingCreated {
	return domain.NewBookingCreated(saved, s.clock.Now())
}

func (s *Service) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return s.repo.List(ctx)
}
