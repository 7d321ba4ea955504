// Package memory keeps bookings in process memory for local runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
)

type Repository struct {
	mu       sync.RWMutex
	bookings []domain.Booking
}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) Save(_ context.Context, b domain.Booking) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b.ID = int64(len(r.bookings) + 1)
	r.bookings = append(r.bookings, b)
	return b, nil
}

func (r *Repository) Get(_ context.Context, id int64) (domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id <= 0 || id > int64(len(r.bookings)) {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return r.bookings[id-1], nil
}

func (r *Repository) List(_ context.Context) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.Booking(nil), r.bookings...), nil
}
