// Package memory keeps classes in process memory. It serves local runs and
// tests; a single mutex serializes every mutation.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmehra2102/Gym-Booking-System/internal/class/domain"
)

type record struct {
	name      string
	total     int
	available int
}

type Repository struct {
	mu      sync.Mutex
	nextID  int64
	classes map[int64]record
	// applied maps booking id to the time its reservation was applied.
	applied map[int64]time.Time
}

func NewRepository() *Repository {
	return &Repository{
		classes: map[int64]record{},
		applied: map[int64]time.Time{},
	}
}

func (r *Repository) Create(_ context.Context, class *domain.GymClass) (*domain.GymClass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rec := toRecord(class)
	r.classes[r.nextID] = rec
	return rec.toDomain(r.nextID)
}

func (r *Repository) Get(_ context.Context, id int64) (*domain.GymClass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.classes[id]
	if !ok {
		return nil, domain.ErrClassNotFound
	}
	return rec.toDomain(id)
}

func (r *Repository) List(_ context.Context) ([]*domain.GymClass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.classes))
	for id := range r.classes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]*domain.GymClass, 0, len(ids))
	for _, id := range ids {
		class, err := r.classes[id].toDomain(id)
		if err != nil {
			return nil, err
		}
		out = append(out, class)
	}
	return out, nil
}

func (r *Repository) Update(_ context.Context, id int64, fn func(*domain.GymClass) error) (*domain.GymClass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.update(id, fn)
}

func (r *Repository) ApplyReservation(_ context.Context, classID, bookingID int64, fn func(*domain.GymClass) error) (*domain.GymClass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.applied[bookingID]; ok {
		return nil, domain.ErrReservationApplied
	}
	class, err := r.update(classID, fn)
	if err != nil {
		return nil, err
	}
	r.applied[bookingID] = time.Now().UTC()
	return class, nil
}

// update must be called with r.mu held.
func (r *Repository) update(id int64, fn func(*domain.GymClass) error) (*domain.GymClass, error) {
	rec, ok := r.classes[id]
	if !ok {
		return nil, domain.ErrClassNotFound
	}
	class, err := rec.toDomain(id)
	if err != nil {
		return nil, err
	}
	if err := fn(class); err != nil {
		return nil, err
	}
	r.classes[id] = toRecord(class)
	return class, nil
}

func toRecord(class *domain.GymClass) record {
	return record{
		name:      class.Name(),
		total:     class.Capacity().Total(),
		available: class.Capacity().Available(),
	}
}

func (rec record) toDomain(id int64) (*domain.GymClass, error) {
	c, err := domain.RestoreCapacity(rec.total, rec.available)
	if err != nil {
		return nil, err
	}
	return domain.RestoreGymClass(id, rec.name, c), nil
}
