package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/dmehra2102/Gym-Booking-System/pkg/apperr"
)

const MaxNameLength = 100

var (
	ErrClassNotFound      = apperr.New(apperr.NotFound, "class not found")
	ErrInvalidName        = apperr.New(apperr.Validation, "class name is required and cannot exceed 100 characters")
	// ErrReservationApplied reports a booking whose spot was already taken.
	ErrReservationApplied = errors.New("reservation already applied for booking")
)

// GymClass is the aggregate guarding a class's capacity. Its capacity changes
// only through ReserveSpot and ReleaseSpot.
type GymClass struct {
	id       int64
	name     string
	capacity Capacity
}

func NewGymClass(name string, capacity Capacity) (*GymClass, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return nil, ErrInvalidName
	}
	if capacity.total == 0 {
		return nil, ErrInvalidCapacity
	}
	return &GymClass{name: name, capacity: capacity}, nil
}

// RestoreGymClass rehydrates a stored class. The capacity has already been
// validated by RestoreCapacity.
func RestoreGymClass(id int64, name string, capacity Capacity) *GymClass {
	return &GymClass{id: id, name: name, capacity: capacity}
}

func (g *GymClass) ReserveSpot() error {
	next, err := g.capacity.Reserve()
	if err != nil {
		return err
	}
	g.capacity = next
	return nil
}

func (g *GymClass) ReleaseSpot() error {
	next, err := g.capacity.Release()
	if err != nil {
		return err
	}
	g.capacity = next
	return nil
}

func (g *GymClass) ID() int64          { return g.id }
func (g *GymClass) Name() string       { return g.name }
func (g *GymClass) Capacity() Capacity { return g.capacity }
func (g *GymClass) IsAvailable() bool  { return g.capacity.HasAvailableSpots() }
