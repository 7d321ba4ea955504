package domain

import (
	"fmt"
	"math"

	"github.com/dmehra2102/Gym-Booking-System/pkg/apperr"
)

var (
	ErrInvalidCapacity   = apperr.New(apperr.Validation, "capacity must be between 1 and 2147483647 and hold 0 <= available <= total")
	ErrCapacityExhausted = apperr.New(apperr.CapacityExhausted, "class is fully booked")
	ErrInvalidState      = apperr.New(apperr.Validation, "cannot release spot: already at full capacity")
)

// Capacity is an immutable value; Reserve and Release return a new value and
// leave the receiver untouched.
type Capacity struct {
	total     int
	available int
}

// NewCapacity returns a capacity with every spot available.
func NewCapacity(total int) (Capacity, error) {
	return RestoreCapacity(total, total)
}

// MaxTotal is the largest capacity a class can hold; stores and the
// availability RPC carry it as a 32-bit integer.
const MaxTotal = math.MaxInt32

// RestoreCapacity rebuilds a capacity read from storage.
func RestoreCapacity(total, available int) (Capacity, error) {
	if total <= 0 || total > MaxTotal || available < 0 || available > total {
		return Capacity{}, ErrInvalidCapacity
	}
	return Capacity{total: total, available: available}, nil
}

func (c Capacity) Reserve() (Capacity, error) {
	if !c.HasAvailableSpots() {
		return Capacity{}, ErrCapacityExhausted
	}
	return Capacity{total: c.total, available: c.available - 1}, nil
}

func (c Capacity) Release() (Capacity, error) {
	if c.available >= c.total {
		return Capacity{}, ErrInvalidState
	}
	return Capacity{total: c.total, available: c.available + 1}, nil
}

func (c Capacity) Total() int              { return c.total }
func (c Capacity) Available() int          { return c.available }
func (c Capacity) HasAvailableSpots() bool { return c.available > 0 }
func (c Capacity) IsFull() bool            { return c.available == 0 }

func (c Capacity) String() string {
	return fmt.Sprintf("%d/%d", c.available, c.total)
}
