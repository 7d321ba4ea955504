package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmehra2102/Gym-Booking-System/pkg/apperr"
)

const MaxUserNameLength = 100

var (
	ErrInvalidClassID  = apperr.New(apperr.Validation, "class id must be a positive number")
	ErrInvalidUserName = apperr.New(apperr.Validation, "user name is required and cannot exceed 100 characters")
	ErrBookingNotFound = apperr.New(apperr.NotFound, "booking not found")
)

// Booking records that UserName took a spot in ClassID. Bookings are never
// updated once stored; ID is assigned by the repository.
type Booking struct {
	ID        int64
	ClassID   int64
	UserName  string
	CreatedAt time.Time
}

// NewBooking stamps CreatedAt with now at microsecond precision, the
// precision the booking store keeps.
func NewBooking(classID int64, userName string, now time.Time) (Booking, error) {
	if err := Validate(classID, userName); err != nil {
		return Booking{}, err
	}
	return Booking{
		ClassID:   classID,
		UserName:  strings.TrimSpace(userName),
		CreatedAt: now.UTC().Truncate(time.Microsecond),
	}, nil
}

// Validate checks a booking request before any remote call is made.
func Validate(classID int64, userName string) error {
	if classID <= 0 {
		return ErrInvalidClassID
	}
	name := strings.TrimSpace(userName)
	if name == "" || utf8.RuneCountInString(name) > MaxUserNameLength {
		return ErrInvalidUserName
	}
	return nil
}
