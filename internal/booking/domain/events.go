package domain

import "time"

const (
	BookingCreatedTopic = "booking-created"
	BookingCreatedType  = "BookingCreated"
)

// BookingCreated states that a booking was persisted and one spot of ClassID
// is now consumed. It is a fact, not a request.
type BookingCreated struct {
	ClassID   int64     `json:"classId"`
	BookingID int64     `json:"bookingId"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBookingCreated must only be called with a persisted booking. at is the
// moment the event is published, not the booking's creation time.
func NewBookingCreated(b Booking, at time.Time) BookingCreated {
	return BookingCreated{
		ClassID:   b.ClassID,
		BookingID: b.ID,
		UserName:  b.UserName,
		Timestamp: at.UTC(),
	}
}
