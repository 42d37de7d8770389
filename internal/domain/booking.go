package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is an open set; values beyond the ones listed here may be
// introduced by back-office tooling through the partial-update path.
type BookingStatus string

const (
	BookingBooked     BookingStatus = "BOOKED"
	BookingCheckedIn  BookingStatus = "CHECKED_IN"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingCancelled  BookingStatus = "CANCELLED"
)

// PaymentStatus is closed. PENDING exists only on bookings; payment records
// are written with a terminal status.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Booking references User and Room by identity only. Dates are calendar days
// (UTC midnight); [CheckIn, CheckOut) is half-open, so a check-out that equals
// another booking's check-in is not a conflict.
type Booking struct {
	ID            int64
	UserID        int64
	RoomID        int64
	CheckIn       time.Time
	CheckOut      time.Time
	TotalPrice    decimal.Decimal
	Reference     string
	Status        BookingStatus
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}

// Nights is the whole-day span of the stay. Partial days are never billed.
func (b Booking) Nights() int64 {
	return int64(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// BookingPatch carries a partial update; nil fields are left untouched.
type BookingPatch struct {
	Status        *BookingStatus
	PaymentStatus *PaymentStatus
}

// Overlaps reports whether two half-open date ranges intersect.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}
