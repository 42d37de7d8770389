package domain

import (
	"context"
	"time"
)

type BookingRepository interface {
	// Write paths.
	// CreateBooking re-checks availability under a room-scoped row lock and
	// inserts in the same transaction. Returns ErrConflict when the room was
	// taken by a concurrent booking, ErrNotFound when the room row is absent.
	CreateBooking(ctx context.Context, b Booking) (Booking, error)
	UpdateBooking(ctx context.Context, id int64, p BookingPatch) (Booking, error)

	// Read paths.
	GetBookingByReference(ctx context.Context, reference string) (Booking, error)
	ListBookings(ctx context.Context) ([]Booking, error)
	IsRoomAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (bool, error)
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, r Room) (Room, error)
	UpdateRoom(ctx context.Context, id int64, p RoomPatch) (Room, error)
	DeleteRoom(ctx context.Context, id int64) error

	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	SearchRooms(ctx context.Context, input string) ([]Room, error)
	AvailableRooms(ctx context.Context, checkIn, checkOut time.Time, roomType *RoomType) ([]Room, error)
}

type ReferenceStore interface {
	// SaveReference durably claims a code. Returns ErrConflict when the code
	// is already taken; the generator treats that as a collision.
	SaveReference(ctx context.Context, code string) error
}

type PaymentRepository interface {
	// ApplyOutcome inserts the payment record and updates the booking's
	// payment status as one atomic unit. Returns applied=false when the
	// (bookingReference, transactionID) pair was already reconciled.
	// COMPLETED is terminal: once a booking settled, later outcomes are
	// recorded but never change its payment status.
	ApplyOutcome(ctx context.Context, rec PaymentRecord) (applied bool, err error)
	ListPaymentsByReference(ctx context.Context, reference string) ([]PaymentRecord, error)
}

// PaymentGateway creates an intent with the external provider. Amounts are
// minor currency units (cents for two-decimal currencies).
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (clientSecret string, err error)
}

type Notification struct {
	Recipient        string
	Subject          string
	Body             string
	BookingReference string
}

// Notifier delivers a notification. Callers treat delivery as fire-and-forget;
// the returned error is logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type User struct {
	ID    int64
	Email string
}

// UserDirectory is the identity-provider boundary. The core trusts the
// authenticated user id it is handed and only resolves contact details.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (User, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
