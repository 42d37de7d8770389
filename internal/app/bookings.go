package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

// BookingService owns the booking lifecycle: validation, pricing, reference
// generation, persistence and the booking-created notification.
type BookingService struct {
	bookings   domain.BookingRepository
	rooms      domain.RoomRepository
	refs       *ReferenceGenerator
	dispatcher *Dispatcher
	cache      domain.Cache
	cacheTTL   time.Duration

	// paymentBaseURL is the frontend origin the payment link points at.
	paymentBaseURL string

	locks roomLocks
	now   func() time.Time
}

func NewBookingService(
	bookings domain.BookingRepository,
	rooms domain.RoomRepository,
	refs *ReferenceGenerator,
	dispatcher *Dispatcher,
	cache domain.Cache,
	cacheTTL time.Duration,
	paymentBaseURL string,
) *BookingService {
	return &BookingService{
		bookings:       bookings,
		rooms:          rooms,
		refs:           refs,
		dispatcher:     dispatcher,
		cache:          cache,
		cacheTTL:       cacheTTL,
		paymentBaseURL: paymentBaseURL,
		now:            time.Now,
	}
}

func bookingKey(reference string) string { return "booking:" + reference }

// dateOnly truncates to a UTC calendar day. Bookings are priced and compared
// at day granularity only.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateBooking validates, prices and persists a booking with status BOOKED
// and paymentStatus PENDING, then dispatches a payment-link notification.
//
// Validation order is fixed: room existence, check-in not in the past,
// check-out strictly after check-in, availability. The availability read here
// is advisory; the repository re-checks under the room's row lock inside the
// insert transaction, so at most one of two overlapping requests commits.
func (s *BookingService) CreateBooking(ctx context.Context, userID, roomID int64, checkIn, checkOut time.Time) (domain.Booking, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Booking{}, fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
		}
		return domain.Booking{}, err
	}

	checkIn, checkOut = dateOnly(checkIn), dateOnly(checkOut)
	today := dateOnly(s.now())

	if checkIn.Before(today) {
		return domain.Booking{}, fmt.Errorf("%w: check-in date is in the past", domain.ErrInvalidBookingState)
	}
	if !checkOut.After(checkIn) {
		return domain.Booking{}, fmt.Errorf("%w: check-out date must be after check-in date", domain.ErrInvalidBookingState)
	}

	nights := int64(checkOut.Sub(checkIn).Hours() / 24)
	totalPrice := room.PricePerNight.Mul(decimal.NewFromInt(nights))

	// Serialize check+reserve per room within this process.
	unlock := s.locks.lock(roomID)
	defer unlock()

	available, err := s.bookings.IsRoomAvailable(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return domain.Booking{}, err
	}
	if !available {
		return domain.Booking{}, fmt.Errorf("%w: room is not available for the selected dates", domain.ErrInvalidBookingState)
	}

	reference, err := s.refs.Generate(ctx)
	if err != nil {
		return domain.Booking{}, err
	}

	booking := domain.Booking{
		UserID:        userID,
		RoomID:        roomID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		TotalPrice:    totalPrice,
		Reference:     reference,
		Status:        domain.BookingBooked,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     s.now().UTC(),
	}

	saved, err := s.bookings.CreateBooking(ctx, booking)
	if err != nil {
		// A concurrent booking won the room between the advisory read and
		// the insert. Not retried: the caller asked for dates that are gone.
		if errors.Is(err, domain.ErrConflict) {
			return domain.Booking{}, fmt.Errorf("%w: room is not available for the selected dates", domain.ErrInvalidBookingState)
		}
		return domain.Booking{}, err
	}

	observability.BookingsCreated.Inc()
	log.Info().Int64("booking_id", saved.ID).Str("ref", reference).Int64("room_id", roomID).Msg("booking created")

	s.notifyBookingCreated(saved)
	return saved, nil
}

func (s *BookingService) notifyBookingCreated(b domain.Booking) {
	paymentURL := fmt.Sprintf("%s/payment/%s/%s", s.paymentBaseURL, b.Reference, b.TotalPrice.String())
	s.dispatcher.Dispatch(b.UserID, domain.Notification{
		Subject:          "Booking Confirmation",
		Body:             fmt.Sprintf("Your booking has been created successfully. Please proceed with your payment using the payment link below\n%s", paymentURL),
		BookingReference: b.Reference,
	})
}

// UpdateBooking applies a partial merge: only non-nil fields overwrite stored
// state. No transition rules are enforced here; callers own consistency.
func (s *BookingService) UpdateBooking(ctx context.Context, id int64, p domain.BookingPatch) (domain.Booking, error) {
	updated, err := s.bookings.UpdateBooking(ctx, id, p)
	if err != nil {
		return domain.Booking{}, err
	}
	_ = s.cache.Del(ctx, bookingKey(updated.Reference))
	return updated, nil
}

func (s *BookingService) FindByReference(ctx context.Context, reference string) (domain.Booking, error) {
	key := bookingKey(reference)
	var b domain.Booking
	if ok, _ := s.cache.Get(ctx, key, &b); ok {
		return b, nil
	}
	b, err := s.bookings.GetBookingByReference(ctx, reference)
	if err != nil {
		return domain.Booking{}, err
	}
	_ = s.cache.Set(ctx, key, b, s.cacheTTL)
	return b, nil
}

// List returns all bookings, newest first.
func (s *BookingService) List(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.ListBookings(ctx)
}

func (s *BookingService) IsRoomAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (bool, error) {
	return s.bookings.IsRoomAvailable(ctx, roomID, dateOnly(checkIn), dateOnly(checkOut))
}
