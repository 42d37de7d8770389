package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

// PaymentService creates gateway intents for bookings and reconciles the
// gateway's reported outcomes back into booking/payment state.
type PaymentService struct {
	bookings   domain.BookingRepository
	payments   domain.PaymentRepository
	gateway    domain.PaymentGateway
	dispatcher *Dispatcher
	cache      domain.Cache
	currency   string
	now        func() time.Time
}

func NewPaymentService(
	bookings domain.BookingRepository,
	payments domain.PaymentRepository,
	gateway domain.PaymentGateway,
	dispatcher *Dispatcher,
	cache domain.Cache,
	currency string,
) *PaymentService {
	return &PaymentService{
		bookings:   bookings,
		payments:   payments,
		gateway:    gateway,
		dispatcher: dispatcher,
		cache:      cache,
		currency:   currency,
		now:        time.Now,
	}
}

// CreateIntent asks the gateway for a payment intent and returns its client
// secret. Rejected with ErrPaymentAlreadyCompleted once the booking settled;
// PENDING and FAILED bookings may (re)try.
func (s *PaymentService) CreateIntent(ctx context.Context, reference string, amount decimal.Decimal) (string, error) {
	booking, err := s.bookings.GetBookingByReference(ctx, reference)
	if err != nil {
		return "", err
	}
	if booking.PaymentStatus == domain.PaymentCompleted {
		return "", fmt.Errorf("booking %s: %w", reference, domain.ErrPaymentAlreadyCompleted)
	}

	// Gateway amounts are minor currency units.
	amountMinor := amount.Mul(minorUnitsPerMajor).IntPart()

	secret, err := s.gateway.CreateIntent(ctx, amountMinor, s.currency, map[string]string{
		"bookingReference": reference,
	})
	if err != nil {
		return "", &domain.GatewayError{Op: "create intent", Err: err}
	}
	return secret, nil
}

// Reconcile applies one gateway outcome: it writes the PaymentRecord and
// flips the booking's paymentStatus in a single atomic unit, then dispatches
// a best-effort outcome notification.
//
// Reconciliation is idempotent per (reference, transactionID): a redelivered
// webhook acks as a no-op instead of double-applying.
func (s *PaymentService) Reconcile(ctx context.Context, reference string, amount decimal.Decimal, transactionID string, success bool, failureReason string) error {
	booking, err := s.bookings.GetBookingByReference(ctx, reference)
	if err != nil {
		return err
	}

	status := domain.PaymentCompleted
	var reason *string
	if !success {
		status = domain.PaymentFailed
		reason = &failureReason
	}

	rec := domain.PaymentRecord{
		BookingReference: reference,
		Amount:           amount,
		TransactionID:    transactionID,
		Status:           status,
		PaymentDate:      s.now().UTC(),
		FailureReason:    reason,
		UserID:           booking.UserID,
	}

	applied, err := s.payments.ApplyOutcome(ctx, rec)
	if err != nil {
		return err
	}
	if !applied {
		log.Info().Str("ref", reference).Str("tx", transactionID).Msg("duplicate payment outcome ignored")
		return nil
	}

	observability.PaymentsReconciled.WithLabelValues(string(status)).Inc()
	_ = s.cache.Del(ctx, bookingKey(reference))
	log.Info().Str("ref", reference).Str("tx", transactionID).Str("status", string(status)).Msg("payment reconciled")

	s.notifyOutcome(booking, success, failureReason)
	return nil
}

func (s *PaymentService) notifyOutcome(b domain.Booking, success bool, failureReason string) {
	n := domain.Notification{BookingReference: b.Reference}
	if success {
		n.Subject = "Payment Successful"
		n.Body = fmt.Sprintf("Congratulations! Your payment for booking with reference %s was processed successfully. Thank you for your booking.", b.Reference)
	} else {
		n.Subject = "Payment Failed"
		n.Body = fmt.Sprintf("Your payment for booking with reference %s failed with reason: %s", b.Reference, failureReason)
	}
	s.dispatcher.Dispatch(b.UserID, n)
}

// PaymentHistory lists the append-only audit records for a booking.
func (s *PaymentService) PaymentHistory(ctx context.Context, reference string) ([]domain.PaymentRecord, error) {
	recs, err := s.payments.ListPaymentsByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		// Distinguish "no payments yet" from "no such booking".
		if _, err := s.bookings.GetBookingByReference(ctx, reference); err != nil {
			return nil, err
		}
	}
	return recs, nil
}
