package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecord is an append-only audit entry for one reconciled gateway
// outcome. Status is terminal (COMPLETED or FAILED, never PENDING).
// A booking may accumulate several records across retried payment attempts;
// at most one of them is COMPLETED.
type PaymentRecord struct {
	ID               int64
	BookingReference string
	Amount           decimal.Decimal
	TransactionID    string
	Status           PaymentStatus
	PaymentDate      time.Time
	FailureReason    *string
	UserID           int64 // denormalized from the booking for audit
}
