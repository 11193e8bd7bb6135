package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusDelivered BookingStatus = "delivered"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusAuthorized    PaymentStatus = "authorized"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefundPending PaymentStatus = "refund_pending"
	PaymentStatusRefunded      PaymentStatus = "refunded"
)

// Booking is the canonical reservation record. It is only ever mutated
// through the reconcile engine's conditional-write path; Version is the
// optimistic concurrency guard and increments by exactly 1 per write.
type Booking struct {
	Base
	Reference        string        `db:"reference"`
	CustomerID       uuid.UUID     `db:"customer_id"`
	ServiceID        uuid.UUID     `db:"service_id"`
	EventID          uuid.UUID     `db:"event_id"`
	Status           BookingStatus `db:"status"`
	PaymentStatus    PaymentStatus `db:"payment_status"`
	PaymentReference *string       `db:"payment_reference"`
	Amount           int64         `db:"amount"`
	Currency         string        `db:"currency"`
	StartTime        time.Time     `db:"start_time"`
	EndTime          time.Time     `db:"end_time"`
	Version          int64         `db:"version"`
}

// IsTerminal reports whether no further status-changing event is accepted.
// Payment-only events (refund outcomes) may still apply.
func (b *Booking) IsTerminal() bool {
	if b.Status == BookingStatusCancelled {
		return true
	}
	if b.Status == BookingStatusDelivered {
		return b.PaymentStatus == PaymentStatusPaid || b.PaymentStatus == PaymentStatusRefunded
	}
	return false
}
