package entity

import (
	"time"

	"github.com/google/uuid"
)

type EffectKind string

const (
	EffectRequestCapture EffectKind = "request_capture"
	EffectRequestRefund  EffectKind = "request_refund"
	EffectNotify         EffectKind = "notify"
)

type EffectStatus string

const (
	EffectStatusPending    EffectStatus = "pending"
	EffectStatusDispatched EffectStatus = "dispatched"
	EffectStatusResolved   EffectStatus = "resolved"
	EffectStatusFailed     EffectStatus = "failed"
)

// Effect is one side-effect row written in the same transaction as the
// booking state write that implied it. It is both the dispatch log the
// recovery sweep scans and, for capture/refund requests, the durable
// "in flight" marker the state machine consults.
type Effect struct {
	ID        uuid.UUID    `db:"id"`
	BookingID uuid.UUID    `db:"booking_id"`
	Kind      EffectKind   `db:"kind"`
	Template  *string      `db:"template"`
	Status    EffectStatus `db:"status"`
	Attempts  int          `db:"attempts"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}
