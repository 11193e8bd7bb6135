package usecase

import (
	"fmt"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/notify"
)

type EventKind string

const (
	// Actor events (customer, provider or admin through the action API).
	EventAccept        EventKind = "accept"
	EventDecline       EventKind = "decline"
	EventCancel        EventKind = "cancel"
	EventMarkDelivered EventKind = "mark_delivered"

	// Gateway events (webhook or provisional synchronous responses).
	EventPaymentAuthorized EventKind = "payment_authorized"
	EventCaptureSucceeded  EventKind = "capture_succeeded"
	EventCaptureFailed     EventKind = "capture_failed"
	EventRefundSucceeded   EventKind = "refund_succeeded"
	EventRefundFailed      EventKind = "refund_failed"
)

func (k EventKind) IsGatewayEvent() bool {
	switch k {
	case EventPaymentAuthorized, EventCaptureSucceeded, EventCaptureFailed,
		EventRefundSucceeded, EventRefundFailed:
		return true
	}
	return false
}

// Event is one input to the state machine.
type Event struct {
	Kind             EventKind
	GatewayReference string
	Amount           int64
	PayloadHash      string
}

// DedupKey builds the idempotency key for gateway events. Success and
// authorization events happen at most once per payment, so the payload hash
// is left out of their key: the provisional synchronous echo and the later
// webhook delivery of the same outcome then collapse into one application.
// Failure events can legitimately repeat and keep the hash.
func (e Event) DedupKey() string {
	switch e.Kind {
	case EventPaymentAuthorized, EventCaptureSucceeded, EventRefundSucceeded:
		return fmt.Sprintf("%s:%s", e.GatewayReference, e.Kind)
	default:
		return fmt.Sprintf("%s:%s:%s", e.GatewayReference, e.Kind, e.PayloadHash)
	}
}

// Snapshot is the part of a booking the state machine decides on.
// CaptureInFlight is derived from unresolved request_capture rows in the
// effect log; it is what makes a delivery mark or a capture outcome
// acceptable.
type Snapshot struct {
	Status          entity.BookingStatus
	Payment         entity.PaymentStatus
	Amount          int64
	CaptureInFlight bool
}

// EffectPlan is a side effect implied by a transition. Template is only set
// for notify effects.
type EffectPlan struct {
	Kind     entity.EffectKind
	Template notify.TemplateKind
}

type Outcome struct {
	Status  entity.BookingStatus
	Payment entity.PaymentStatus
	Effects []EffectPlan
}

// Changed reports whether the outcome writes new state. mark_delivered never
// does; a gateway failure can also land on a payment that is already failed.
// Such events leave the version alone.
func (o *Outcome) Changed(cur Snapshot) bool {
	return o.Status != cur.Status || o.Payment != cur.Payment
}

func notifyPlan(template notify.TemplateKind) EffectPlan {
	return EffectPlan{Kind: entity.EffectNotify, Template: template}
}

func reject(cur Snapshot, ev Event, reason string) error {
	return fmt.Errorf("%w: %s not applicable to (%s, %s): %s",
		ErrInvalidTransition, ev.Kind, cur.Status, cur.Payment, reason)
}

// Decide is the booking state machine: pure, no I/O, no clock. Any
// (snapshot, event) pair without a rule returns ErrInvalidTransition and the
// caller leaves the booking untouched.
func Decide(cur Snapshot, ev Event) (*Outcome, error) {
	out := &Outcome{Status: cur.Status, Payment: cur.Payment}

	switch ev.Kind {
	case EventAccept:
		if cur.Status != entity.BookingStatusPending {
			return nil, reject(cur, ev, "only pending bookings can be accepted")
		}
		out.Status = entity.BookingStatusConfirmed
		out.Effects = []EffectPlan{notifyPlan(notify.TemplateBookingConfirmed)}

	case EventDecline:
		if cur.Status != entity.BookingStatusPending {
			return nil, reject(cur, ev, "only pending bookings can be declined")
		}
		out.Status = entity.BookingStatusCancelled
		out.Effects = []EffectPlan{notifyPlan(notify.TemplateBookingDeclined)}

	case EventCancel:
		if cur.Status != entity.BookingStatusPending && cur.Status != entity.BookingStatusConfirmed {
			return nil, reject(cur, ev, "booking is no longer cancellable")
		}
		out.Status = entity.BookingStatusCancelled
		if cur.Payment == entity.PaymentStatusPaid {
			out.Payment = entity.PaymentStatusRefundPending
			out.Effects = []EffectPlan{
				{Kind: entity.EffectRequestRefund},
				notifyPlan(notify.TemplateBookingCancelled),
			}
		} else {
			out.Effects = []EffectPlan{notifyPlan(notify.TemplateBookingCancelled)}
		}

	case EventMarkDelivered:
		if cur.Status != entity.BookingStatusConfirmed {
			return nil, reject(cur, ev, "only confirmed bookings can be delivered")
		}
		switch cur.Payment {
		case entity.PaymentStatusUnpaid, entity.PaymentStatusAuthorized, entity.PaymentStatusFailed:
		default:
			return nil, reject(cur, ev, "payment is not capturable")
		}
		if cur.CaptureInFlight {
			return nil, reject(cur, ev, "a capture is already in flight")
		}
		out.Effects = []EffectPlan{{Kind: entity.EffectRequestCapture}}

	case EventPaymentAuthorized:
		if cur.Status != entity.BookingStatusPending && cur.Status != entity.BookingStatusConfirmed {
			return nil, reject(cur, ev, "booking cannot accept an authorization")
		}
		if cur.Payment != entity.PaymentStatusUnpaid {
			return nil, reject(cur, ev, "payment is already past authorization")
		}
		out.Payment = entity.PaymentStatusAuthorized

	case EventCaptureSucceeded:
		if cur.Status != entity.BookingStatusConfirmed {
			return nil, reject(cur, ev, "no delivery is being settled")
		}
		if !cur.CaptureInFlight {
			return nil, reject(cur, ev, "no capture is in flight")
		}
		switch cur.Payment {
		case entity.PaymentStatusUnpaid, entity.PaymentStatusAuthorized, entity.PaymentStatusFailed:
		default:
			return nil, reject(cur, ev, "payment is not capturable")
		}
		if ev.Amount != cur.Amount {
			// Partial capture: treated like a failed capture, requires
			// manual reconciliation rather than guessing a partial-paid state.
			out.Payment = entity.PaymentStatusFailed
			out.Effects = []EffectPlan{notifyPlan(notify.TemplatePaymentFailed)}
			break
		}
		out.Status = entity.BookingStatusDelivered
		out.Payment = entity.PaymentStatusPaid
		out.Effects = []EffectPlan{notifyPlan(notify.TemplateBookingDelivered)}

	case EventCaptureFailed:
		if cur.Status != entity.BookingStatusConfirmed {
			return nil, reject(cur, ev, "no delivery is being settled")
		}
		if !cur.CaptureInFlight {
			return nil, reject(cur, ev, "no capture is in flight")
		}
		out.Payment = entity.PaymentStatusFailed
		out.Effects = []EffectPlan{notifyPlan(notify.TemplatePaymentFailed)}

	case EventRefundSucceeded:
		settledDelivery := cur.Status == entity.BookingStatusDelivered && cur.Payment == entity.PaymentStatusPaid
		pendingRefund := cur.Status == entity.BookingStatusCancelled && cur.Payment == entity.PaymentStatusRefundPending
		if !settledDelivery && !pendingRefund {
			return nil, reject(cur, ev, "there is nothing to refund")
		}
		out.Payment = entity.PaymentStatusRefunded
		out.Effects = []EffectPlan{notifyPlan(notify.TemplateRefundIssued)}

	case EventRefundFailed:
		if cur.Payment != entity.PaymentStatusRefundPending {
			return nil, reject(cur, ev, "no refund is pending")
		}
		out.Payment = entity.PaymentStatusFailed
		out.Effects = []EffectPlan{notifyPlan(notify.TemplateRefundFailed)}

	default:
		return nil, reject(cur, ev, "unknown event")
	}

	return out, nil
}
