package usecase

import (
	"testing"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(status entity.BookingStatus, payment entity.PaymentStatus) Snapshot {
	return Snapshot{Status: status, Payment: payment, Amount: 250000}
}

func TestDecide_ActorEvents(t *testing.T) {
	tests := []struct {
		name        string
		cur         Snapshot
		event       Event
		wantStatus  entity.BookingStatus
		wantPayment entity.PaymentStatus
		wantEffects []entity.EffectKind
	}{
		{
			name:        "accept pending",
			cur:         snap(entity.BookingStatusPending, entity.PaymentStatusUnpaid),
			event:       Event{Kind: EventAccept},
			wantStatus:  entity.BookingStatusConfirmed,
			wantPayment: entity.PaymentStatusUnpaid,
			wantEffects: []entity.EffectKind{entity.EffectNotify},
		},
		{
			name:        "decline pending",
			cur:         snap(entity.BookingStatusPending, entity.PaymentStatusUnpaid),
			event:       Event{Kind: EventDecline},
			wantStatus:  entity.BookingStatusCancelled,
			wantPayment: entity.PaymentStatusUnpaid,
			wantEffects: []entity.EffectKind{entity.EffectNotify},
		},
		{
			name:        "cancel pending unpaid",
			cur:         snap(entity.BookingStatusPending, entity.PaymentStatusUnpaid),
			event:       Event{Kind: EventCancel},
			wantStatus:  entity.BookingStatusCancelled,
			wantPayment: entity.PaymentStatusUnpaid,
			wantEffects: []entity.EffectKind{entity.EffectNotify},
		},
		{
			name:        "cancel confirmed authorized",
			cur:         snap(entity.BookingStatusConfirmed, entity.PaymentStatusAuthorized),
			event:       Event{Kind: EventCancel},
			wantStatus:  entity.BookingStatusCancelled,
			wantPayment: entity.PaymentStatusAuthorized,
			wantEffects: []entity.EffectKind{entity.EffectNotify},
		},
		{
			name:        "cancel confirmed paid requests refund",
			cur:         snap(entity.BookingStatusConfirmed, entity.PaymentStatusPaid),
			event:       Event{Kind: EventCancel},
			wantStatus:  entity.BookingStatusCancelled,
			wantPayment: entity.PaymentStatusRefundPending,
			wantEffects: []entity.EffectKind{entity.EffectRequestRefund, entity.EffectNotify},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Decide(tt.cur, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantPayment, out.Payment)

			kinds := make([]entity.EffectKind, len(out.Effects))
			for i, e := range out.Effects {
				kinds[i] = e.Kind
			}
			assert.Equal(t, tt.wantEffects, kinds)
		})
	}
}

func TestDecide_MarkDelivered(t *testing.T) {
	t.Run("confirmed authorized requests capture without state change", func(t *testing.T) {
		cur := snap(entity.BookingStatusConfirmed, entity.PaymentStatusAuthorized)
		out, err := Decide(cur, Event{Kind: EventMarkDelivered})
		require.NoError(t, err)

		assert.False(t, out.Changed(cur))
		require.Len(t, out.Effects, 1)
		assert.Equal(t, entity.EffectRequestCapture, out.Effects[0].Kind)
	})

	t.Run("retry after failed capture is allowed", func(t *testing.T) {
		cur := snap(entity.BookingStatusConfirmed, entity.PaymentStatusFailed)
		out, err := Decide(cur, Event{Kind: EventMarkDelivered})
		require.NoError(t, err)
		require.Len(t, out.Effects, 1)
		assert.Equal(t, entity.EffectRequestCapture, out.Effects[0].Kind)
	})

	t.Run("rejected while a capture is in flight", func(t *testing.T) {
		cur := snap(entity.BookingStatusConfirmed, entity.PaymentStatusAuthorized)
		cur.CaptureInFlight = true
		_, err := Decide(cur, Event{Kind: EventMarkDelivered})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("rejected when already paid", func(t *testing.T) {
		cur := snap(entity.BookingStatusConfirmed, entity.PaymentStatusPaid)
		_, err := Decide(cur, Event{Kind: EventMarkDelivered})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestDecide_GatewayEvents(t *testing.T) {
	t.Run("authorization lands on pending or confirmed unpaid", func(t *testing.T) {
		for _, status := range []entity.BookingStatus{entity.BookingStatusPending, entity.BookingStatusConfirmed} {
			out, err := Decide(snap(status, entity.PaymentStatusUnpaid), Event{Kind: EventPaymentAuthorized})
			require.NoError(t, err)
			assert.Equal(t, status, out.Status)
			assert.Equal(t, entity.PaymentStatusAuthorized, out.Payment)
		}
	})

	t.Run("authorization rejected once past unpaid", func(t *testing.T) {
		_, err := Decide(snap(entity.BookingStatusConfirmed, entity.PaymentStatusAuthorized), Event{Kind: EventPaymentAuthorized})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("capture succeeded settles delivery", func(t *testing.T) {
		cur := snap(entity.BookingStatusConfirmed, entity.PaymentStatusAuthorized)
		cur.CaptureInFlight = true
		out, err := Decide(cur, Event{Kind: EventCaptureSucceeded, Amount: cur.Amount})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusDelivered, out.Status)
		assert.Equal(t, entity.PaymentStatusPaid, out.Payment)
	})

	t.Run("partial capture is treated as failed", func(t *testing.T) {
		cur := snap(entity.BookingStatusConfirmed, entity.PaymentStatusAuthorized)
		cur.CaptureInFlight = true
		out, err := Decide(cur, Event{Kind: EventCaptureSucceeded, Amount: cur.Amount - 1})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusConfirmed, out.Status)
		assert.Equal(t, entity.PaymentStatusFailed, out.Payment)
		require.Len(t, out.Effects, 1)
		assert.Equal(t, string(notify.TemplatePaymentFailed), string(out.Effects[0].Template))
	})

	t.Run("capture outcome without a request in flight is rejected", func(t *testing.T) {
		cur := snap(entity.BookingStatusConfirmed, entity.PaymentStatusAuthorized)
		_, err := Decide(cur, Event{Kind: EventCaptureSucceeded, Amount: cur.Amount})
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = Decide(cur, Event{Kind: EventCaptureFailed})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("capture failed keeps booking confirmed", func(t *testing.T) {
		cur := snap(entity.BookingStatusConfirmed, entity.PaymentStatusAuthorized)
		cur.CaptureInFlight = true
		out, err := Decide(cur, Event{Kind: EventCaptureFailed})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusConfirmed, out.Status)
		assert.Equal(t, entity.PaymentStatusFailed, out.Payment)
	})

	t.Run("refund succeeds after cancellation", func(t *testing.T) {
		cur := snap(entity.BookingStatusCancelled, entity.PaymentStatusRefundPending)
		out, err := Decide(cur, Event{Kind: EventRefundSucceeded})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCancelled, out.Status)
		assert.Equal(t, entity.PaymentStatusRefunded, out.Payment)
	})

	t.Run("refund succeeds on a settled delivery", func(t *testing.T) {
		cur := snap(entity.BookingStatusDelivered, entity.PaymentStatusPaid)
		out, err := Decide(cur, Event{Kind: EventRefundSucceeded})
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusRefunded, out.Payment)
	})

	t.Run("refund failed only valid while a refund is pending", func(t *testing.T) {
		out, err := Decide(snap(entity.BookingStatusCancelled, entity.PaymentStatusRefundPending), Event{Kind: EventRefundFailed})
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusFailed, out.Payment)

		_, err = Decide(snap(entity.BookingStatusDelivered, entity.PaymentStatusPaid), Event{Kind: EventRefundFailed})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

// Every event must be rejected on states it has no rule for so stale webhook
// deliveries and double-submitted actions cannot corrupt a booking.
func TestDecide_RejectionGrid(t *testing.T) {
	rejections := []struct {
		name  string
		cur   Snapshot
		event Event
	}{
		{"accept confirmed", snap(entity.BookingStatusConfirmed, entity.PaymentStatusUnpaid), Event{Kind: EventAccept}},
		{"accept cancelled", snap(entity.BookingStatusCancelled, entity.PaymentStatusUnpaid), Event{Kind: EventAccept}},
		{"decline confirmed", snap(entity.BookingStatusConfirmed, entity.PaymentStatusUnpaid), Event{Kind: EventDecline}},
		{"cancel delivered", snap(entity.BookingStatusDelivered, entity.PaymentStatusPaid), Event{Kind: EventCancel}},
		{"cancel cancelled", snap(entity.BookingStatusCancelled, entity.PaymentStatusUnpaid), Event{Kind: EventCancel}},
		{"deliver pending", snap(entity.BookingStatusPending, entity.PaymentStatusUnpaid), Event{Kind: EventMarkDelivered}},
		{"deliver delivered", snap(entity.BookingStatusDelivered, entity.PaymentStatusPaid), Event{Kind: EventMarkDelivered}},
		{"authorize cancelled", snap(entity.BookingStatusCancelled, entity.PaymentStatusUnpaid), Event{Kind: EventPaymentAuthorized}},
		{"authorize delivered", snap(entity.BookingStatusDelivered, entity.PaymentStatusPaid), Event{Kind: EventPaymentAuthorized}},
		{"capture success on pending", snap(entity.BookingStatusPending, entity.PaymentStatusUnpaid), Event{Kind: EventCaptureSucceeded}},
		{"capture failed on cancelled", snap(entity.BookingStatusCancelled, entity.PaymentStatusUnpaid), Event{Kind: EventCaptureFailed}},
		{"refund success unpaid", snap(entity.BookingStatusCancelled, entity.PaymentStatusUnpaid), Event{Kind: EventRefundSucceeded}},
		{"refund failed without pending refund", snap(entity.BookingStatusConfirmed, entity.PaymentStatusAuthorized), Event{Kind: EventRefundFailed}},
		{"unknown event", snap(entity.BookingStatusPending, entity.PaymentStatusUnpaid), Event{Kind: EventKind("explode")}},
	}

	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decide(tt.cur, tt.event)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestEventDedupKey(t *testing.T) {
	success := Event{Kind: EventCaptureSucceeded, GatewayReference: "pay_123", PayloadHash: "aaa"}
	echo := Event{Kind: EventCaptureSucceeded, GatewayReference: "pay_123", PayloadHash: "bbb"}
	assert.Equal(t, success.DedupKey(), echo.DedupKey(),
		"provisional echo and webhook of the same success must share a key")

	firstFail := Event{Kind: EventCaptureFailed, GatewayReference: "pay_123", PayloadHash: "aaa"}
	secondFail := Event{Kind: EventCaptureFailed, GatewayReference: "pay_123", PayloadHash: "bbb"}
	assert.NotEqual(t, firstFail.DedupKey(), secondFail.DedupKey(),
		"distinct failures of the same payment must not deduplicate each other")
}

func TestBookingIsTerminal(t *testing.T) {
	cancelled := &entity.Booking{Status: entity.BookingStatusCancelled, PaymentStatus: entity.PaymentStatusUnpaid}
	assert.True(t, cancelled.IsTerminal())

	deliveredPaid := &entity.Booking{Status: entity.BookingStatusDelivered, PaymentStatus: entity.PaymentStatusPaid}
	assert.True(t, deliveredPaid.IsTerminal())

	confirmed := &entity.Booking{Status: entity.BookingStatusConfirmed, PaymentStatus: entity.PaymentStatusAuthorized}
	assert.False(t, confirmed.IsTerminal())
}
