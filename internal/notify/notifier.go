package notify

import "context"

type TemplateKind string

const (
	TemplateBookingRequested TemplateKind = "booking_requested"
	TemplateBookingConfirmed TemplateKind = "booking_confirmed"
	TemplateBookingDeclined  TemplateKind = "booking_declined"
	TemplateBookingCancelled TemplateKind = "booking_cancelled"
	TemplateBookingDelivered TemplateKind = "booking_delivered"
	TemplatePaymentFailed    TemplateKind = "payment_failed"
	TemplateRefundIssued     TemplateKind = "refund_issued"
	TemplateRefundFailed     TemplateKind = "refund_failed"
)

// Message is one notification request. Delivery is best effort; a failed
// send never affects booking state.
type Message struct {
	To       string
	ToName   string
	Template TemplateKind
	Context  map[string]string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
