package gateway

import (
	"context"
	"errors"
)

type EventKind string

const (
	EventPaymentAuthorized EventKind = "payment_authorized"
	EventCaptureSucceeded  EventKind = "capture_succeeded"
	EventCaptureFailed     EventKind = "capture_failed"
	EventRefundSucceeded   EventKind = "refund_succeeded"
	EventRefundFailed      EventKind = "refund_failed"
)

// PaymentEvent is the internal shape of a gateway notification, produced by
// VerifyWebhook after the signature check. PayloadHash is the dedup component
// of the idempotency key.
type PaymentEvent struct {
	Kind             EventKind
	GatewayReference string // gateway payment identifier
	BookingID        string // from checkout notes, present on authorization events
	Amount           int64  // minor units
	Currency         string
	PayloadHash      string // sha256 hex of the raw payload
}

// CaptureResult is the synchronous response to a capture request. It is
// provisional: the authoritative outcome arrives through the webhook path.
type CaptureResult struct {
	GatewayReference string
	Amount           int64
	PayloadHash      string
}

type RefundResult struct {
	GatewayReference string
	Amount           int64
	PayloadHash      string
}

var (
	// ErrBadSignature means the webhook payload failed HMAC verification.
	ErrBadSignature = errors.New("webhook signature mismatch")
	// ErrUnsupportedEvent means a verified payload carries an event kind
	// this core does not consume.
	ErrUnsupportedEvent = errors.New("unsupported gateway event")
	// ErrTimeout means the outcome of a gateway call is indeterminate.
	// Callers must not infer success or failure from it.
	ErrTimeout = errors.New("gateway request timed out")
)

type PaymentGateway interface {
	VerifyWebhook(rawBody []byte, signature string) (*PaymentEvent, error)
	Capture(ctx context.Context, paymentReference string, amount int64) (*CaptureResult, error)
	Refund(ctx context.Context, paymentReference string, amount int64) (*RefundResult, error)
}
