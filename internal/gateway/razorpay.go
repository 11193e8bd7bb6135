package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-booking/pkg/utils"

	razorpay "github.com/razorpay/razorpay-go"
	rputils "github.com/razorpay/razorpay-go/utils"
	"go.uber.org/zap"
)

type razorpayGateway struct {
	client        *razorpay.Client
	webhookSecret string
	timeout       time.Duration
	log           *zap.Logger
}

func NewRazorpayGateway(config utils.GatewayConfig, log *zap.Logger) PaymentGateway {
	return &razorpayGateway{
		client:        razorpay.NewClient(config.KeyID, config.KeySecret),
		webhookSecret: config.WebhookSecret,
		timeout:       time.Duration(config.TimeoutSeconds) * time.Second,
		log:           log.With(zap.String("gateway", "razorpay")),
	}
}

// webhookEnvelope is the subset of the razorpay webhook body we consume.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string            `json:"id"`
				Amount   int64             `json:"amount"`
				Currency string            `json:"currency"`
				Notes    map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
				Currency  string `json:"currency"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

func (g *razorpayGateway) VerifyWebhook(rawBody []byte, signature string) (*PaymentEvent, error) {
	if !rputils.VerifyWebhookSignature(string(rawBody), signature, g.webhookSecret) {
		g.log.Warn("Webhook signature verification failed")
		return nil, ErrBadSignature
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	event := &PaymentEvent{
		PayloadHash: payloadHash(rawBody),
	}

	switch envelope.Event {
	case "payment.authorized":
		event.Kind = EventPaymentAuthorized
	case "payment.captured":
		event.Kind = EventCaptureSucceeded
	case "payment.failed":
		event.Kind = EventCaptureFailed
	case "refund.processed":
		event.Kind = EventRefundSucceeded
	case "refund.failed":
		event.Kind = EventRefundFailed
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, envelope.Event)
	}

	switch event.Kind {
	case EventRefundSucceeded, EventRefundFailed:
		refund := envelope.Payload.Refund.Entity
		event.GatewayReference = refund.PaymentID
		event.Amount = refund.Amount
		event.Currency = refund.Currency
	default:
		payment := envelope.Payload.Payment.Entity
		event.GatewayReference = payment.ID
		event.Amount = payment.Amount
		event.Currency = payment.Currency
		event.BookingID = payment.Notes["booking_id"]
	}

	if event.GatewayReference == "" {
		return nil, fmt.Errorf("webhook payload for %s has no payment reference", envelope.Event)
	}

	return event, nil
}

func (g *razorpayGateway) Capture(ctx context.Context, paymentReference string, amount int64) (*CaptureResult, error) {
	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.Payment.Capture(paymentReference, int(amount), nil, nil)
	})
	if err != nil {
		return nil, err
	}

	g.log.Info("Capture requested",
		zap.String("payment_reference", paymentReference),
		zap.Int64("amount", amount),
	)

	return &CaptureResult{
		GatewayReference: paymentReference,
		Amount:           bodyAmount(body, amount),
		PayloadHash:      bodyHash(body),
	}, nil
}

func (g *razorpayGateway) Refund(ctx context.Context, paymentReference string, amount int64) (*RefundResult, error) {
	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.Payment.Refund(paymentReference, int(amount), nil, nil)
	})
	if err != nil {
		return nil, err
	}

	g.log.Info("Refund requested",
		zap.String("payment_reference", paymentReference),
		zap.Int64("amount", amount),
	)

	return &RefundResult{
		GatewayReference: paymentReference,
		Amount:           bodyAmount(body, amount),
		PayloadHash:      bodyHash(body),
	}, nil
}

// call runs an SDK request under the configured deadline. The SDK has no
// context support, so the call keeps running after a timeout; the result is
// discarded and the webhook path reports the true outcome later.
func (g *razorpayGateway) call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		body, err := fn()
		ch <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		g.log.Warn("Gateway call timed out", zap.Duration("timeout", g.timeout))
		return nil, ErrTimeout
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("gateway request: %w", res.err)
		}
		return res.body, nil
	}
}

func payloadHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func bodyHash(body map[string]interface{}) string {
	raw, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return payloadHash(raw)
}

func bodyAmount(body map[string]interface{}, fallback int64) int64 {
	if v, ok := body["amount"].(float64); ok {
		return int64(v)
	}
	return fallback
}
