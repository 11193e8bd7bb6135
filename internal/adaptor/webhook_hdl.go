package adaptor

import (
	"errors"
	"io"
	"net/http"

	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/usecase"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

const signatureHeader = "X-Razorpay-Signature"

// maxWebhookBody caps the payload read from the gateway.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	service usecase.PaymentService
	gateway gateway.PaymentGateway
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.PaymentService, gw gateway.PaymentGateway, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		gateway: gw,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// HandlePaymentWebhook handles POST /api/webhooks/payment. The gateway
// retries on any non-2xx response, so indeterminate outcomes (unknown
// booking, stale version) answer 400 to get the delivery retried, while
// duplicates answer 200 to stop redelivery.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Failed to read request body", nil)
		return
	}

	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		h.log.Warn("Webhook rejected - missing signature")
		utils.ResponseBadRequest(w, "Missing signature", nil)
		return
	}

	event, err := h.gateway.VerifyWebhook(body, signature)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrBadSignature):
			h.log.Warn("Webhook rejected - bad signature")
			utils.ResponseBadRequest(w, "Invalid signature", nil)
		case errors.Is(err, gateway.ErrUnsupportedEvent):
			// Acknowledge event types we do not consume so the gateway
			// stops redelivering them.
			utils.ResponseSuccess(w, "ignored", nil)
		default:
			h.log.Warn("Webhook rejected - malformed payload", zap.Error(err))
			utils.ResponseBadRequest(w, "Malformed payload", nil)
		}
		return
	}

	booking, applied, err := h.service.HandleGatewayEvent(r.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			h.log.Warn("Webhook rejected - unknown booking",
				zap.String("gateway_reference", event.GatewayReference))
			utils.ResponseBadRequest(w, "Unknown booking", nil)
		case errors.Is(err, usecase.ErrInvalidTransition):
			h.log.Warn("Webhook rejected - invalid transition",
				zap.String("kind", string(event.Kind)),
				zap.String("gateway_reference", event.GatewayReference))
			utils.ResponseBadRequest(w, "Event not applicable", nil)
		case errors.Is(err, usecase.ErrConflict):
			h.log.Warn("Webhook deferred - version conflict",
				zap.String("gateway_reference", event.GatewayReference))
			utils.ResponseBadRequest(w, "Conflict, retry later", nil)
		default:
			h.log.Error("Failed to handle webhook", zap.Error(err))
			utils.ResponseInternalError(w, "Internal server error")
		}
		return
	}

	if !applied {
		utils.ResponseSuccess(w, "duplicate", nil)
		return
	}

	h.log.Info("Webhook applied",
		zap.String("kind", string(event.Kind)),
		zap.String("booking_id", booking.ID.String()),
		zap.Int64("version", booking.Version))
	utils.ResponseSuccess(w, "applied", nil)
}
