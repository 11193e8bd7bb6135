package wire

import (
	"marketplace-booking/internal/adaptor"
	"marketplace-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireWebhook(
	r chi.Router,
	webhookHandler *adaptor.WebhookHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// The gateway authenticates with its signature, not an actor identity.

	// POST /api/webhooks/payment - Payment gateway event delivery
	r.Post("/api/webhooks/payment", webhookHandler.HandlePaymentWebhook)
}
