package adaptor

import (
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/usecase"

	"go.uber.org/zap"
)

// Handler aggregates the HTTP handlers.
type Handler struct {
	Booking *BookingHandler
	Webhook *WebhookHandler
}

func NewHandler(service *usecase.Service, gw gateway.PaymentGateway, log *zap.Logger) *Handler {
	return &Handler{
		Booking: NewBookingHandler(service.Booking, log),
		Webhook: NewWebhookHandler(service.Payment, gw, log),
	}
}
