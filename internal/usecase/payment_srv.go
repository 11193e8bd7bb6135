package usecase

import (
	"context"
	"fmt"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/gateway"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService turns verified gateway events into reconciled booking
// transitions.
type PaymentService interface {
	// HandleGatewayEvent resolves the booking for a verified event and runs
	// it through the engine. applied=false means the event was a duplicate.
	HandleGatewayEvent(ctx context.Context, event *gateway.PaymentEvent) (booking *entity.Booking, applied bool, err error)
}

type paymentService struct {
	repo       *repository.Repository
	engine     ReconcileService
	dispatcher DispatchService
	log        *zap.Logger
}

func NewPaymentService(repo *repository.Repository, engine ReconcileService, dispatcher DispatchService, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:       repo,
		engine:     engine,
		dispatcher: dispatcher,
		log:        log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) HandleGatewayEvent(ctx context.Context, event *gateway.PaymentEvent) (*entity.Booking, bool, error) {
	booking, err := s.resolveBooking(ctx, event)
	if err != nil {
		return nil, false, err
	}

	kind, err := mapGatewayKind(event.Kind)
	if err != nil {
		return nil, false, err
	}

	outcome, err := s.engine.Apply(ctx, booking.ID, Event{
		Kind:             kind,
		GatewayReference: event.GatewayReference,
		Amount:           event.Amount,
		PayloadHash:      event.PayloadHash,
	})
	if err != nil {
		return nil, false, err
	}

	if outcome.Applied && len(outcome.Effects) > 0 {
		s.dispatcher.Dispatch(ctx, outcome.Booking, outcome.Effects)
	}

	return outcome.Booking, outcome.Applied, nil
}

// resolveBooking finds the booking a gateway event belongs to: through the
// checkout notes on authorization events, through the stored payment
// reference afterwards.
func (s *paymentService) resolveBooking(ctx context.Context, event *gateway.PaymentEvent) (*entity.Booking, error) {
	if event.BookingID != "" {
		bookingID, err := uuid.Parse(event.BookingID)
		if err != nil {
			return nil, fmt.Errorf("invalid booking ID in gateway event %s: %w", event.BookingID, err)
		}
		booking, err := s.repo.Booking.FindByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if booking != nil {
			return booking, nil
		}
	}

	booking, err := s.repo.Booking.FindByPaymentReference(ctx, event.GatewayReference)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		s.log.Warn("Gateway event for unknown booking",
			zap.String("gateway_reference", event.GatewayReference),
			zap.String("event", string(event.Kind)),
		)
		return nil, fmt.Errorf("%w: payment reference %s", ErrNotFound, event.GatewayReference)
	}

	return booking, nil
}

func mapGatewayKind(kind gateway.EventKind) (EventKind, error) {
	switch kind {
	case gateway.EventPaymentAuthorized:
		return EventPaymentAuthorized, nil
	case gateway.EventCaptureSucceeded:
		return EventCaptureSucceeded, nil
	case gateway.EventCaptureFailed:
		return EventCaptureFailed, nil
	case gateway.EventRefundSucceeded:
		return EventRefundSucceeded, nil
	case gateway.EventRefundFailed:
		return EventRefundFailed, nil
	default:
		return "", fmt.Errorf("%w: %s", gateway.ErrUnsupportedEvent, kind)
	}
}
