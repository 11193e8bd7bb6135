package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DispatchService fires committed side effects. Effects are independent of
// each other and of the booking row: a downstream failure here is logged or
// fed back as a synthetic gateway event, never rolled back into state.
type DispatchService interface {
	Dispatch(ctx context.Context, booking *entity.Booking, effects []*entity.Effect)
}

type dispatchService struct {
	repo          *repository.Repository
	gateway       gateway.PaymentGateway
	notifier      notify.Notifier
	engine        ReconcileService
	notifyRetries int
	log           *zap.Logger
}

func NewDispatchService(
	repo *repository.Repository,
	gw gateway.PaymentGateway,
	notifier notify.Notifier,
	engine ReconcileService,
	notifyRetries int,
	log *zap.Logger,
) DispatchService {
	return &dispatchService{
		repo:          repo,
		gateway:       gw,
		notifier:      notifier,
		engine:        engine,
		notifyRetries: notifyRetries,
		log:           log.With(zap.String("service", "dispatch")),
	}
}

func (s *dispatchService) Dispatch(ctx context.Context, booking *entity.Booking, effects []*entity.Effect) {
	for _, effect := range effects {
		switch effect.Kind {
		case entity.EffectRequestCapture:
			s.dispatchCapture(ctx, booking, effect)
		case entity.EffectRequestRefund:
			s.dispatchRefund(ctx, booking, effect)
		case entity.EffectNotify:
			s.dispatchNotify(ctx, booking, effect)
		default:
			s.log.Error("Unknown effect kind",
				zap.String("effect_id", effect.ID.String()),
				zap.String("kind", string(effect.Kind)),
			)
		}
	}
}

func (s *dispatchService) dispatchCapture(ctx context.Context, booking *entity.Booking, effect *entity.Effect) {
	if booking.PaymentReference == nil {
		s.log.Error("Capture requested without payment reference",
			zap.String("booking_id", booking.ID.String()),
		)
		s.markEffect(ctx, effect, s.repo.Effect.MarkFailed)
		return
	}
	ref := *booking.PaymentReference

	if err := s.repo.Effect.IncrementAttempts(ctx, effect.ID); err != nil {
		s.log.Warn("Failed to count capture attempt", zap.Error(err))
	}

	result, err := s.gateway.Capture(ctx, ref, booking.Amount)
	switch {
	case errors.Is(err, gateway.ErrTimeout):
		// Indeterminate outcome: no synthetic event. The request row stays
		// unresolved so the gateway's own webhook settles it either way.
		s.markEffect(ctx, effect, s.repo.Effect.MarkDispatched)
		s.log.Warn("Capture outcome indeterminate, waiting for webhook",
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_reference", ref),
		)

	case err != nil:
		s.markEffect(ctx, effect, s.repo.Effect.MarkDispatched)
		s.log.Warn("Capture request failed",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_reference", ref),
		)
		s.feedback(ctx, booking.ID, Event{
			Kind:             EventCaptureFailed,
			GatewayReference: ref,
			PayloadHash:      syntheticHash("capture_failed", ref, err),
		})

	default:
		// Provisionally successful; the same outcome arriving later via
		// webhook collapses into this application through the dedup key.
		s.markEffect(ctx, effect, s.repo.Effect.MarkDispatched)
		s.feedback(ctx, booking.ID, Event{
			Kind:             EventCaptureSucceeded,
			GatewayReference: result.GatewayReference,
			Amount:           result.Amount,
			PayloadHash:      result.PayloadHash,
		})
	}
}

func (s *dispatchService) dispatchRefund(ctx context.Context, booking *entity.Booking, effect *entity.Effect) {
	if booking.PaymentReference == nil {
		s.log.Error("Refund requested without payment reference",
			zap.String("booking_id", booking.ID.String()),
		)
		s.markEffect(ctx, effect, s.repo.Effect.MarkFailed)
		return
	}
	ref := *booking.PaymentReference

	if err := s.repo.Effect.IncrementAttempts(ctx, effect.ID); err != nil {
		s.log.Warn("Failed to count refund attempt", zap.Error(err))
	}

	result, err := s.gateway.Refund(ctx, ref, booking.Amount)
	switch {
	case errors.Is(err, gateway.ErrTimeout):
		s.markEffect(ctx, effect, s.repo.Effect.MarkDispatched)
		s.log.Warn("Refund outcome indeterminate, waiting for webhook",
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_reference", ref),
		)

	case err != nil:
		s.markEffect(ctx, effect, s.repo.Effect.MarkDispatched)
		s.log.Warn("Refund request failed",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_reference", ref),
		)
		s.feedback(ctx, booking.ID, Event{
			Kind:             EventRefundFailed,
			GatewayReference: ref,
			PayloadHash:      syntheticHash("refund_failed", ref, err),
		})

	default:
		s.markEffect(ctx, effect, s.repo.Effect.MarkDispatched)
		s.feedback(ctx, booking.ID, Event{
			Kind:             EventRefundSucceeded,
			GatewayReference: result.GatewayReference,
			Amount:           result.Amount,
			PayloadHash:      result.PayloadHash,
		})
	}
}

func (s *dispatchService) dispatchNotify(ctx context.Context, booking *entity.Booking, effect *entity.Effect) {
	msg, err := s.buildMessage(ctx, booking, effect)
	if err != nil {
		s.log.Error("Failed to build notification",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("effect_id", effect.ID.String()),
		)
		s.markEffect(ctx, effect, s.repo.Effect.MarkFailed)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= s.notifyRetries; attempt++ {
		if err := s.repo.Effect.IncrementAttempts(ctx, effect.ID); err != nil {
			s.log.Warn("Failed to count notify attempt", zap.Error(err))
		}
		if lastErr = s.notifier.Send(ctx, *msg); lastErr == nil {
			s.markEffect(ctx, effect, s.repo.Effect.MarkResolved)
			return
		}
	}

	// Best effort only: the booking state stays as committed.
	s.log.Error("Notification delivery gave up",
		zap.Error(lastErr),
		zap.String("booking_id", booking.ID.String()),
		zap.String("template", string(msg.Template)),
		zap.Int("retries", s.notifyRetries),
	)
	s.markEffect(ctx, effect, s.repo.Effect.MarkFailed)
}

func (s *dispatchService) buildMessage(ctx context.Context, booking *entity.Booking, effect *entity.Effect) (*notify.Message, error) {
	if effect.Template == nil {
		return nil, fmt.Errorf("notify effect %s has no template", effect.ID.String())
	}
	template := notify.TemplateKind(*effect.Template)

	offering, err := s.repo.Service.FindByID(ctx, booking.ServiceID)
	if err != nil {
		return nil, err
	}
	if offering == nil {
		return nil, fmt.Errorf("service offering %s not found", booking.ServiceID.String())
	}

	msgContext := map[string]string{
		"reference": booking.Reference,
		"service":   offering.Name,
		"amount":    fmt.Sprintf("%.2f %s", float64(booking.Amount)/100, booking.Currency),
	}
	if event, err := s.repo.Event.FindByID(ctx, booking.EventID); err == nil && event != nil {
		msgContext["event"] = event.Title
	}

	msg := &notify.Message{Template: template, Context: msgContext}

	// New-request notifications go to the provider; everything else goes to
	// the customer.
	if template == notify.TemplateBookingRequested {
		provider, err := s.repo.Provider.FindByID(ctx, offering.ProviderID)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, fmt.Errorf("provider %s not found", offering.ProviderID.String())
		}
		msg.To = provider.Email
		msg.ToName = provider.Name
		return msg, nil
	}

	customer, err := s.repo.Customer.FindByID(ctx, booking.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %s not found", booking.CustomerID.String())
	}
	msg.To = customer.Email
	msg.ToName = customer.Name
	return msg, nil
}

// feedback routes a synthetic or provisional gateway event back through the
// engine and dispatches whatever that application implies.
func (s *dispatchService) feedback(ctx context.Context, bookingID uuid.UUID, event Event) {
	outcome, err := s.engine.Apply(ctx, bookingID, event)
	if err != nil {
		s.log.Error("Failed to apply gateway feedback event",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("event", string(event.Kind)),
		)
		return
	}
	if outcome.Applied && len(outcome.Effects) > 0 {
		s.Dispatch(ctx, outcome.Booking, outcome.Effects)
	}
}

func (s *dispatchService) markEffect(ctx context.Context, effect *entity.Effect, mark func(context.Context, uuid.UUID) error) {
	if err := mark(ctx, effect.ID); err != nil {
		s.log.Warn("Failed to update effect status",
			zap.Error(err),
			zap.String("effect_id", effect.ID.String()),
		)
	}
}

func syntheticHash(kind, ref string, err error) string {
	sum := sha256.Sum256([]byte(kind + ":" + ref + ":" + err.Error()))
	return hex.EncodeToString(sum[:])
}
