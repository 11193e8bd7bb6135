package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/pkg/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApplyOutcome is the result of one reconciled event. Applied is false when
// the event was deduplicated; Effects are the rows this application inserted
// and still need dispatching.
type ApplyOutcome struct {
	Booking *entity.Booking
	Applied bool
	Effects []*entity.Effect
}

// ReconcileService owns every mutation of a booking: it loads the current
// row, runs the state machine, and persists the result under the optimistic
// version check. Lost races are retried from the load step up to the
// configured bound.
type ReconcileService interface {
	Apply(ctx context.Context, bookingID uuid.UUID, event Event) (*ApplyOutcome, error)
}

type reconcileService struct {
	repo   *repository.Repository
	config utils.ReconcileConfig
	log    *zap.Logger
}

func NewReconcileService(repo *repository.Repository, config utils.ReconcileConfig, log *zap.Logger) ReconcileService {
	return &reconcileService{
		repo:   repo,
		config: config,
		log:    log.With(zap.String("service", "reconcile")),
	}
}

func (s *reconcileService) Apply(ctx context.Context, bookingID uuid.UUID, event Event) (*ApplyOutcome, error) {
	// Fast path for redelivered gateway events: skip the state machine and
	// the write entirely.
	if event.Kind.IsGatewayEvent() {
		exists, err := s.repo.Idempotency.Exists(ctx, event.DedupKey())
		if err != nil {
			return nil, err
		}
		if exists {
			booking, err := s.repo.Booking.FindByID(ctx, bookingID)
			if err != nil {
				return nil, err
			}
			if booking == nil {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, bookingID.String())
			}
			s.log.Info("Duplicate gateway event ignored",
				zap.String("booking_id", bookingID.String()),
				zap.String("event", string(event.Kind)),
				zap.String("dedup_key", event.DedupKey()),
			)
			return &ApplyOutcome{Booking: booking, Applied: false}, nil
		}
	}

	var outcome *ApplyOutcome

	operation := func() error {
		result, err := s.applyOnce(ctx, bookingID, event)
		if err != nil {
			if errors.Is(err, errVersionMismatch) {
				return err
			}
			return backoff.Permanent(err)
		}
		outcome = result
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(s.config.BackoffMillis) * time.Millisecond

	attempts := s.config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx))
	if err != nil {
		if errors.Is(err, errVersionMismatch) {
			s.log.Warn("Apply gave up after repeated version conflicts",
				zap.String("booking_id", bookingID.String()),
				zap.String("event", string(event.Kind)),
				zap.Int("attempts", attempts),
			)
			return nil, fmt.Errorf("%w: booking %s, event %s", ErrConflict, bookingID.String(), event.Kind)
		}
		return nil, err
	}

	return outcome, nil
}

func (s *reconcileService) applyOnce(ctx context.Context, bookingID uuid.UUID, event Event) (*ApplyOutcome, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, bookingID.String())
	}

	captureInFlight, err := s.repo.Effect.HasUnresolved(ctx, booking.ID, entity.EffectRequestCapture)
	if err != nil {
		return nil, err
	}

	snapshot := Snapshot{
		Status:          booking.Status,
		Payment:         booking.PaymentStatus,
		Amount:          booking.Amount,
		CaptureInFlight: captureInFlight,
	}

	outcome, err := Decide(snapshot, event)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	effects := buildEffects(booking.ID, outcome.Effects, now)

	// An accepted event that changes nothing on the booking row (a delivery
	// mark, or a gateway failure landing on an already-failed payment) keeps
	// the version so the next settlement write is its only bump. It still
	// commits through the transactional write: the idempotency record,
	// in-flight resolution and effect rows must land together.
	updated := *booking
	updated.Status = outcome.Status
	updated.PaymentStatus = outcome.Payment
	updated.UpdatedAt = now
	if outcome.Changed(snapshot) {
		updated.Version = booking.Version + 1
	}
	if event.GatewayReference != "" && updated.PaymentReference == nil {
		ref := event.GatewayReference
		updated.PaymentReference = &ref
	}

	write := repository.TransitionWrite{
		Booking:         &updated,
		ExpectedVersion: booking.Version,
		Effects:         effects,
	}

	if event.Kind.IsGatewayEvent() {
		write.Idempotency = &entity.IdempotencyRecord{
			Key:              event.DedupKey(),
			GatewayReference: event.GatewayReference,
			Kind:             string(event.Kind),
			PayloadHash:      event.PayloadHash,
			CreatedAt:        now,
		}
	}

	switch event.Kind {
	case EventCaptureSucceeded, EventCaptureFailed:
		write.ResolveKinds = []entity.EffectKind{entity.EffectRequestCapture}
	case EventRefundSucceeded, EventRefundFailed:
		write.ResolveKinds = []entity.EffectKind{entity.EffectRequestRefund}
	}

	committed, duplicate, err := s.repo.Booking.CommitTransition(ctx, write)
	if err != nil {
		return nil, err
	}
	if duplicate {
		s.log.Info("Gateway event already applied",
			zap.String("booking_id", booking.ID.String()),
			zap.String("dedup_key", event.DedupKey()),
		)
		return &ApplyOutcome{Booking: booking, Applied: false}, nil
	}
	if !committed {
		return nil, errVersionMismatch
	}

	s.log.Info("Booking transition applied",
		zap.String("booking_id", booking.ID.String()),
		zap.String("event", string(event.Kind)),
		zap.String("from_status", string(snapshot.Status)),
		zap.String("to_status", string(updated.Status)),
		zap.String("from_payment", string(snapshot.Payment)),
		zap.String("to_payment", string(updated.PaymentStatus)),
		zap.Int64("version", updated.Version),
	)

	return &ApplyOutcome{Booking: &updated, Applied: true, Effects: effects}, nil
}

func buildEffects(bookingID uuid.UUID, plans []EffectPlan, now time.Time) []*entity.Effect {
	effects := make([]*entity.Effect, 0, len(plans))
	for _, plan := range plans {
		effect := &entity.Effect{
			ID:        uuid.New(),
			BookingID: bookingID,
			Kind:      plan.Kind,
			Status:    entity.EffectStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if plan.Template != "" {
			template := string(plan.Template)
			effect.Template = &template
		}
		effects = append(effects, effect)
	}
	return effects
}
