package usecase

import (
	"context"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SweepService is the recovery job: a committed transition whose process
// died before dispatch leaves effect rows stuck in pending. The sweep
// re-dispatches them, and prunes idempotency records past the gateway's
// retry window.
type SweepService interface {
	Run(ctx context.Context)
	SweepOnce(ctx context.Context) error
}

type sweepService struct {
	repo          *repository.Repository
	dispatcher    DispatchService
	interval      time.Duration
	pendingAfter  time.Duration
	idemRetention time.Duration
	batchSize     int
	log           *zap.Logger
}

func NewSweepService(repo *repository.Repository, dispatcher DispatchService, config utils.SweepConfig, log *zap.Logger) SweepService {
	return &sweepService{
		repo:          repo,
		dispatcher:    dispatcher,
		interval:      time.Duration(config.IntervalMinutes) * time.Minute,
		pendingAfter:  time.Duration(config.PendingAfterSeconds) * time.Second,
		idemRetention: time.Duration(config.IdemRetentionDays) * 24 * time.Hour,
		batchSize:     100,
		log:           log.With(zap.String("service", "sweep")),
	}
}

// Run blocks until the context is cancelled.
func (s *sweepService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Recovery sweep started",
		zap.Duration("interval", s.interval),
		zap.Duration("pending_after", s.pendingAfter),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Recovery sweep stopped")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.log.Error("Sweep pass failed", zap.Error(err))
			}
		}
	}
}

func (s *sweepService) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.pendingAfter)

	effects, err := s.repo.Effect.FindPendingBefore(ctx, cutoff, s.batchSize)
	if err != nil {
		return err
	}

	if len(effects) > 0 {
		s.log.Warn("Re-dispatching stale effects",
			zap.Int("count", len(effects)),
			zap.Time("cutoff", cutoff),
		)

		byBooking := make(map[uuid.UUID][]*entity.Effect)
		for _, effect := range effects {
			byBooking[effect.BookingID] = append(byBooking[effect.BookingID], effect)
		}

		for bookingID, group := range byBooking {
			booking, err := s.repo.Booking.FindByID(ctx, bookingID)
			if err != nil || booking == nil {
				s.log.Error("Cannot load booking for stale effects",
					zap.Error(err),
					zap.String("booking_id", bookingID.String()),
				)
				continue
			}
			s.dispatcher.Dispatch(ctx, booking, group)
		}
	}

	pruned, err := s.repo.Idempotency.DeleteOlderThan(ctx, time.Now().Add(-s.idemRetention))
	if err != nil {
		return err
	}
	if pruned > 0 {
		s.log.Info("Pruned idempotency records", zap.Int64("count", pruned))
	}

	return nil
}
