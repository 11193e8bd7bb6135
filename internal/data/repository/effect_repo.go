package repository

import (
	"context"
	"fmt"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EffectRepository interface {
	CreateBatch(ctx context.Context, effects []*entity.Effect) error
	HasUnresolved(ctx context.Context, bookingID uuid.UUID, kind entity.EffectKind) (bool, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Effect, error)
	MarkDispatched(ctx context.Context, id uuid.UUID) error
	MarkResolved(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
}

type effectRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewEffectRepository(db database.PgxIface, log *zap.Logger) EffectRepository {
	return &effectRepository{
		db:  db,
		log: log.With(zap.String("repository", "effect")),
	}
}

func (r *effectRepository) CreateBatch(ctx context.Context, effects []*entity.Effect) error {
	if len(effects) == 0 {
		return nil
	}

	if err := insertEffects(ctx, r.db, effects); err != nil {
		r.log.Error("Failed to create effects",
			zap.Error(err),
			zap.Int("count", len(effects)),
		)
		return err
	}

	return nil
}

func (r *effectRepository) HasUnresolved(ctx context.Context, bookingID uuid.UUID, kind entity.EffectKind) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM effects
			WHERE booking_id = $1 AND kind = $2 AND status IN ($3, $4)
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, bookingID, kind, entity.EffectStatusPending, entity.EffectStatusDispatched).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check unresolved effects",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("kind", string(kind)),
		)
		return false, fmt.Errorf("check unresolved %s effects for booking %s: %w", kind, bookingID.String(), err)
	}

	return exists, nil
}

func (r *effectRepository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Effect, error) {
	query := `
		SELECT id, booking_id, kind, template, status, attempts, created_at, updated_at
		FROM effects
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, entity.EffectStatusPending, cutoff, limit)
	if err != nil {
		r.log.Error("Failed to find pending effects", zap.Error(err), zap.Time("cutoff", cutoff))
		return nil, fmt.Errorf("find pending effects before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var effects []*entity.Effect
	for rows.Next() {
		var effect entity.Effect
		err := rows.Scan(
			&effect.ID,
			&effect.BookingID,
			&effect.Kind,
			&effect.Template,
			&effect.Status,
			&effect.Attempts,
			&effect.CreatedAt,
			&effect.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan effect row", zap.Error(err))
			return nil, fmt.Errorf("scan effect row: %w", err)
		}
		effects = append(effects, &effect)
	}

	return effects, nil
}

func (r *effectRepository) MarkDispatched(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, entity.EffectStatusDispatched)
}

func (r *effectRepository) MarkResolved(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, entity.EffectStatusResolved)
}

func (r *effectRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, entity.EffectStatusFailed)
}

func (r *effectRepository) setStatus(ctx context.Context, id uuid.UUID, status entity.EffectStatus) error {
	query := `UPDATE effects SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.log.Error("Failed to update effect status",
			zap.Error(err),
			zap.String("effect_id", id.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update effect %s status to %s: %w", id.String(), string(status), err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("effect %s not found", id.String())
	}

	return nil
}

func (r *effectRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE effects SET attempts = attempts + 1, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.log.Error("Failed to increment effect attempts",
			zap.Error(err),
			zap.String("effect_id", id.String()),
		)
		return fmt.Errorf("increment attempts for effect %s: %w", id.String(), err)
	}

	return nil
}
