package repository

import (
	"context"
	"fmt"
	"time"

	"marketplace-booking/pkg/database"

	"go.uber.org/zap"
)

type IdempotencyRepository interface {
	Exists(ctx context.Context, key string) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type idempotencyRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewIdempotencyRepository(db database.PgxIface, log *zap.Logger) IdempotencyRepository {
	return &idempotencyRepository{
		db:  db,
		log: log.With(zap.String("repository", "idempotency")),
	}
}

func (r *idempotencyRepository) Exists(ctx context.Context, key string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM idempotency_records WHERE key = $1)`

	var exists bool
	err := r.db.QueryRow(ctx, query, key).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check idempotency key", zap.Error(err), zap.String("key", key))
		return false, fmt.Errorf("check idempotency key %s: %w", key, err)
	}

	return exists, nil
}

// DeleteOlderThan prunes records past the gateway's documented retry window.
func (r *idempotencyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM idempotency_records WHERE created_at < $1`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		r.log.Error("Failed to prune idempotency records", zap.Error(err), zap.Time("cutoff", cutoff))
		return 0, fmt.Errorf("prune idempotency records before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	return tag.RowsAffected(), nil
}
