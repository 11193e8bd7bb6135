package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ServiceOfferingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOffering, error)
}

type serviceOfferingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewServiceOfferingRepository(db database.PgxIface, log *zap.Logger) ServiceOfferingRepository {
	return &serviceOfferingRepository{
		db:  db,
		log: log.With(zap.String("repository", "service_offering")),
	}
}

func (r *serviceOfferingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOffering, error) {
	query := `
		SELECT id, provider_id, name, price, currency, created_at, updated_at
		FROM service_offerings
		WHERE id = $1
	`

	var offering entity.ServiceOffering
	err := r.db.QueryRow(ctx, query, id).Scan(
		&offering.ID,
		&offering.ProviderID,
		&offering.Name,
		&offering.Price,
		&offering.Currency,
		&offering.CreatedAt,
		&offering.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find service offering by ID",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return nil, fmt.Errorf("find service offering by ID %s: %w", id.String(), err)
	}

	return &offering, nil
}
