package repository

import (
	"marketplace-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Booking     BookingRepository
	Effect      EffectRepository
	Idempotency IdempotencyRepository
	Customer    CustomerRepository
	Provider    ProviderRepository
	Service     ServiceOfferingRepository
	Event       EventRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Booking:     NewBookingRepository(db, log),
		Effect:      NewEffectRepository(db, log),
		Idempotency: NewIdempotencyRepository(db, log),
		Customer:    NewCustomerRepository(db, log),
		Provider:    NewProviderRepository(db, log),
		Service:     NewServiceOfferingRepository(db, log),
		Event:       NewEventRepository(db, log),
	}
}
