package usecase

import (
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/notify"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking   BookingService
	Payment   PaymentService
	Reconcile ReconcileService
	Dispatch  DispatchService
	Sweep     SweepService
}

func NewService(
	repo *repository.Repository,
	gw gateway.PaymentGateway,
	notifier notify.Notifier,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	engine := NewReconcileService(repo, config.Reconcile, log)
	dispatcher := NewDispatchService(repo, gw, notifier, engine, config.Sweep.NotifyRetries, log)

	return &Service{
		Reconcile: engine,
		Dispatch:  dispatcher,
		Booking:   NewBookingService(repo, engine, dispatcher, log),
		Payment:   NewPaymentService(repo, engine, dispatcher, log),
		Sweep:     NewSweepService(repo, dispatcher, config.Sweep, log),
	}
}
