package usecase

import (
	"context"
	"fmt"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/dto/request"
	"marketplace-booking/internal/dto/response"
	"marketplace-booking/internal/notify"
	"marketplace-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, customerID string, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	GetCustomerBookings(ctx context.Context, customerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)

	// PerformAction runs an actor event (accept, decline, cancel, deliver)
	// through the reconcile engine and dispatches its side effects.
	PerformAction(ctx context.Context, bookingID string, action string) (*response.BookingResponse, error)
}

type bookingService struct {
	repo       *repository.Repository
	engine     ReconcileService
	dispatcher DispatchService
	log        *zap.Logger
}

func NewBookingService(repo *repository.Repository, engine ReconcileService, dispatcher DispatchService, log *zap.Logger) BookingService {
	return &bookingService{
		repo:       repo,
		engine:     engine,
		dispatcher: dispatcher,
		log:        log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, customerID string, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	customerUUID, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer ID format %s: %w", customerID, err)
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("invalid service ID format %s: %w", req.ServiceID, err)
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return nil, fmt.Errorf("invalid event ID format %s: %w", req.EventID, err)
	}

	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("invalid slot: end time must come after start time")
	}
	if req.StartTime.Before(time.Now()) {
		return nil, fmt.Errorf("cannot book a slot in the past")
	}

	offering, err := s.repo.Service.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("find service offering %s: %w", req.ServiceID, err)
	}
	if offering == nil {
		return nil, fmt.Errorf("service offering %s not found", req.ServiceID)
	}

	event, err := s.repo.Event.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("find event %s: %w", req.EventID, err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %s not found", req.EventID)
	}

	now := time.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Reference:     utils.GenerateReference(),
		CustomerID:    customerUUID,
		ServiceID:     serviceID,
		EventID:       eventID,
		Status:        entity.BookingStatusPending,
		PaymentStatus: entity.PaymentStatusUnpaid,
		Amount:        offering.Price,
		Currency:      offering.Currency,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Version:       0,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("customer_id", customerID),
			zap.String("service_id", req.ServiceID),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	// Tell the provider there is a new request to accept or decline.
	effects := buildEffects(booking.ID, []EffectPlan{
		notifyPlan(notify.TemplateBookingRequested),
	}, now)
	if err := s.repo.Effect.CreateBatch(ctx, effects); err != nil {
		s.log.Error("Failed to record booking request notification",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
	} else {
		s.dispatcher.Dispatch(ctx, booking, effects)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference", booking.Reference),
		zap.String("customer_id", customerID),
		zap.Int64("amount", booking.Amount),
		zap.String("currency", booking.Currency),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, bookingID)
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetCustomerBookings(ctx context.Context, customerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	customerUUID, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer ID format %s: %w", customerID, err)
	}

	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByCustomerID(ctx, customerUUID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get customer bookings",
			zap.Error(err),
			zap.String("customer_id", customerID),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, fmt.Errorf("get customer bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByCustomerID(ctx, customerUUID)
	if err != nil {
		s.log.Error("Failed to count customer bookings", zap.Error(err))
		return nil, fmt.Errorf("count customer bookings: %w", err)
	}

	bookingResponses := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		bookingResponses[i] = response.BookingToResponse(booking)
	}

	return response.NewPaginatedResponse(bookingResponses, req.Page, req.PerPage, total), nil
}

func (s *bookingService) PerformAction(ctx context.Context, bookingID string, action string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	kind, err := actionToEvent(action)
	if err != nil {
		return nil, err
	}

	outcome, err := s.engine.Apply(ctx, id, Event{Kind: kind})
	if err != nil {
		return nil, err
	}

	if outcome.Applied && len(outcome.Effects) > 0 {
		s.dispatcher.Dispatch(ctx, outcome.Booking, outcome.Effects)
	}

	resp := response.BookingToResponse(outcome.Booking)
	return &resp, nil
}

func actionToEvent(action string) (EventKind, error) {
	switch action {
	case "accept":
		return EventAccept, nil
	case "decline":
		return EventDecline, nil
	case "cancel":
		return EventCancel, nil
	case "deliver":
		return EventMarkDelivered, nil
	default:
		return "", fmt.Errorf("invalid action %q", action)
	}
}
