package response

import (
	"time"

	"marketplace-booking/internal/data/entity"
)

type BookingResponse struct {
	ID               string               `json:"id"`
	Reference        string               `json:"reference"`
	CustomerID       string               `json:"customer_id"`
	ServiceID        string               `json:"service_id"`
	EventID          string               `json:"event_id"`
	Status           entity.BookingStatus `json:"status"`
	PaymentStatus    entity.PaymentStatus `json:"payment_status"`
	PaymentReference *string              `json:"payment_reference,omitempty"`
	Amount           int64                `json:"amount"`
	Currency         string               `json:"currency"`
	StartTime        time.Time            `json:"start_time"`
	EndTime          time.Time            `json:"end_time"`
	Version          int64                `json:"version"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

func BookingToResponse(booking *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:               booking.ID.String(),
		Reference:        booking.Reference,
		CustomerID:       booking.CustomerID.String(),
		ServiceID:        booking.ServiceID.String(),
		EventID:          booking.EventID.String(),
		Status:           booking.Status,
		PaymentStatus:    booking.PaymentStatus,
		PaymentReference: booking.PaymentReference,
		Amount:           booking.Amount,
		Currency:         booking.Currency,
		StartTime:        booking.StartTime,
		EndTime:          booking.EndTime,
		Version:          booking.Version,
		CreatedAt:        booking.CreatedAt,
		UpdatedAt:        booking.UpdatedAt,
	}
}
