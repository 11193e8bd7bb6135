package request

import "time"

type CreateBookingRequest struct {
	ServiceID string    `json:"service_id" validate:"required,uuid4"`
	EventID   string    `json:"event_id" validate:"required,uuid4"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}
