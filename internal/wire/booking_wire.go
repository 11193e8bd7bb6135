package wire

import (
	"marketplace-booking/internal/adaptor"
	"marketplace-booking/pkg/middleware"
	"marketplace-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require actor identity) ====================
	// Identity is established upstream; the Actor middleware only reads it.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Actor(log))

		// POST /api/bookings - Create new booking (customer)
		r.Post("/api/bookings", bookingHandler.CreateBooking)

		// GET /api/bookings/{id} - View booking details
		r.Get("/api/bookings/{id}", bookingHandler.GetBooking)

		// GET /api/customers/{id}/bookings - View a customer's booking history
		r.Get("/api/customers/{id}/bookings", bookingHandler.GetCustomerBookings)

		// POST /api/bookings/{id}/{action} - accept, decline, cancel, deliver
		r.Post("/api/bookings/{id}/{action}", bookingHandler.PerformAction)
	})
}
