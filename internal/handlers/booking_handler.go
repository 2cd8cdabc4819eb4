package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethive/internal/services"
)

type BookingHandler struct {
	auth     PrincipalResolver
	bookings *services.BookingService
	payments *services.PaymentService
}

func NewBookingHandler(resolver PrincipalResolver, bookings *services.BookingService, payments *services.PaymentService) *BookingHandler {
	return &BookingHandler{
		auth:     resolver,
		bookings: bookings,
		payments: payments,
	}
}

// CreateBooking - POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	var req services.CreateBookingRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	booking, err := h.bookings.CreateBooking(e.Request.Context(), p, req)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusCreated, booking)
}

// ListBookings - GET /api/v1/bookings
func (h *BookingHandler) ListBookings(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	bookings, err := h.bookings.ListForUser(e.Request.Context(), p)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": bookings})
}

// StartCheckout - POST /api/v1/bookings/{bookingId}/checkout
func (h *BookingHandler) StartCheckout(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	res, err := h.payments.StartCheckout(e.Request.Context(), p, e.Request.PathValue("bookingId"))
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, res)
}
