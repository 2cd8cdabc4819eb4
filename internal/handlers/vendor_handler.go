package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethive/internal/services"
	"tickethive/models"
)

type VendorHandler struct {
	auth     PrincipalResolver
	bookings *services.BookingService
}

func NewVendorHandler(resolver PrincipalResolver, bookings *services.BookingService) *VendorHandler {
	return &VendorHandler{auth: resolver, bookings: bookings}
}

func (h *VendorHandler) ListBookings(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	bookings, err := h.bookings.ListForVendor(e.Request.Context(), p)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": bookings})
}

// ModerateBooking - PATCH /api/v1/vendor/bookings/{bookingId}
func (h *VendorHandler) ModerateBooking(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	var req struct {
		Status models.BookingStatus `json:"status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if !req.Status.Valid() {
		return apis.NewBadRequestError("Unknown booking status", nil)
	}

	booking, err := h.bookings.ModerateBooking(e.Request.Context(), p, e.Request.PathValue("bookingId"), req.Status)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, booking)
}

func (h *VendorHandler) Revenue(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	rev, err := h.bookings.VendorRevenue(e.Request.Context(), p)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, rev)
}
