package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethive/internal/services"
	"tickethive/models"
)

type AdminHandler struct {
	auth    PrincipalResolver
	tickets *services.TicketService
}

func NewAdminHandler(resolver PrincipalResolver, tickets *services.TicketService) *AdminHandler {
	return &AdminHandler{auth: resolver, tickets: tickets}
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetVerification - PATCH /api/v1/admin/tickets/{ticketId}/verification
func (h *AdminHandler) SetVerification(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	to := models.VerificationStatus(req.Status)
	if !to.Valid() {
		return apis.NewBadRequestError("Unknown verification status", nil)
	}

	ticket, err := h.tickets.SetVerification(e.Request.Context(), p, e.Request.PathValue("ticketId"), to)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}

// SetAdvertise - PATCH /api/v1/admin/tickets/{ticketId}/advertise
func (h *AdminHandler) SetAdvertise(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	to := models.AdvertiseStatus(req.Status)
	if !to.Valid() {
		return apis.NewBadRequestError("Unknown advertise status", nil)
	}

	ticket, err := h.tickets.SetAdvertise(e.Request.Context(), p, e.Request.PathValue("ticketId"), to)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}

// SetFraud - PATCH /api/v1/admin/tickets/{ticketId}/fraud
func (h *AdminHandler) SetFraud(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	var req struct {
		Hidden *bool `json:"hide_for_fraud"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Hidden == nil {
		return apis.NewBadRequestError("hide_for_fraud is required", nil)
	}

	ticket, err := h.tickets.SetFraud(e.Request.Context(), p, e.Request.PathValue("ticketId"), *req.Hidden)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}
