package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethive/internal/services"
)

type PaymentHandler struct {
	auth       PrincipalResolver
	reconciler *services.ReconcileService
	bookings   *services.BookingService
}

func NewPaymentHandler(resolver PrincipalResolver, reconciler *services.ReconcileService, bookings *services.BookingService) *PaymentHandler {
	return &PaymentHandler{
		auth:       resolver,
		reconciler: reconciler,
		bookings:   bookings,
	}
}

type ReconcileRequest struct {
	SessionID string `json:"session_id"`
}

// Reconcile - POST /api/v1/payments/reconcile
//
// Called by the purchaser's browser after the gateway redirect. Unpaid
// sessions answer 200 with success=false.
func (h *PaymentHandler) Reconcile(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	var req ReconcileRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.SessionID == "" {
		return apis.NewBadRequestError("session_id is required", nil)
	}

	res, err := h.reconciler.Reconcile(e.Request.Context(), req.SessionID)
	if err != nil {
		slog.Warn("reconcile request failed", "session_id", req.SessionID, "caller", p.Email, "error", err)
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, res)
}

// History - GET /api/v1/payments/history
func (h *PaymentHandler) History(e *core.RequestEvent) error {
	p, err := principal(e, h.auth)
	if err != nil {
		return err
	}

	txs, err := h.bookings.PaymentHistory(e.Request.Context(), p)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": txs})
}
