package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethive/internal/auth"
	"tickethive/internal/status"
	"tickethive/security"
)

// PrincipalResolver identifies the caller of a request.
type PrincipalResolver interface {
	Principal(e *core.RequestEvent) (*auth.Principal, error)
}

func principal(e *core.RequestEvent, r PrincipalResolver) (*auth.Principal, error) {
	p, err := r.Principal(e)
	if err != nil {
		return nil, toAPIError(err)
	}
	return p, nil
}

// PrincipalKey counts rate limits per authenticated caller, falling back to
// the client address for anonymous requests.
func PrincipalKey(r PrincipalResolver) security.KeyFunc {
	return func(e *core.RequestEvent) string {
		if p, err := r.Principal(e); err == nil {
			return "user:" + p.Email
		}
		return "ip:" + e.RealIP()
	}
}

// toAPIError maps domain errors to HTTP responses. Anything unrecognised is
// logged and reported as a 500.
func toAPIError(err error) error {
	switch {
	case errors.Is(err, status.ErrUnauthenticated):
		return apis.NewUnauthorizedError("Unauthorized", nil)
	case errors.Is(err, status.ErrForbidden):
		return apis.NewForbiddenError("Access denied", nil)
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError("Not found", nil)
	case errors.Is(err, status.ErrInvalidQuantity),
		errors.Is(err, status.ErrInsufficientStock),
		errors.Is(err, status.ErrTicketUnavailable),
		errors.Is(err, status.ErrInvalidMetadata),
		errors.Is(err, status.ErrInvalidRequest):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrInvalidTransition),
		errors.Is(err, status.ErrAdvertiseCapReached):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)
	case errors.Is(err, status.ErrGatewayUnavailable):
		return apis.NewApiError(http.StatusServiceUnavailable, "Payment gateway unavailable, try again later", nil)
	}

	slog.Error("unhandled request error", "error", err)
	return apis.NewInternalServerError("internal error", nil)
}
