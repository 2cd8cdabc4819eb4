package status

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidRequest  = errors.New("invalid request")

	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
	ErrInvalidMetadata    = errors.New("payment: invalid session metadata")

	ErrInvalidTransition   = errors.New("booking: invalid status transition")
	ErrInvalidQuantity     = errors.New("booking: quantity must be positive")
	ErrInsufficientStock   = errors.New("booking: not enough tickets left")
	ErrTicketUnavailable   = errors.New("ticket: not available for booking")
	ErrAdvertiseCapReached = errors.New("ticket: advertise slots are full")
)
