package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleVendor, RoleAdmin:
		return r, true
	}
	return "", false
}

// BookingPaidEvent is published once a checkout session has been applied.
type BookingPaidEvent struct {
	Type        string          `json:"type"`
	SessionID   string          `json:"session_id"`
	BookingID   string          `json:"booking_id"`
	TicketID    string          `json:"ticket_id"`
	UserEmail   string          `json:"user_email"`
	VendorEmail string          `json:"vendor_email"`
	Title       string          `json:"title"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaidAt      time.Time       `json:"paid_at"`
}

const EventBookingPaid = "booking.paid"
