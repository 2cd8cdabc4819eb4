// Package gateway wraps the external payment gateway behind the two calls the
// booking flow needs: opening a checkout session and reading it back.
package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tickethive/internal/status"
)

type PaymentStatus string

const (
	PaymentPaid              PaymentStatus = "paid"
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentNoPaymentRequired PaymentStatus = "no_payment_required"
)

// Metadata keys carried on every checkout session.
const (
	MetaTicketID  = "ticketId"
	MetaBookingID = "bookingId"
	MetaQuantity  = "quantity"
	MetaTitle     = "title"
)

// Metadata identifies the booking a session pays for. It is the only link
// from a session back to our records, so it must survive the round trip.
type Metadata struct {
	TicketID  string
	BookingID string
	Quantity  int
	Title     string
}

func (m Metadata) Values() map[string]string {
	return map[string]string{
		MetaTicketID:  m.TicketID,
		MetaBookingID: m.BookingID,
		MetaQuantity:  strconv.Itoa(m.Quantity),
		MetaTitle:     m.Title,
	}
}

func ParseMetadata(values map[string]string) (Metadata, error) {
	m := Metadata{
		TicketID:  values[MetaTicketID],
		BookingID: values[MetaBookingID],
		Title:     values[MetaTitle],
	}
	if m.BookingID == "" || m.TicketID == "" {
		return m, fmt.Errorf("missing booking or ticket id: %w", status.ErrInvalidMetadata)
	}

	q, err := strconv.Atoi(strings.TrimSpace(values[MetaQuantity]))
	if err != nil || q <= 0 {
		return m, fmt.Errorf("quantity %q: %w", values[MetaQuantity], status.ErrInvalidMetadata)
	}
	m.Quantity = q
	return m, nil
}

type CheckoutRequest struct {
	Title         string
	Currency      string
	AmountMinor   int64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	ExpiresAt     time.Time
	Metadata      Metadata
}

type Session struct {
	ID            string
	URL           string
	PaymentStatus PaymentStatus
	AmountTotal   int64 // minor units
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
}

func (s *Session) Paid() bool {
	return s.PaymentStatus == PaymentPaid
}

// Amount is the session total in major currency units.
func (s *Session) Amount() decimal.Decimal {
	return decimal.NewFromInt(s.AmountTotal).Shift(-2)
}

// Provider is a payment gateway client.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*Session, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*Session, error)
}
