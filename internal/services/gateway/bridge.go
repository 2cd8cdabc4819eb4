package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tickethive/internal/status"
	"tickethive/models"
	"tickethive/monitoring"
	"tickethive/utils"
)

// MinSessionTTL is the shortest expiry the gateway accepts for a session.
const MinSessionTTL = 30 * time.Minute

type Config struct {
	Currency     string
	ClientDomain string
	SessionTTL   time.Duration
}

// Bridge turns bookings into checkout sessions and reads sessions back.
// Every provider call goes through the circuit breaker.
type Bridge struct {
	provider Provider
	breaker  *utils.CircuitBreaker
	monitor  *monitoring.Monitor
	cfg      Config
	now      func() time.Time
}

func NewBridge(provider Provider, breaker *utils.CircuitBreaker, monitor *monitoring.Monitor, cfg Config) *Bridge {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.SessionTTL < MinSessionTTL {
		cfg.SessionTTL = MinSessionTTL
	}
	cfg.ClientDomain = strings.TrimRight(cfg.ClientDomain, "/")

	return &Bridge{
		provider: provider,
		breaker:  breaker,
		monitor:  monitor,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (b *Bridge) SessionTTL() time.Duration {
	return b.cfg.SessionTTL
}

// CreateSession opens a checkout session for the booking. The amount comes
// from the booking's price snapshot, not the live ticket.
func (b *Bridge) CreateSession(ctx context.Context, ticket *models.Ticket, booking *models.Booking) (*Session, error) {
	title := booking.Title
	if title == "" {
		title = ticket.Title
	}

	req := &CheckoutRequest{
		Title:         title,
		Currency:      b.cfg.Currency,
		AmountMinor:   AmountInMinorUnits(booking.PricePerUnit, booking.Quantity),
		CustomerEmail: booking.UserEmail,
		SuccessURL:    b.SuccessURL(booking.ID),
		CancelURL:     b.CancelURL(booking.ID),
		ExpiresAt:     b.now().Add(b.cfg.SessionTTL),
		Metadata: Metadata{
			TicketID:  ticket.ID,
			BookingID: booking.ID,
			Quantity:  booking.Quantity,
			Title:     title,
		},
	}

	sess, err := b.call("create_session", func() (*Session, error) {
		return b.provider.CreateCheckoutSession(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session for booking %s: %w", booking.ID, err)
	}
	return sess, nil
}

// RetrieveSession reads the current state of a session. It never mutates
// anything and is safe to repeat.
func (b *Bridge) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := b.call("retrieve_session", func() (*Session, error) {
		return b.provider.RetrieveCheckoutSession(ctx, sessionID)
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (b *Bridge) call(operation string, fn func() (*Session, error)) (*Session, error) {
	sess, err := utils.Execute(b.breaker, fn)
	if err == nil {
		return sess, nil
	}

	if errors.Is(err, utils.ErrOpenState) || errors.Is(err, utils.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", status.ErrGatewayUnavailable, err)
	}
	if !errors.Is(err, status.ErrNotFound) {
		b.monitor.TrackGatewayError(operation)
		slog.Error("payment gateway call failed", "operation", operation, "breaker", b.breaker.State().String(), "error", err)
	}
	return nil, err
}

func (b *Bridge) SuccessURL(bookingID string) string {
	q := url.Values{}
	q.Set("booking_id", bookingID)
	q.Set("success", "true")
	// the gateway substitutes the literal placeholder, so it must stay unescaped
	return b.cfg.ClientDomain + "/payment/success?" + q.Encode() + "&session_id={CHECKOUT_SESSION_ID}"
}

func (b *Bridge) CancelURL(bookingID string) string {
	q := url.Values{}
	q.Set("booking_id", bookingID)
	q.Set("success", "false")
	return b.cfg.ClientDomain + "/payment/cancel?" + q.Encode()
}

// AmountInMinorUnits returns price * quantity in cents, rounded half away
// from zero.
func AmountInMinorUnits(pricePerUnit decimal.Decimal, quantity int) int64 {
	return pricePerUnit.
		Mul(decimal.NewFromInt(int64(quantity))).
		Shift(2).
		Round(0).
		IntPart()
}

// IsFailure reports whether err should count against the gateway breaker.
// Lookups of unknown sessions are the caller's problem, not an outage.
func IsFailure(err error) bool {
	return err != nil && !errors.Is(err, status.ErrNotFound)
}
