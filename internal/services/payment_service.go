package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"tickethive/internal/auth"
	"tickethive/internal/services/gateway"
	"tickethive/internal/status"
	"tickethive/internal/store"
	"tickethive/models"
	"tickethive/monitoring"
)

type PaymentService struct {
	store   *store.Store
	bridge  *gateway.Bridge
	redis   redis.Cmdable
	monitor *monitoring.Monitor
}

func NewPaymentService(st *store.Store, bridge *gateway.Bridge, redisClient redis.Cmdable, monitor *monitoring.Monitor) *PaymentService {
	return &PaymentService{
		store:   st,
		bridge:  bridge,
		redis:   redisClient,
		monitor: monitor,
	}
}

type CheckoutResult struct {
	BookingID string          `json:"booking_id"`
	SessionID string          `json:"session_id"`
	URL       string          `json:"url"`
	Amount    decimal.Decimal `json:"amount"`
	Reused    bool            `json:"reused"`
}

func checkoutKey(bookingID string) string {
	return fmt.Sprintf("payment:%s", bookingID)
}

// StartCheckout opens a gateway session for one of the caller's pending
// bookings. An open session cached for the booking is handed out again
// instead of creating a second one.
func (s *PaymentService) StartCheckout(ctx context.Context, p *auth.Principal, bookingID string) (*CheckoutResult, error) {
	if err := auth.Require(p, models.RoleUser); err != nil {
		return nil, err
	}

	booking, err := s.store.FindBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserEmail != p.Email {
		return nil, fmt.Errorf("booking %s belongs to another user: %w", bookingID, status.ErrForbidden)
	}
	if booking.Status != models.BookingPending {
		return nil, fmt.Errorf("booking %s is %s: %w", bookingID, booking.Status, status.ErrInvalidTransition)
	}

	key := checkoutKey(bookingID)
	if cached, ok := s.cachedCheckout(ctx, key, bookingID); ok {
		s.monitor.TrackCheckout("reused")
		return cached, nil
	}

	ticket, err := s.store.FindTicket(ctx, booking.TicketID)
	if err != nil {
		return nil, err
	}

	sess, err := s.bridge.CreateSession(ctx, ticket, booking)
	if err != nil {
		s.monitor.TrackCheckout("error")
		return nil, err
	}
	s.monitor.TrackCheckout("created")

	amount := booking.Total().Round(2)

	// Stop handing the session out shortly before the gateway expires it.
	ttl := s.bridge.SessionTTL() - time.Minute
	if err := s.redis.HSet(ctx, key,
		"session_id", sess.ID,
		"url", sess.URL,
		"amount", amount.String(),
		"status", "open",
	).Err(); err != nil {
		slog.Warn("checkout cache write failed", "booking_id", bookingID, "error", err)
	} else if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
		// an entry without a ttl would outlive the gateway session
		slog.Warn("checkout cache expire failed", "booking_id", bookingID, "error", err)
		s.ForgetCheckout(ctx, bookingID)
	}

	slog.Info("checkout session created", "booking_id", bookingID, "session_id", sess.ID, "amount", amount.String())
	return &CheckoutResult{
		BookingID: bookingID,
		SessionID: sess.ID,
		URL:       sess.URL,
		Amount:    amount,
	}, nil
}

// cachedCheckout returns the open session cached for the booking. Read
// failures and incomplete or unparsable entries count as a miss.
func (s *PaymentService) cachedCheckout(ctx context.Context, key, bookingID string) (*CheckoutResult, bool) {
	cached, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		slog.Warn("checkout cache read failed", "booking_id", bookingID, "error", err)
		return nil, false
	}
	if cached["session_id"] == "" || cached["url"] == "" {
		return nil, false
	}

	amount, err := decimal.NewFromString(cached["amount"])
	if err != nil {
		slog.Warn("checkout cache entry has a bad amount", "booking_id", bookingID, "amount", cached["amount"], "error", err)
		return nil, false
	}

	return &CheckoutResult{
		BookingID: bookingID,
		SessionID: cached["session_id"],
		URL:       cached["url"],
		Amount:    amount,
		Reused:    true,
	}, true
}

// ForgetCheckout drops the cached session once the booking has been paid.
func (s *PaymentService) ForgetCheckout(ctx context.Context, bookingID string) {
	if err := s.redis.Del(ctx, checkoutKey(bookingID)).Err(); err != nil {
		slog.Warn("checkout cache delete failed", "booking_id", bookingID, "error", err)
	}
}
