package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tickethive/internal/notify"
	"tickethive/internal/services/gateway"
	"tickethive/internal/status"
	"tickethive/internal/store"
	"tickethive/models"
	"tickethive/monitoring"
)

type Outcome string

const (
	// OutcomeApplied means this call marked the booking paid, took the
	// inventory and wrote the ledger row.
	OutcomeApplied Outcome = "applied"
	// OutcomeAlreadyApplied means an earlier call did the work; nothing changed.
	OutcomeAlreadyApplied Outcome = "already_applied"
	// OutcomeUnpaid means the gateway has not captured payment; nothing changed.
	OutcomeUnpaid Outcome = "unpaid"
)

type ReconcileResult struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Outcome   Outcome         `json:"outcome"`
	SessionID string          `json:"session_id"`
	BookingID string          `json:"booking_id"`
	TicketID  string          `json:"ticket_id"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// CheckoutCache forgets the open checkout of a booking once it is paid.
type CheckoutCache interface {
	ForgetCheckout(ctx context.Context, bookingID string)
}

type ReconcileService struct {
	store    *store.Store
	bridge   *gateway.Bridge
	notifier notify.Notifier
	cache    CheckoutCache
	monitor  *monitoring.Monitor
}

func NewReconcileService(st *store.Store, bridge *gateway.Bridge, notifier notify.Notifier, cache CheckoutCache, monitor *monitoring.Monitor) *ReconcileService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ReconcileService{
		store:    st,
		bridge:   bridge,
		notifier: notifier,
		cache:    cache,
		monitor:  monitor,
	}
}

// Reconcile confirms a checkout session with the gateway and, if it is paid,
// applies it: booking pending -> paid, ticket quantity decremented by the
// booking's quantity, one transaction row for the session.
//
// The booking status flip is the fencing step. Only the caller whose
// conditional update changes the row goes on to touch inventory and the
// ledger; every other caller, concurrent or later, gets OutcomeAlreadyApplied.
// The unique session id on transactions backs this up if the fence is ever
// bypassed: a session that already has a ledger row never touches inventory
// again. Safe to call any number of times for the same session.
func (s *ReconcileService) Reconcile(ctx context.Context, sessionID string) (*ReconcileResult, error) {
	start := time.Now()

	res, err := s.reconcile(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		s.monitor.TrackReconcile("error", time.Since(start))
		return nil, err
	}

	s.monitor.TrackReconcile(string(res.Outcome), time.Since(start))
	return res, nil
}

func (s *ReconcileService) reconcile(ctx context.Context, sessionID string) (*ReconcileResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required: %w", status.ErrInvalidRequest)
	}

	sess, err := s.bridge.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	meta, err := gateway.ParseMetadata(sess.Metadata)
	if err != nil {
		slog.Error("checkout session carries unusable metadata", "session_id", sessionID, "error", err)
		return nil, err
	}

	res := &ReconcileResult{
		SessionID: sessionID,
		BookingID: meta.BookingID,
		TicketID:  meta.TicketID,
		Quantity:  meta.Quantity,
		Amount:    sess.Amount(),
		Currency:  sess.Currency,
	}

	if !sess.Paid() {
		res.Outcome = OutcomeUnpaid
		res.Message = "Payment not completed"
		slog.Info("reconcile: session not paid", "session_id", sessionID, "booking_id", meta.BookingID, "payment_status", sess.PaymentStatus)
		return res, nil
	}

	var (
		booking   *models.Booking
		remaining int
		applied   bool
	)
	err = s.store.RunInTransaction(ctx, func(tx *store.Store) error {
		changed, err := tx.MarkBookingPaid(ctx, meta.BookingID)
		if err != nil {
			return err
		}

		booking, err = tx.FindBooking(ctx, meta.BookingID)
		if err != nil {
			return err
		}

		if !changed {
			if booking.Status != models.BookingPaid {
				slog.Error("payment captured for a closed booking",
					"session_id", sessionID,
					"booking_id", booking.ID,
					"status", booking.Status,
				)
				return fmt.Errorf("booking %s is %s: %w", booking.ID, booking.Status, status.ErrInvalidTransition)
			}
			s.checkLedger(ctx, tx, sessionID, booking.ID)
			return nil
		}

		if booking.TicketID != meta.TicketID || booking.Quantity != meta.Quantity {
			slog.Warn("session metadata disagrees with booking",
				"session_id", sessionID,
				"booking_id", booking.ID,
				"booking_ticket", booking.TicketID,
				"session_ticket", meta.TicketID,
				"booking_quantity", booking.Quantity,
				"session_quantity", meta.Quantity,
			)
		}

		// the ledger row goes first: a duplicate session means the sale was
		// already taken from inventory
		inserted, err := tx.InsertTransaction(ctx, &models.Transaction{
			SessionID:   sessionID,
			BookingID:   booking.ID,
			TicketID:    booking.TicketID,
			UserEmail:   booking.UserEmail,
			VendorEmail: booking.VendorEmail,
			Title:       booking.Title,
			Quantity:    booking.Quantity,
			Amount:      res.Amount,
			Currency:    sess.Currency,
		})
		if err != nil {
			return err
		}
		if !inserted {
			slog.Warn("transaction for session already recorded, skipping decrement", "session_id", sessionID, "booking_id", booking.ID)
			return nil
		}

		remaining, err = tx.DecrementQuantity(ctx, booking.TicketID, booking.Quantity)
		if err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.TicketID = booking.TicketID
	res.Quantity = booking.Quantity
	res.Success = true

	if !applied {
		res.Outcome = OutcomeAlreadyApplied
		res.Message = "Payment already verified"
		return res, nil
	}

	res.Outcome = OutcomeApplied
	res.Message = "Payment verified and booking confirmed"

	amount, _ := res.Amount.Float64()
	s.monitor.TrackSale(booking.Quantity, remaining, amount, sess.Currency)
	slog.Info("reconcile: payment applied",
		"session_id", sessionID,
		"booking_id", booking.ID,
		"ticket_id", booking.TicketID,
		"quantity", booking.Quantity,
		"remaining", remaining,
		"amount", res.Amount.String(),
	)

	s.afterApply(ctx, sessionID, booking, res)
	return res, nil
}

// checkLedger flags a paid booking with no ledger row for this session, which
// happens when the purchaser paid two sessions for the same booking.
func (s *ReconcileService) checkLedger(ctx context.Context, tx *store.Store, sessionID, bookingID string) {
	_, err := tx.FindTransactionBySession(ctx, sessionID)
	if errors.Is(err, status.ErrNotFound) {
		slog.Error("paid session has no ledger entry; booking was paid through another session",
			"session_id", sessionID,
			"booking_id", bookingID,
		)
	}
}

func (s *ReconcileService) afterApply(ctx context.Context, sessionID string, booking *models.Booking, res *ReconcileResult) {
	if s.cache != nil {
		s.cache.ForgetCheckout(ctx, booking.ID)
	}

	ev := &models.BookingPaidEvent{
		Type:        models.EventBookingPaid,
		SessionID:   sessionID,
		BookingID:   booking.ID,
		TicketID:    booking.TicketID,
		UserEmail:   booking.UserEmail,
		VendorEmail: booking.VendorEmail,
		Title:       booking.Title,
		Quantity:    booking.Quantity,
		Amount:      res.Amount,
		Currency:    res.Currency,
		PaidAt:      time.Now().UTC(),
	}
	if err := s.notifier.BookingPaid(ctx, ev); err != nil {
		slog.Error("booking paid notification failed", "booking_id", booking.ID, "session_id", sessionID, "error", err)
	}
}
