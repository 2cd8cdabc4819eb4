package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pocketbase/dbx"

	"tickethive/internal/status"
	"tickethive/models"
)

var ticketColumns = []string{
	"id", "vendor_email", "vendor_name", "title", "from_location", "to_location",
	"transport_type", "departure", "price_per_unit", "quantity", "verification_status",
	"advertise_status", "hide_for_fraud", "created", "updated",
}

func (s *Store) CreateTicket(ctx context.Context, t *models.Ticket) error {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.VerificationStatus == "" {
		t.VerificationStatus = models.VerificationPending
	}
	if t.AdvertiseStatus == "" {
		t.AdvertiseStatus = models.AdvertiseHide
	}
	t.Created = now()
	t.Updated = t.Created

	_, err := s.db.Insert(TicketsTable, dbx.Params{
		"id":                  t.ID,
		"vendor_email":        t.VendorEmail,
		"vendor_name":         t.VendorName,
		"title":               t.Title,
		"from_location":       t.From,
		"to_location":         t.To,
		"transport_type":      t.TransportType,
		"departure":           t.Departure.String(),
		"price_per_unit":      t.PricePerUnit.String(),
		"quantity":            t.Quantity,
		"verification_status": string(t.VerificationStatus),
		"advertise_status":    string(t.AdvertiseStatus),
		"hide_for_fraud":      t.HideForFraud,
		"created":             t.Created.String(),
		"updated":             t.Updated.String(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (s *Store) FindTicket(ctx context.Context, id string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.Select(ticketColumns...).
		From(TicketsTable).
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&t)
	if err != nil {
		return nil, notFound(err, "ticket", id)
	}
	return &t, nil
}

// DecrementQuantity subtracts amount from the ticket's remaining quantity and
// returns the new value. The update is atomic but deliberately unguarded: the
// count may go negative when two confirmations race past the intake check.
func (s *Store) DecrementQuantity(ctx context.Context, ticketID string, amount int) (int, error) {
	res, err := s.db.NewQuery(
		"UPDATE {{tickets}} SET [[quantity]] = [[quantity]] - {:amount}, [[updated]] = {:updated} WHERE [[id]] = {:id}",
	).Bind(dbx.Params{
		"amount":  amount,
		"updated": now().String(),
		"id":      ticketID,
	}).WithContext(ctx).Execute()
	if err != nil {
		return 0, fmt.Errorf("decrement ticket %s: %w", ticketID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("ticket %s: %w", ticketID, status.ErrNotFound)
	}

	var remaining int
	err = s.db.Select("quantity").
		From(TicketsTable).
		Where(dbx.HashExp{"id": ticketID}).
		WithContext(ctx).
		Row(&remaining)
	if err != nil {
		return 0, fmt.Errorf("read ticket %s quantity: %w", ticketID, err)
	}

	if remaining < 0 {
		slog.Warn("ticket oversold", "ticket_id", ticketID, "remaining", remaining, "decrement", amount)
	}
	return remaining, nil
}

func (s *Store) SetVerificationStatus(ctx context.Context, ticketID string, to models.VerificationStatus) error {
	if !to.Valid() {
		return fmt.Errorf("verification status %q: %w", to, status.ErrInvalidRequest)
	}

	err := s.transitionTicket(ctx, ticketID, "verification_status", string(to), dbx.Params{
		"verification_status": string(to),
	}, dbx.In("verification_status", stringsOf(to.Sources())...))
	if errors.Is(err, status.ErrInvalidTransition) {
		// repeating the current decision is a no-op
		if t, ferr := s.FindTicket(ctx, ticketID); ferr == nil && t.VerificationStatus == to {
			return nil
		}
	}
	return err
}

// SetFraudFlag marks or clears a ticket as hidden for fraud. Hiding also
// takes the ticket out of the advertised set.
func (s *Store) SetFraudFlag(ctx context.Context, ticketID string, hidden bool) error {
	params := dbx.Params{
		"hide_for_fraud": hidden,
		"updated":        now().String(),
	}
	if hidden {
		params["advertise_status"] = string(models.AdvertiseHide)
	}

	res, err := s.db.Update(TicketsTable, params, dbx.HashExp{"id": ticketID}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("update ticket %s fraud flag: %w", ticketID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("ticket %s: %w", ticketID, status.ErrNotFound)
	}
	return nil
}

// SetAdvertiseStatus shows or hides a ticket's advert. Showing is a single
// conditional update that only succeeds while fewer than capacity tickets are
// shown, so concurrent requests cannot overfill the slots.
func (s *Store) SetAdvertiseStatus(ctx context.Context, ticketID string, to models.AdvertiseStatus, capacity int) error {
	if !to.Valid() {
		return fmt.Errorf("advertise status %q: %w", to, status.ErrInvalidRequest)
	}

	var q *dbx.Query
	if to == models.AdvertiseShow {
		q = s.db.NewQuery(`UPDATE {{tickets}}
			SET [[advertise_status]] = {:show}, [[updated]] = {:updated}
			WHERE [[id]] = {:id}
				AND [[advertise_status]] = {:hide}
				AND [[verification_status]] = {:approved}
				AND [[hide_for_fraud]] = FALSE
				AND (SELECT COUNT(*) FROM {{tickets}} WHERE [[advertise_status]] = {:show}) < {:cap}`,
		).Bind(dbx.Params{
			"show":     string(models.AdvertiseShow),
			"hide":     string(models.AdvertiseHide),
			"approved": string(models.VerificationApproved),
			"updated":  now().String(),
			"id":       ticketID,
			"cap":      capacity,
		})
	} else {
		q = s.db.Update(TicketsTable, dbx.Params{
			"advertise_status": string(models.AdvertiseHide),
			"updated":          now().String(),
		}, dbx.HashExp{"id": ticketID, "advertise_status": string(models.AdvertiseShow)})
	}

	res, err := q.WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("update ticket %s advertise status: %w", ticketID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing changed; work out why.
	t, err := s.FindTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	switch {
	case t.AdvertiseStatus == to:
		return nil
	case to == models.AdvertiseShow && !t.Bookable():
		return fmt.Errorf("ticket %s: %w", ticketID, status.ErrTicketUnavailable)
	case to == models.AdvertiseShow:
		return fmt.Errorf("ticket %s: %w", ticketID, status.ErrAdvertiseCapReached)
	}
	return fmt.Errorf("ticket %s advertise %s -> %s: %w", ticketID, t.AdvertiseStatus, to, status.ErrInvalidTransition)
}

func (s *Store) CountAdvertised(ctx context.Context) (int, error) {
	var n int
	err := s.db.Select("COUNT(*)").
		From(TicketsTable).
		Where(dbx.HashExp{"advertise_status": string(models.AdvertiseShow)}).
		WithContext(ctx).
		Row(&n)
	if err != nil {
		return 0, fmt.Errorf("count advertised tickets: %w", err)
	}
	return n, nil
}

func (s *Store) transitionTicket(ctx context.Context, ticketID, column, to string, params dbx.Params, from dbx.Expression) error {
	params["updated"] = now().String()

	res, err := s.db.Update(TicketsTable, params, dbx.And(dbx.HashExp{"id": ticketID}, from)).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("update ticket %s %s: %w", ticketID, column, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := s.FindTicket(ctx, ticketID); err != nil {
		return err
	}
	return fmt.Errorf("ticket %s %s -> %s: %w", ticketID, column, to, status.ErrInvalidTransition)
}

func stringsOf[S ~string](values []S) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
