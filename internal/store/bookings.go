package store

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"

	"tickethive/internal/status"
	"tickethive/models"
)

var bookingColumns = []string{
	"id", "ticket_id", "user_email", "user_name", "vendor_email", "quantity", "title",
	"from_location", "to_location", "transport_type", "departure", "price_per_unit",
	"status", "created", "updated",
}

func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = newID()
	}
	if b.Status == "" {
		b.Status = models.BookingPending
	}
	b.Created = now()
	b.Updated = b.Created

	_, err := s.db.Insert(BookingsTable, dbx.Params{
		"id":             b.ID,
		"ticket_id":      b.TicketID,
		"user_email":     b.UserEmail,
		"user_name":      b.UserName,
		"vendor_email":   b.VendorEmail,
		"quantity":       b.Quantity,
		"title":          b.Title,
		"from_location":  b.From,
		"to_location":    b.To,
		"transport_type": b.TransportType,
		"departure":      b.Departure.String(),
		"price_per_unit": b.PricePerUnit.String(),
		"status":         string(b.Status),
		"created":        b.Created.String(),
		"updated":        b.Updated.String(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *Store) FindBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.Select(bookingColumns...).
		From(BookingsTable).
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&b)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return &b, nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, email string) ([]models.Booking, error) {
	return s.listBookings(ctx, dbx.HashExp{"user_email": email})
}

func (s *Store) ListBookingsByVendor(ctx context.Context, email string) ([]models.Booking, error) {
	return s.listBookings(ctx, dbx.HashExp{"vendor_email": email})
}

func (s *Store) listBookings(ctx context.Context, where dbx.Expression) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.Select(bookingColumns...).
		From(BookingsTable).
		Where(where).
		OrderBy("created DESC", "id DESC").
		WithContext(ctx).
		All(&bookings)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// MarkBookingPaid moves a booking to paid if, and only if, it is currently in
// a state allowed to become paid. The returned flag reports whether this call
// made the change; at most one caller ever observes true for a booking.
func (s *Store) MarkBookingPaid(ctx context.Context, id string) (bool, error) {
	res, err := s.db.Update(BookingsTable, dbx.Params{
		"status":  string(models.BookingPaid),
		"updated": now().String(),
	}, dbx.And(
		dbx.HashExp{"id": id},
		dbx.In("status", stringsOf(models.BookingPaid.Sources())...),
	)).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("mark booking %s paid: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// TransitionBooking applies a vendor decision to one of the vendor's own
// bookings. Bookings that do not exist, belong to another vendor or are not
// in an allowed source state are all reported as not found.
func (s *Store) TransitionBooking(ctx context.Context, id, vendorEmail string, to models.BookingStatus) (*models.Booking, error) {
	sources := to.Sources()
	if len(sources) == 0 {
		return nil, fmt.Errorf("booking status %q: %w", to, status.ErrInvalidTransition)
	}

	res, err := s.db.Update(BookingsTable, dbx.Params{
		"status":  string(to),
		"updated": now().String(),
	}, dbx.And(
		dbx.HashExp{"id": id, "vendor_email": vendorEmail},
		dbx.In("status", stringsOf(sources)...),
	)).WithContext(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("update booking %s status: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("booking %s: %w", id, status.ErrNotFound)
	}

	return s.FindBooking(ctx, id)
}

// CountBookingsByStatus returns the number of bookings per status.
func (s *Store) CountBookingsByStatus(ctx context.Context) (map[models.BookingStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}
	err := s.db.NewQuery("SELECT [[status]], COUNT(*) AS [[total]] FROM {{bookings}} GROUP BY [[status]]").
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	counts := make(map[models.BookingStatus]int, len(rows))
	for _, r := range rows {
		counts[models.BookingStatus(r.Status)] = r.Total
	}
	return counts, nil
}
