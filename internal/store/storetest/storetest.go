// Package storetest opens a throwaway SQLite database with the same tables
// the pocketbase migrations create, for store and service tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"tickethive/internal/store"
	"tickethive/models"
)

var schema = []string{
	`CREATE TABLE tickets (
		id TEXT PRIMARY KEY NOT NULL,
		vendor_email TEXT DEFAULT '' NOT NULL,
		vendor_name TEXT DEFAULT '' NOT NULL,
		title TEXT DEFAULT '' NOT NULL,
		from_location TEXT DEFAULT '' NOT NULL,
		to_location TEXT DEFAULT '' NOT NULL,
		transport_type TEXT DEFAULT '' NOT NULL,
		departure TEXT DEFAULT '' NOT NULL,
		price_per_unit NUMERIC DEFAULT 0 NOT NULL,
		quantity NUMERIC DEFAULT 0 NOT NULL,
		verification_status TEXT DEFAULT '' NOT NULL,
		advertise_status TEXT DEFAULT '' NOT NULL,
		hide_for_fraud BOOLEAN DEFAULT FALSE NOT NULL,
		created TEXT DEFAULT '' NOT NULL,
		updated TEXT DEFAULT '' NOT NULL
	)`,
	`CREATE TABLE bookings (
		id TEXT PRIMARY KEY NOT NULL,
		ticket_id TEXT DEFAULT '' NOT NULL,
		user_email TEXT DEFAULT '' NOT NULL,
		user_name TEXT DEFAULT '' NOT NULL,
		vendor_email TEXT DEFAULT '' NOT NULL,
		quantity NUMERIC DEFAULT 0 NOT NULL,
		title TEXT DEFAULT '' NOT NULL,
		from_location TEXT DEFAULT '' NOT NULL,
		to_location TEXT DEFAULT '' NOT NULL,
		transport_type TEXT DEFAULT '' NOT NULL,
		departure TEXT DEFAULT '' NOT NULL,
		price_per_unit NUMERIC DEFAULT 0 NOT NULL,
		status TEXT DEFAULT '' NOT NULL,
		created TEXT DEFAULT '' NOT NULL,
		updated TEXT DEFAULT '' NOT NULL
	)`,
	`CREATE INDEX idx_bookings_user_email ON bookings (user_email)`,
	`CREATE INDEX idx_bookings_vendor_email ON bookings (vendor_email)`,
	`CREATE TABLE transactions (
		id TEXT PRIMARY KEY NOT NULL,
		session_id TEXT DEFAULT '' NOT NULL,
		booking_id TEXT DEFAULT '' NOT NULL,
		ticket_id TEXT DEFAULT '' NOT NULL,
		user_email TEXT DEFAULT '' NOT NULL,
		vendor_email TEXT DEFAULT '' NOT NULL,
		title TEXT DEFAULT '' NOT NULL,
		quantity NUMERIC DEFAULT 0 NOT NULL,
		amount NUMERIC DEFAULT 0 NOT NULL,
		currency TEXT DEFAULT '' NOT NULL,
		created TEXT DEFAULT '' NOT NULL
	)`,
	`CREATE UNIQUE INDEX idx_transactions_session_id ON transactions (session_id)`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY NOT NULL,
		email TEXT DEFAULT '' NOT NULL,
		name TEXT DEFAULT '' NOT NULL,
		role TEXT DEFAULT '' NOT NULL
	)`,
	`CREATE UNIQUE INDEX idx_users_email ON users (email)`,
}

// Open creates the tables in a fresh database under t.TempDir.
func Open(t testing.TB) *dbx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "data.db") + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := dbx.Open("sqlite", dsn)
	require.NoError(t, err)

	// one connection keeps concurrent tests serialised on the same file
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range schema {
		_, err := db.NewQuery(stmt).Execute()
		require.NoError(t, err)
	}
	return db
}

func New(t testing.TB) *store.Store {
	t.Helper()
	return store.New(Open(t))
}

// SeedTicket inserts an approved, bookable ticket and applies the overrides.
func SeedTicket(t testing.TB, s *store.Store, quantity int, price string, opts ...func(*models.Ticket)) *models.Ticket {
	t.Helper()

	ticket := &models.Ticket{
		VendorEmail:        "vendor@example.com",
		VendorName:         "Vendor",
		Title:              "Dhaka to Sylhet",
		From:               "Dhaka",
		To:                 "Sylhet",
		TransportType:      "bus",
		PricePerUnit:       decimal.RequireFromString(price),
		Quantity:           quantity,
		VerificationStatus: models.VerificationApproved,
		AdvertiseStatus:    models.AdvertiseHide,
	}
	for _, opt := range opts {
		opt(ticket)
	}

	require.NoError(t, s.CreateTicket(context.Background(), ticket))
	return ticket
}

// SeedBooking inserts a pending booking snapshotting the ticket.
func SeedBooking(t testing.TB, s *store.Store, ticket *models.Ticket, userEmail string, quantity int) *models.Booking {
	t.Helper()

	b := &models.Booking{
		TicketID:      ticket.ID,
		UserEmail:     userEmail,
		VendorEmail:   ticket.VendorEmail,
		Quantity:      quantity,
		Title:         ticket.Title,
		From:          ticket.From,
		To:            ticket.To,
		TransportType: ticket.TransportType,
		Departure:     ticket.Departure,
		PricePerUnit:  ticket.PricePerUnit,
	}
	require.NoError(t, s.CreateBooking(context.Background(), b))
	return b
}

func SeedUser(t testing.TB, db dbx.Builder, email, name, role string) {
	t.Helper()

	_, err := db.Insert("users", dbx.Params{
		"id":    "u" + email,
		"email": email,
		"name":  name,
		"role":  role,
	}).Execute()
	require.NoError(t, err)
}
