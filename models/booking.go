package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// Booking is one reservation attempt. Title, route, departure and price are
// copied from the ticket when the booking is created and never follow later
// ticket edits.
type Booking struct {
	ID            string          `db:"id" json:"id"`
	TicketID      string          `db:"ticket_id" json:"ticket_id"`
	UserEmail     string          `db:"user_email" json:"user_email"`
	UserName      string          `db:"user_name" json:"user_name"`
	VendorEmail   string          `db:"vendor_email" json:"vendor_email"`
	Quantity      int             `db:"quantity" json:"quantity"`
	Title         string          `db:"title" json:"title"`
	From          string          `db:"from_location" json:"from"`
	To            string          `db:"to_location" json:"to"`
	TransportType string          `db:"transport_type" json:"transport_type"`
	Departure     types.DateTime  `db:"departure" json:"departure"`
	PricePerUnit  decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	Status        BookingStatus   `db:"status" json:"status"`
	Created       types.DateTime  `db:"created" json:"created"`
	Updated       types.DateTime  `db:"updated" json:"updated"`
}

func (b *Booking) Total() decimal.Decimal {
	return b.PricePerUnit.Mul(decimal.NewFromInt(int64(b.Quantity)))
}
