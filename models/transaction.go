package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// Transaction is the ledger row for one confirmed checkout session.
// SessionID is unique: at most one row exists per gateway session.
type Transaction struct {
	ID          string          `db:"id" json:"id"`
	SessionID   string          `db:"session_id" json:"session_id"`
	BookingID   string          `db:"booking_id" json:"booking_id"`
	TicketID    string          `db:"ticket_id" json:"ticket_id"`
	UserEmail   string          `db:"user_email" json:"user_email"`
	VendorEmail string          `db:"vendor_email" json:"vendor_email"`
	Title       string          `db:"title" json:"title"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Currency    string          `db:"currency" json:"currency"`
	Created     types.DateTime  `db:"created" json:"created"`
}

type Revenue struct {
	VendorEmail  string          `json:"vendor_email"`
	Transactions int             `json:"transactions"`
	UnitsSold    int             `json:"units_sold"`
	Total        decimal.Decimal `json:"total"`
}
