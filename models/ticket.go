package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID                 string             `db:"id" json:"id"`
	VendorEmail        string             `db:"vendor_email" json:"vendor_email"`
	VendorName         string             `db:"vendor_name" json:"vendor_name"`
	Title              string             `db:"title" json:"title"`
	From               string             `db:"from_location" json:"from"`
	To                 string             `db:"to_location" json:"to"`
	TransportType      string             `db:"transport_type" json:"transport_type"`
	Departure          types.DateTime     `db:"departure" json:"departure"`
	PricePerUnit       decimal.Decimal    `db:"price_per_unit" json:"price_per_unit"`
	Quantity           int                `db:"quantity" json:"quantity"` // remaining units
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	AdvertiseStatus    AdvertiseStatus    `db:"advertise_status" json:"advertise_status"`
	HideForFraud       bool               `db:"hide_for_fraud" json:"hide_for_fraud"`
	Created            types.DateTime     `db:"created" json:"created"`
	Updated            types.DateTime     `db:"updated" json:"updated"`
}

// Bookable reports whether the listing may take new reservations.
func (t *Ticket) Bookable() bool {
	return t.VerificationStatus == VerificationApproved && !t.HideForFraud
}
