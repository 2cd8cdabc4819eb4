package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		allowed  bool
	}{
		{BookingPending, BookingPaid, true},
		{BookingPending, BookingRejected, true},
		{BookingPending, BookingCancelled, true},
		{BookingPaid, BookingPending, false},
		{BookingPaid, BookingCancelled, false},
		{BookingRejected, BookingPaid, false},
		{BookingCancelled, BookingPaid, false},
		{BookingPending, BookingPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBookingStatus_Terminal(t *testing.T) {
	assert.False(t, BookingPending.Terminal())
	assert.True(t, BookingPaid.Terminal())
	assert.True(t, BookingRejected.Terminal())
	assert.True(t, BookingCancelled.Terminal())
}

func TestBookingStatus_Sources(t *testing.T) {
	assert.Equal(t, []BookingStatus{BookingPending}, BookingPaid.Sources())
	assert.Empty(t, BookingPending.Sources())
	assert.False(t, BookingStatus("refunded").Valid())
}

func TestVerificationStatus_Transitions(t *testing.T) {
	assert.True(t, VerificationPending.CanTransitionTo(VerificationApproved))
	assert.True(t, VerificationPending.CanTransitionTo(VerificationRejected))
	assert.True(t, VerificationRejected.CanTransitionTo(VerificationApproved))
	assert.True(t, VerificationApproved.CanTransitionTo(VerificationRejected))
	assert.False(t, VerificationApproved.CanTransitionTo(VerificationPending))
	assert.False(t, VerificationApproved.CanTransitionTo(VerificationApproved))
}

func TestAdvertiseStatus_Transitions(t *testing.T) {
	assert.True(t, AdvertiseHide.CanTransitionTo(AdvertiseShow))
	assert.True(t, AdvertiseShow.CanTransitionTo(AdvertiseHide))
	assert.False(t, AdvertiseShow.CanTransitionTo(AdvertiseShow))
	assert.False(t, AdvertiseStatus("pinned").Valid())
}

func TestBooking_Total(t *testing.T) {
	b := Booking{PricePerUnit: decimal.RequireFromString("12.35"), Quantity: 3}
	assert.True(t, decimal.RequireFromString("37.05").Equal(b.Total()))
}

func TestTicket_Bookable(t *testing.T) {
	ticket := Ticket{VerificationStatus: VerificationApproved}
	assert.True(t, ticket.Bookable())

	ticket.HideForFraud = true
	assert.False(t, ticket.Bookable())

	ticket = Ticket{VerificationStatus: VerificationPending}
	assert.False(t, ticket.Bookable())
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Vendor ")
	assert.True(t, ok)
	assert.Equal(t, RoleVendor, r)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}

func TestBookingPaidEvent_JSON(t *testing.T) {
	ev := BookingPaidEvent{
		Type:      EventBookingPaid,
		SessionID: "cs_test_1",
		BookingID: "b1",
		Quantity:  2,
		Amount:    decimal.RequireFromString("40.50"),
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "booking.paid", raw["type"])
	assert.Equal(t, "cs_test_1", raw["session_id"])
	assert.Equal(t, "40.5", raw["amount"])
}
