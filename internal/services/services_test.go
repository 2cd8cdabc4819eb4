package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"tickethive/internal/auth"
	"tickethive/internal/services/gateway"
	"tickethive/internal/status"
	"tickethive/internal/store"
	"tickethive/internal/store/storetest"
	"tickethive/models"
	"tickethive/utils"
)

var (
	purchaser = &auth.Principal{Email: "user@example.com", DisplayName: "User", Role: models.RoleUser}
	vendor    = &auth.Principal{Email: "vendor@example.com", DisplayName: "Vendor", Role: models.RoleVendor}
	admin     = &auth.Principal{Email: "admin@example.com", DisplayName: "Admin", Role: models.RoleAdmin}
)

// fakeGateway stands in for Stripe. Sessions are keyed by id.
type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*gateway.Session
	created  int
	err      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*gateway.Session{}}
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, req *gateway.CheckoutRequest) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created++
	id := "cs_test_" + req.Metadata.BookingID
	s := &gateway.Session{
		ID:            id,
		URL:           "https://checkout.example/" + id,
		PaymentStatus: gateway.PaymentUnpaid,
		AmountTotal:   req.AmountMinor,
		Currency:      req.Currency,
		Metadata:      req.Metadata.Values(),
	}
	f.sessions[id] = s
	return s, nil
}

func (f *fakeGateway) RetrieveCheckoutSession(_ context.Context, id string) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// pay registers a session for the booking as already paid.
func (f *fakeGateway) pay(id string, b *models.Booking, amountMinor int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = &gateway.Session{
		ID:            id,
		PaymentStatus: gateway.PaymentPaid,
		AmountTotal:   amountMinor,
		Currency:      "usd",
		Metadata: gateway.Metadata{
			TicketID:  b.TicketID,
			BookingID: b.ID,
			Quantity:  b.Quantity,
			Title:     b.Title,
		}.Values(),
	}
}

func (f *fakeGateway) setUnpaid(id string, b *models.Booking) {
	f.pay(id, b, 0)
	f.mu.Lock()
	f.sessions[id].PaymentStatus = gateway.PaymentUnpaid
	f.mu.Unlock()
}

func newBridge(p gateway.Provider) *gateway.Bridge {
	cb := utils.NewCircuitBreaker(utils.Settings{Name: "test", IsFailure: gateway.IsFailure})
	return gateway.NewBridge(p, cb, nil, gateway.Config{
		Currency:     "usd",
		ClientDomain: "http://localhost:5173",
	})
}

type fixture struct {
	store   *store.Store
	gateway *fakeGateway
	bridge  *gateway.Bridge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := newFakeGateway()
	return &fixture{
		store:   storetest.New(t),
		gateway: gw,
		bridge:  newBridge(gw),
	}
}

func (f *fixture) ticketQuantity(t *testing.T, id string) int {
	t.Helper()
	ticket, err := f.store.FindTicket(context.Background(), id)
	require.NoError(t, err)
	return ticket.Quantity
}

func (f *fixture) bookingStatus(t *testing.T, id string) models.BookingStatus {
	t.Helper()
	b, err := f.store.FindBooking(context.Background(), id)
	require.NoError(t, err)
	return b.Status
}

func (f *fixture) transactionCount(t *testing.T) int {
	t.Helper()
	var n int
	err := f.store.DB().Select("COUNT(*)").From(store.TransactionsTable).Row(&n)
	require.NoError(t, err)
	return n
}

var errBoom = errors.New("boom")
