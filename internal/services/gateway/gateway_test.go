package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"tickethive/internal/status"
	"tickethive/models"
	"tickethive/utils"
)

type fakeProvider struct {
	created  []*CheckoutRequest
	sessions map[string]*Session
	err      error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req *CheckoutRequest) (*Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &Session{
		ID:            "cs_test_1",
		URL:           "https://checkout.example/cs_test_1",
		PaymentStatus: PaymentUnpaid,
		AmountTotal:   req.AmountMinor,
		Currency:      req.Currency,
		Metadata:      req.Metadata.Values(),
	}, nil
}

func (f *fakeProvider) RetrieveCheckoutSession(_ context.Context, id string) (*Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return s, nil
}

func newBridge(p Provider, minRequests uint32) *Bridge {
	cb := utils.NewCircuitBreaker(utils.Settings{
		Name:        "gateway-test",
		MinRequests: minRequests,
		Timeout:     time.Minute,
		IsFailure:   IsFailure,
	})
	return NewBridge(p, cb, nil, Config{
		Currency:     "usd",
		ClientDomain: "https://tickethive.example/",
		SessionTTL:   10 * time.Minute,
	})
}

func TestMetadata_RoundTrip(t *testing.T) {
	m := Metadata{TicketID: "t1", BookingID: "b1", Quantity: 3, Title: "Dhaka → Sylhet, 08:00"}

	got, err := ParseMetadata(m.Values())
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestParseMetadata_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"missing booking", map[string]string{"ticketId": "t1", "quantity": "1"}},
		{"missing ticket", map[string]string{"bookingId": "b1", "quantity": "1"}},
		{"non numeric quantity", map[string]string{"ticketId": "t1", "bookingId": "b1", "quantity": "two"}},
		{"zero quantity", map[string]string{"ticketId": "t1", "bookingId": "b1", "quantity": "0"}},
		{"nil map", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetadata(tt.values)
			assert.ErrorIs(t, err, status.ErrInvalidMetadata)
		})
	}
}

func TestAmountInMinorUnits(t *testing.T) {
	tests := []struct {
		price    string
		quantity int
		want     int64
	}{
		{"20", 2, 4000},
		{"19.99", 3, 5997},
		{"0.105", 1, 11},
		{"0.335", 3, 101},
		{"12.345", 1, 1235},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AmountInMinorUnits(decimal.RequireFromString(tt.price), tt.quantity), tt.price)
	}
}

func TestSession_Amount(t *testing.T) {
	s := &Session{AmountTotal: 4000, PaymentStatus: PaymentPaid}
	assert.True(t, s.Paid())
	assert.Equal(t, "40", s.Amount().String())

	s = &Session{AmountTotal: 5997, PaymentStatus: PaymentUnpaid}
	assert.False(t, s.Paid())
	assert.Equal(t, "59.97", s.Amount().String())
}

func TestBridge_CreateSession(t *testing.T) {
	p := &fakeProvider{}
	b := newBridge(p, 5)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	ticket := &models.Ticket{ID: "t1", Title: "Live title"}
	booking := &models.Booking{
		ID:           "b1",
		TicketID:     "t1",
		UserEmail:    "user@example.com",
		Quantity:     2,
		Title:        "Snapshot title",
		PricePerUnit: decimal.RequireFromString("20"),
	}

	sess, err := b.CreateSession(context.Background(), ticket, booking)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	require.Len(t, p.created, 1)

	req := p.created[0]
	assert.Equal(t, int64(4000), req.AmountMinor)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "Snapshot title", req.Title)
	assert.Equal(t, "user@example.com", req.CustomerEmail)
	assert.Equal(t, fixed.Add(MinSessionTTL), req.ExpiresAt)
	assert.Equal(t, map[string]string{
		"ticketId":  "t1",
		"bookingId": "b1",
		"quantity":  "2",
		"title":     "Snapshot title",
	}, req.Metadata.Values())

	assert.Equal(t, "https://tickethive.example/payment/success?booking_id=b1&success=true&session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "https://tickethive.example/payment/cancel?booking_id=b1&success=false", req.CancelURL)
}

func TestBridge_CancelURLEscapesBookingID(t *testing.T) {
	b := newBridge(&fakeProvider{}, 5)

	u, err := url.Parse(b.CancelURL("a&b"))
	require.NoError(t, err)
	assert.Equal(t, "a&b", u.Query().Get("booking_id"))
}

func TestBridge_RetrieveSession(t *testing.T) {
	p := &fakeProvider{sessions: map[string]*Session{
		"cs_paid": {ID: "cs_paid", PaymentStatus: PaymentPaid, AmountTotal: 4000},
	}}
	b := newBridge(p, 5)

	sess, err := b.RetrieveSession(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.True(t, sess.Paid())

	_, err = b.RetrieveSession(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestBridge_NotFoundDoesNotTripBreaker(t *testing.T) {
	b := newBridge(&fakeProvider{sessions: map[string]*Session{}}, 1)

	for i := 0; i < 5; i++ {
		_, err := b.RetrieveSession(context.Background(), "cs_missing")
		assert.ErrorIs(t, err, status.ErrNotFound)
	}
	assert.Equal(t, utils.StateClosed, b.breaker.State())
}

func TestBridge_OpenBreakerIsUnavailable(t *testing.T) {
	p := &fakeProvider{err: errors.New("dial tcp: connection refused")}
	b := newBridge(p, 1)

	_, err := b.RetrieveSession(context.Background(), "cs_1")
	require.Error(t, err)
	assert.Equal(t, utils.StateOpen, b.breaker.State())

	p.err = nil
	_, err = b.RetrieveSession(context.Background(), "cs_1")
	assert.ErrorIs(t, err, status.ErrGatewayUnavailable)
	assert.ErrorIs(t, err, utils.ErrOpenState)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"network", errors.New("connection reset"), status.ErrGatewayUnavailable},
		{"rate limited", &stripe.Error{HTTPStatusCode: http.StatusTooManyRequests, Msg: "slow down"}, status.ErrGatewayUnavailable},
		{"server error", &stripe.Error{HTTPStatusCode: http.StatusBadGateway}, status.ErrGatewayUnavailable},
		{"missing session", &stripe.Error{HTTPStatusCode: http.StatusNotFound, Code: stripe.ErrorCodeResourceMissing}, status.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err), tt.want)
		})
	}

	bad := classify(&stripe.Error{HTTPStatusCode: http.StatusBadRequest, Msg: "invalid currency"})
	assert.NotErrorIs(t, bad, status.ErrGatewayUnavailable)
	assert.True(t, strings.Contains(bad.Error(), "invalid currency"))
}
