package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethive/internal/auth"
	"tickethive/internal/services"
	"tickethive/internal/services/gateway"
	"tickethive/internal/status"
	"tickethive/internal/store/storetest"
	"tickethive/models"
	"tickethive/utils"
)

type staticResolver struct {
	p *auth.Principal
}

func (r staticResolver) Principal(*core.RequestEvent) (*auth.Principal, error) {
	if r.p == nil {
		return nil, fmt.Errorf("no token: %w", status.ErrUnauthenticated)
	}
	return r.p, nil
}

var (
	purchaser = &auth.Principal{Email: "user@example.com", DisplayName: "User", Role: models.RoleUser}
	vendor    = &auth.Principal{Email: "vendor@example.com", DisplayName: "Vendor", Role: models.RoleVendor}
	admin     = &auth.Principal{Email: "admin@example.com", DisplayName: "Admin", Role: models.RoleAdmin}
)

type paidGateway map[string]*gateway.Session

func (g paidGateway) CreateCheckoutSession(context.Context, *gateway.CheckoutRequest) (*gateway.Session, error) {
	return nil, errors.New("not used")
}

func (g paidGateway) RetrieveCheckoutSession(_ context.Context, id string) (*gateway.Session, error) {
	s, ok := g[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return s, nil
}

func newEvent(method, target, body string) (*core.RequestEvent, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()

	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec
	return e, rec
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *router.ApiError
	require.True(t, errors.As(err, &apiErr), "expected api error, got %v", err)
	return apiErr.Status
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func newBridge(p gateway.Provider) *gateway.Bridge {
	cb := utils.NewCircuitBreaker(utils.Settings{Name: "handlers-test", IsFailure: gateway.IsFailure})
	return gateway.NewBridge(p, cb, nil, gateway.Config{Currency: "usd", ClientDomain: "http://localhost:5173"})
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{status.ErrUnauthenticated, http.StatusUnauthorized},
		{status.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("booking b1: %w", status.ErrNotFound), http.StatusNotFound},
		{status.ErrInvalidQuantity, http.StatusBadRequest},
		{status.ErrInsufficientStock, http.StatusBadRequest},
		{status.ErrTicketUnavailable, http.StatusBadRequest},
		{status.ErrInvalidMetadata, http.StatusBadRequest},
		{status.ErrInvalidRequest, http.StatusBadRequest},
		{status.ErrInvalidTransition, http.StatusConflict},
		{status.ErrAdvertiseCapReached, http.StatusConflict},
		{fmt.Errorf("retrieve: %w", status.ErrGatewayUnavailable), http.StatusServiceUnavailable},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, apiStatus(t, toAPIError(tt.err)))
		})
	}
}

func TestReconcileHandler(t *testing.T) {
	st := storetest.New(t)
	ticket := storetest.SeedTicket(t, st, 5, "20")
	booking := storetest.SeedBooking(t, st, ticket, purchaser.Email, 2)

	gw := paidGateway{"cs_1": {
		ID:            "cs_1",
		PaymentStatus: gateway.PaymentPaid,
		AmountTotal:   4000,
		Currency:      "usd",
		Metadata: gateway.Metadata{
			TicketID:  ticket.ID,
			BookingID: booking.ID,
			Quantity:  2,
			Title:     booking.Title,
		}.Values(),
	}}
	reconciler := services.NewReconcileService(st, newBridge(gw), nil, nil, nil)
	bookings := services.NewBookingService(st)

	t.Run("requires a caller", func(t *testing.T) {
		h := NewPaymentHandler(staticResolver{}, reconciler, bookings)
		e, _ := newEvent(http.MethodPost, "/api/v1/payments/reconcile", `{"session_id":"cs_1"}`)
		assert.Equal(t, http.StatusUnauthorized, apiStatus(t, h.Reconcile(e)))
	})

	h := NewPaymentHandler(staticResolver{p: purchaser}, reconciler, bookings)

	t.Run("requires a session id", func(t *testing.T) {
		e, _ := newEvent(http.MethodPost, "/api/v1/payments/reconcile", `{}`)
		assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.Reconcile(e)))
	})

	t.Run("unknown session", func(t *testing.T) {
		e, _ := newEvent(http.MethodPost, "/api/v1/payments/reconcile", `{"session_id":"cs_missing"}`)
		assert.Equal(t, http.StatusNotFound, apiStatus(t, h.Reconcile(e)))
	})

	t.Run("applies then reports already applied", func(t *testing.T) {
		e, rec := newEvent(http.MethodPost, "/api/v1/payments/reconcile", `{"session_id":"cs_1"}`)
		require.NoError(t, h.Reconcile(e))
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "applied", body["outcome"])
		assert.Equal(t, "40", body["amount"])

		e, rec = newEvent(http.MethodPost, "/api/v1/payments/reconcile", `{"session_id":"cs_1"}`)
		require.NoError(t, h.Reconcile(e))
		assert.Equal(t, "already_applied", decode(t, rec)["outcome"])

		got, err := st.FindTicket(context.Background(), ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Quantity)
	})

	t.Run("history", func(t *testing.T) {
		e, rec := newEvent(http.MethodGet, "/api/v1/payments/history", "")
		require.NoError(t, h.History(e))
		items := decode(t, rec)["items"].([]any)
		assert.Len(t, items, 1)
	})
}

func TestBookingHandler_Create(t *testing.T) {
	st := storetest.New(t)
	ticket := storetest.SeedTicket(t, st, 2, "15")
	h := NewBookingHandler(staticResolver{p: purchaser}, services.NewBookingService(st), nil)

	e, rec := newEvent(http.MethodPost, "/api/v1/bookings", fmt.Sprintf(`{"ticket_id":%q,"quantity":2}`, ticket.ID))
	require.NoError(t, h.CreateBooking(e))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", decode(t, rec)["status"])

	e, _ = newEvent(http.MethodPost, "/api/v1/bookings", fmt.Sprintf(`{"ticket_id":%q,"quantity":3}`, ticket.ID))
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.CreateBooking(e)))

	e, _ = newEvent(http.MethodPost, "/api/v1/bookings", `{"ticket_id":`)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.CreateBooking(e)))

	e, rec = newEvent(http.MethodGet, "/api/v1/bookings", "")
	require.NoError(t, h.ListBookings(e))
	assert.Len(t, decode(t, rec)["items"], 1)
}

func TestBookingHandler_CheckoutRejectsOtherUsers(t *testing.T) {
	st := storetest.New(t)
	ticket := storetest.SeedTicket(t, st, 2, "15")
	booking := storetest.SeedBooking(t, st, ticket, "someone@example.com", 1)

	db, _ := redismock.NewClientMock()
	payments := services.NewPaymentService(st, newBridge(paidGateway{}), db, nil)
	h := NewBookingHandler(staticResolver{p: purchaser}, services.NewBookingService(st), payments)

	e, _ := newEvent(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/checkout", "")
	e.Request.SetPathValue("bookingId", booking.ID)
	assert.Equal(t, http.StatusForbidden, apiStatus(t, h.StartCheckout(e)))
}

func TestVendorHandler(t *testing.T) {
	st := storetest.New(t)
	ticket := storetest.SeedTicket(t, st, 5, "10")
	booking := storetest.SeedBooking(t, st, ticket, purchaser.Email, 1)
	h := NewVendorHandler(staticResolver{p: vendor}, services.NewBookingService(st))

	patch := func(body string) (*core.RequestEvent, *httptest.ResponseRecorder) {
		e, rec := newEvent(http.MethodPatch, "/api/v1/vendor/bookings/"+booking.ID, body)
		e.Request.SetPathValue("bookingId", booking.ID)
		return e, rec
	}

	e, _ := patch(`{"status":"refunded"}`)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.ModerateBooking(e)))

	e, _ = patch(`{"status":"paid"}`)
	assert.Equal(t, http.StatusConflict, apiStatus(t, h.ModerateBooking(e)))

	e, rec := patch(`{"status":"rejected"}`)
	require.NoError(t, h.ModerateBooking(e))
	assert.Equal(t, "rejected", decode(t, rec)["status"])

	e, rec = newEvent(http.MethodGet, "/api/v1/vendor/revenue", "")
	require.NoError(t, h.Revenue(e))
	assert.EqualValues(t, 0, decode(t, rec)["units_sold"])

	buyer := NewVendorHandler(staticResolver{p: purchaser}, services.NewBookingService(st))
	e, _ = newEvent(http.MethodGet, "/api/v1/vendor/bookings", "")
	assert.Equal(t, http.StatusForbidden, apiStatus(t, buyer.ListBookings(e)))
}

func TestAdminHandler(t *testing.T) {
	st := storetest.New(t)
	ticket := storetest.SeedTicket(t, st, 5, "10")
	h := NewAdminHandler(staticResolver{p: admin}, services.NewTicketService(st, 1))

	patch := func(path, body string) *core.RequestEvent {
		e, _ := newEvent(http.MethodPatch, "/api/v1/admin/tickets/"+ticket.ID+"/"+path, body)
		e.Request.SetPathValue("ticketId", ticket.ID)
		return e
	}

	assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.SetVerification(patch("verification", `{"status":"maybe"}`))))
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.SetAdvertise(patch("advertise", `{"status":"banner"}`))))
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.SetFraud(patch("fraud", `{}`))))

	require.NoError(t, h.SetAdvertise(patch("advertise", `{"status":"show"}`)))
	require.NoError(t, h.SetFraud(patch("fraud", `{"hide_for_fraud":true}`)))

	got, err := st.FindTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, got.HideForFraud)
	assert.Equal(t, models.AdvertiseHide, got.AdvertiseStatus)

	vendorSide := NewAdminHandler(staticResolver{p: vendor}, services.NewTicketService(st, 1))
	assert.Equal(t, http.StatusForbidden, apiStatus(t, vendorSide.SetFraud(patch("fraud", `{"hide_for_fraud":false}`))))
}

func TestHealthHandler(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := NewHealthHandler(db)

	mock.ExpectPing().SetVal("PONG")
	e, rec := newEvent(http.MethodGet, "/health", "")
	require.NoError(t, h.Health(e))
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	e, rec = newEvent(http.MethodGet, "/health", "")
	require.NoError(t, h.Health(e))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decode(t, rec)["status"])
}
