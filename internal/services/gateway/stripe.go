package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"tickethive/internal/status"
)

// StripeProvider talks to Stripe Checkout.
type StripeProvider struct {
	client *session.Client
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{
		client: &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: secretKey,
		},
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Title),
					},
					UnitAmount: stripe.Int64(req.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.Metadata.BookingID),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	for k, v := range req.Metadata.Values() {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	cs, err := p.client.New(params)
	if err != nil {
		return nil, classify(err)
	}
	return fromStripe(cs), nil
}

func (p *StripeProvider) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := p.client.Get(sessionID, params)
	if err != nil {
		return nil, classify(err)
	}
	return fromStripe(cs), nil
}

func fromStripe(cs *stripe.CheckoutSession) *Session {
	return &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: PaymentStatus(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		CustomerEmail: cs.CustomerEmail,
		Metadata:      cs.Metadata,
	}
}

// classify maps Stripe failures onto our sentinels. Anything that a retry
// could fix becomes ErrGatewayUnavailable.
func classify(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return fmt.Errorf("%w: %w", status.ErrGatewayUnavailable, err)
	}

	switch {
	case serr.HTTPStatusCode == http.StatusNotFound || serr.Code == stripe.ErrorCodeResourceMissing:
		return fmt.Errorf("stripe: %s: %w", serr.Msg, status.ErrNotFound)
	case serr.HTTPStatusCode == http.StatusTooManyRequests,
		serr.HTTPStatusCode >= http.StatusInternalServerError,
		serr.HTTPStatusCode == 0:
		return fmt.Errorf("%w: stripe: %s", status.ErrGatewayUnavailable, serr.Msg)
	}
	return fmt.Errorf("stripe %d: %s", serr.HTTPStatusCode, serr.Msg)
}
