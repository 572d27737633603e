package payments

import (
	"context"
	"math"
	"os"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeClient is a thin wrapper around stripe-go for the fare
// hold/capture/release flow. A fare is pre-authorized when a driver accepts
// and captured once the ride completes.
type StripeClient struct {
	Currency string
}

// NewStripeClient initializes the stripe client with the STRIPE_API_KEY env
// var. STRIPE_CURRENCY overrides the usd default.
func NewStripeClient() *StripeClient {
	stripe.Key = os.Getenv("STRIPE_API_KEY")
	currency := os.Getenv("STRIPE_CURRENCY")
	if currency == "" {
		currency = "usd"
	}
	return &StripeClient{Currency: currency}
}

// HoldFare creates a PaymentIntent with capture_method=manual so the fare is
// reserved without charging. The ride id travels in metadata for
// reconciliation. Returns the PaymentIntent ID on success.
func (s *StripeClient) HoldFare(ctx context.Context, rideID string, fare float64) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(fare)),
		Currency: stripe.String(s.Currency),
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.AddMetadata("ride_id", rideID)
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// CaptureFare finalizes a previously held fare.
func (s *StripeClient) CaptureFare(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Capture(paymentIntentID, nil)
	return err
}

// ReleaseFare cancels the hold and returns the reserved funds.
func (s *StripeClient) ReleaseFare(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Cancel(paymentIntentID, nil)
	return err
}

func minorUnits(fare float64) int64 {
	return int64(math.Round(fare * 100))
}
