// Package fare computes trip prices from distance. It is deliberately
// free of I/O so quoting and booking cannot drift apart: both call
// Estimate with their own Pricing.
package fare

import (
	"fmt"
	"math"

	"github.com/King47-code/safe-ride-backend/internal/models"
)

// Pricing is one pricing model. Quote and booking each carry their own:
// legacy deployments billed bookings with a local-currency multiplier
// while quoting without one, so the two knobs stay separately
// configurable instead of silently unified.
type Pricing struct {
	Base               float64
	PerKm              float64
	CurrencyMultiplier float64
}

// DefaultPricing returns the stock model: 5 base, 2 per km, multiplier 1.
func DefaultPricing() Pricing {
	return Pricing{Base: 5, PerKm: 2, CurrencyMultiplier: 1}
}

// Estimate prices a trip of distanceKm kilometers under p, rounded to two
// decimals (half away from zero). A negative or NaN distance is rejected;
// nothing else can fail.
func Estimate(distanceKm float64, p Pricing) (float64, error) {
	if math.IsNaN(distanceKm) || distanceKm < 0 {
		return 0, fmt.Errorf("%w: distance must be a non-negative number", models.ErrInvalidInput)
	}
	amount := (p.Base + p.PerKm*distanceKm) * p.CurrencyMultiplier
	return round2(amount), nil
}

// round2 rounds to two decimal places, halves away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
