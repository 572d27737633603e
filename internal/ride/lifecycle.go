package ride

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/King47-code/safe-ride-backend/internal/fare"
	"github.com/King47-code/safe-ride-backend/internal/geo"
	"github.com/King47-code/safe-ride-backend/internal/models"
	"github.com/King47-code/safe-ride-backend/internal/observability"
	"github.com/King47-code/safe-ride-backend/internal/storage"
)

const holdTimeout = 10 * time.Second

// Resolver turns a free-text destination into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, destination string) (models.Coordinate, error)
}

// Notifier fans events out to connected clients. Implementations must not
// block the caller; delivery is best effort.
type Notifier interface {
	Broadcast(v any)
}

// FareHolder pre-authorizes a fare against the rider's payment method and
// returns a reference for later capture or release.
type FareHolder interface {
	HoldFare(ctx context.Context, rideID string, fare float64) (string, error)
}

// Lifecycle owns every ride state transition: request, accept, and the
// read paths that serve them. No other component mutates a ride.
//
// Quote and Booking pricing are deliberately separate. Historically
// bookings applied a currency multiplier that quotes did not, and until
// product decides whether that gap is intentional the two models stay
// independently configurable instead of silently unified.
type Lifecycle struct {
	Store    storage.RideStore
	Resolver Resolver
	Notifier Notifier
	Payments FareHolder // optional; nil disables fare holds
	Quote    fare.Pricing
	Booking  fare.Pricing
	Logger   *slog.Logger
}

type rideEvent struct {
	Event string      `json:"event"`
	Ride  models.Ride `json:"ride"`
}

type acceptedEvent struct {
	Event    string `json:"event"`
	RideID   string `json:"rideId"`
	DriverID string `json:"driverId"`
}

// QuoteFare prices a trip without persisting anything.
func (l *Lifecycle) QuoteFare(ctx context.Context, pickup models.Coordinate, destination string) (models.Quote, error) {
	if err := geo.ValidateCoordinate(pickup); err != nil {
		return models.Quote{}, err
	}
	dropoff, err := l.Resolver.Resolve(ctx, destination)
	if err != nil {
		return models.Quote{}, err
	}
	dist := geo.DistanceKm(pickup, dropoff)
	estimate, err := fare.Estimate(dist, l.Quote)
	if err != nil {
		return models.Quote{}, err
	}
	return models.Quote{DistanceKm: dist, EstimatedFare: estimate, DropoffCoords: dropoff}, nil
}

// RequestRide resolves the destination, prices the trip and persists a new
// ride in the requested state. The store assigns the id, so nothing exists
// until the write commits; a resolve or pricing failure leaves no trace.
// The ride_requested broadcast goes out only after the commit.
func (l *Lifecycle) RequestRide(ctx context.Context, riderID string, pickup models.Coordinate, destination string) (models.Ride, error) {
	if riderID == "" {
		return models.Ride{}, fmt.Errorf("%w: rider id required", models.ErrInvalidInput)
	}
	if err := geo.ValidateCoordinate(pickup); err != nil {
		return models.Ride{}, err
	}
	dropoff, err := l.Resolver.Resolve(ctx, destination)
	if err != nil {
		return models.Ride{}, err
	}
	dist := geo.DistanceKm(pickup, dropoff)
	amount, err := fare.Estimate(dist, l.Booking)
	if err != nil {
		return models.Ride{}, err
	}

	now := time.Now().UTC()
	created, err := l.Store.CreateRide(ctx, models.Ride{
		RiderID:      riderID,
		Pickup:       pickup,
		Dropoff:      dropoff,
		DropoffLabel: destination,
		Fare:         amount,
		Status:       models.StatusRequested,
		RequestedAt:  now,
		UpdatedAt:    now,
	})
	if err != nil {
		return models.Ride{}, err
	}

	observability.RidesRequested.Inc()
	l.notify(rideEvent{Event: models.EventRideRequested, Ride: created})
	l.logger().Info("ride requested",
		"ride_id", created.ID, "rider_id", riderID, "distance_km", dist, "fare", amount)
	return created, nil
}

// AcceptRide assigns driverID to a requested ride. Concurrent accepts for
// the same ride resolve to exactly one winner; losers get
// models.ErrConflict. The ride_accepted broadcast and the fare hold both
// happen strictly after the claim commits, so a storage failure can never
// roll back an announced acceptance.
func (l *Lifecycle) AcceptRide(ctx context.Context, driverID, rideID string) error {
	if driverID == "" || rideID == "" {
		return fmt.Errorf("%w: driver id and ride id required", models.ErrInvalidInput)
	}
	current, err := l.Store.GetRide(ctx, rideID)
	if err != nil {
		return err
	}
	if err := l.Store.ClaimRide(ctx, rideID, driverID, time.Now().UTC()); err != nil {
		if errors.Is(err, models.ErrConflict) {
			observability.AcceptConflict.Inc()
			l.logger().Info("lost acceptance race", "ride_id", rideID, "driver_id", driverID)
		}
		return err
	}

	observability.RidesAccepted.Inc()
	l.notify(acceptedEvent{Event: models.EventRideAccepted, RideID: rideID, DriverID: driverID})
	l.logger().Info("ride accepted", "ride_id", rideID, "driver_id", driverID)

	if l.Payments != nil {
		go l.holdFare(rideID, current.Fare)
	}
	return nil
}

// History lists the rides where userID occupies the slot named by role,
// newest first.
func (l *Lifecycle) History(ctx context.Context, userID string, role models.Role) ([]models.Ride, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, role)
	}
	return l.Store.RidesByParticipant(ctx, userID, role)
}

// Earnings aggregates a driver's accepted rides.
func (l *Lifecycle) Earnings(ctx context.Context, driverID string) (models.EarningsSummary, error) {
	return l.Store.EarningsSummary(ctx, driverID)
}

// holdFare runs on its own goroutine with a fresh context so the hold
// survives the originating request. Failures are logged, never surfaced;
// ops reconcile unheld fares out of band.
func (l *Lifecycle) holdFare(rideID string, amount float64) {
	ctx, cancel := context.WithTimeout(context.Background(), holdTimeout)
	defer cancel()
	ref, err := l.Payments.HoldFare(ctx, rideID, amount)
	if err != nil {
		l.logger().Warn("fare hold failed", "ride_id", rideID, "error", err)
		return
	}
	l.logger().Info("fare held", "ride_id", rideID, "payment_ref", ref)
}

func (l *Lifecycle) notify(v any) {
	if l.Notifier == nil {
		return
	}
	l.Notifier.Broadcast(v)
}

func (l *Lifecycle) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
