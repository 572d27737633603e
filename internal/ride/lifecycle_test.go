package ride

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/King47-code/safe-ride-backend/internal/fare"
	"github.com/King47-code/safe-ride-backend/internal/geo"
	"github.com/King47-code/safe-ride-backend/internal/models"
	"github.com/King47-code/safe-ride-backend/internal/storage"
)

type fakeResolver struct {
	coord models.Coordinate
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, destination string) (models.Coordinate, error) {
	f.calls++
	if f.err != nil {
		return models.Coordinate{}, f.err
	}
	return f.coord, nil
}

type fakeNotifier struct {
	events []any
}

func (f *fakeNotifier) Broadcast(v any) { f.events = append(f.events, v) }

type holdCall struct {
	rideID string
	amount float64
}

type fakeHolder struct {
	calls chan holdCall
}

func (f *fakeHolder) HoldFare(ctx context.Context, rideID string, amount float64) (string, error) {
	f.calls <- holdCall{rideID: rideID, amount: amount}
	return "hold_ref_1", nil
}

func fixture() (*Lifecycle, *storage.MemoryStore, *fakeResolver, *fakeNotifier) {
	store := storage.NewMemoryStore()
	resolver := &fakeResolver{coord: models.Coordinate{Lat: 0, Lng: 1}}
	notifier := &fakeNotifier{}
	l := &Lifecycle{
		Store:    store,
		Resolver: resolver,
		Notifier: notifier,
		Quote:    fare.Pricing{Base: 5, PerKm: 2, CurrencyMultiplier: 1},
		Booking:  fare.Pricing{Base: 5, PerKm: 2, CurrencyMultiplier: 1},
	}
	return l, store, resolver, notifier
}

func TestQuoteFare(t *testing.T) {
	l, store, resolver, _ := fixture()

	q, err := l.QuoteFare(context.Background(), models.Coordinate{Lat: 0, Lng: 0}, "Accra Mall")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	wantDist := geo.DistanceKm(models.Coordinate{Lat: 0, Lng: 0}, resolver.coord)
	if q.DistanceKm != wantDist {
		t.Fatalf("distance = %f, want %f", q.DistanceKm, wantDist)
	}
	if q.DropoffCoords != resolver.coord {
		t.Fatalf("dropoff coords = %+v", q.DropoffCoords)
	}
	if q.EstimatedFare <= 5 {
		t.Fatalf("expected fare above base, got %f", q.EstimatedFare)
	}
	if store.Count() != 0 {
		t.Fatalf("quote persisted %d rides", store.Count())
	}
}

func TestQuoteFare_InvalidPickup(t *testing.T) {
	l, _, resolver, _ := fixture()

	_, err := l.QuoteFare(context.Background(), models.Coordinate{Lat: 91, Lng: 0}, "Accra Mall")
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver called for invalid pickup")
	}
}

func TestRequestRide(t *testing.T) {
	l, store, resolver, notifier := fixture()

	created, err := l.RequestRide(context.Background(), "r1", models.Coordinate{Lat: 0, Lng: 0}, "Accra Mall")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if created.Status != models.StatusRequested || created.DriverID != "" {
		t.Fatalf("wrong initial state: %+v", created)
	}
	if created.DropoffLabel != "Accra Mall" || created.Dropoff != resolver.coord {
		t.Fatalf("dropoff not recorded: %+v", created)
	}
	dist := geo.DistanceKm(models.Coordinate{Lat: 0, Lng: 0}, resolver.coord)
	wantFare, _ := fare.Estimate(dist, l.Booking)
	if created.Fare != wantFare {
		t.Fatalf("fare = %f, want %f", created.Fare, wantFare)
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 stored ride, got %d", store.Count())
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(notifier.events))
	}
	ev, ok := notifier.events[0].(rideEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", notifier.events[0])
	}
	if ev.Event != models.EventRideRequested || ev.Ride.ID != created.ID {
		t.Fatalf("wrong event: %+v", ev)
	}
}

func TestRequestRide_ResolveFailureLeavesNothing(t *testing.T) {
	l, store, resolver, notifier := fixture()
	resolver.err = fmt.Errorf("%w: no match", models.ErrNotFound)

	_, err := l.RequestRide(context.Background(), "r1", models.Coordinate{Lat: 0, Lng: 0}, "nowhere")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("failed request persisted %d rides", store.Count())
	}
	if len(notifier.events) != 0 {
		t.Fatalf("failed request broadcast %d events", len(notifier.events))
	}
}

func TestRequestRide_MissingRider(t *testing.T) {
	l, _, resolver, _ := fixture()

	_, err := l.RequestRide(context.Background(), "", models.Coordinate{Lat: 0, Lng: 0}, "Accra Mall")
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver called without a rider")
	}
}

func TestAcceptRide(t *testing.T) {
	l, store, _, notifier := fixture()
	created, _ := l.RequestRide(context.Background(), "r1", models.Coordinate{Lat: 0, Lng: 0}, "Accra Mall")

	if err := l.AcceptRide(context.Background(), "d1", created.ID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, _ := store.GetRide(context.Background(), created.ID)
	if got.Status != models.StatusAccepted || got.DriverID != "d1" {
		t.Fatalf("accept not applied: %+v", got)
	}

	if len(notifier.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(notifier.events))
	}
	ev, ok := notifier.events[1].(acceptedEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", notifier.events[1])
	}
	if ev.Event != models.EventRideAccepted || ev.RideID != created.ID || ev.DriverID != "d1" {
		t.Fatalf("wrong event: %+v", ev)
	}
}

func TestAcceptRide_SecondDriverConflicts(t *testing.T) {
	l, _, _, notifier := fixture()
	created, _ := l.RequestRide(context.Background(), "r1", models.Coordinate{Lat: 0, Lng: 0}, "Accra Mall")

	if err := l.AcceptRide(context.Background(), "d1", created.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if err := l.AcceptRide(context.Background(), "d2", created.ID); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	accepted := 0
	for _, ev := range notifier.events {
		if _, ok := ev.(acceptedEvent); ok {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("expected 1 accepted event, got %d", accepted)
	}
}

func TestAcceptRide_UnknownRide(t *testing.T) {
	l, _, _, _ := fixture()

	if err := l.AcceptRide(context.Background(), "d1", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptRide_HoldsFare(t *testing.T) {
	l, _, _, _ := fixture()
	holder := &fakeHolder{calls: make(chan holdCall, 1)}
	l.Payments = holder

	created, _ := l.RequestRide(context.Background(), "r1", models.Coordinate{Lat: 0, Lng: 0}, "Accra Mall")
	if err := l.AcceptRide(context.Background(), "d1", created.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	select {
	case call := <-holder.calls:
		if call.rideID != created.ID || call.amount != created.Fare {
			t.Fatalf("wrong hold: %+v", call)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fare hold never ran")
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	l, _, _, _ := fixture()
	ctx := context.Background()

	first, _ := l.RequestRide(ctx, "r1", models.Coordinate{Lat: 0, Lng: 0}, "Accra Mall")
	time.Sleep(2 * time.Millisecond)
	second, _ := l.RequestRide(ctx, "r1", models.Coordinate{Lat: 0, Lng: 0}, "Osu")
	if err := l.AcceptRide(ctx, "d1", first.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	rides, err := l.History(ctx, "r1", models.RoleRider)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rides) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(rides))
	}
	if rides[0].ID != second.ID || rides[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", rides[0].ID, rides[1].ID)
	}

	got := rides[1]
	if got.Fare != first.Fare || !got.RequestedAt.Equal(first.RequestedAt) ||
		got.Pickup != first.Pickup || got.Dropoff != first.Dropoff {
		t.Fatalf("immutable fields changed: %+v vs %+v", got, first)
	}
	if got.Status != models.StatusAccepted || got.DriverID != "d1" {
		t.Fatalf("accept not visible in history: %+v", got)
	}
	if got.UpdatedAt.Before(got.RequestedAt) {
		t.Fatalf("updated_at before requested_at")
	}

	if _, err := l.History(ctx, "r1", models.Role("admin")); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestEarnings(t *testing.T) {
	l, _, _, _ := fixture()
	ctx := context.Background()

	created, _ := l.RequestRide(ctx, "r1", models.Coordinate{Lat: 0, Lng: 0}, "Accra Mall")
	if err := l.AcceptRide(ctx, "d1", created.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	sum, err := l.Earnings(ctx, "d1")
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if sum.Rides != 1 || sum.TotalFares != created.Fare {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}
