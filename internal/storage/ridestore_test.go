package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/King47-code/safe-ride-backend/internal/models"
)

func sampleRide(riderID string, at time.Time) models.Ride {
	return models.Ride{
		RiderID:      riderID,
		Pickup:       models.Coordinate{Lat: 5.6037, Lng: -0.187},
		Dropoff:      models.Coordinate{Lat: 5.65, Lng: -0.19},
		DropoffLabel: "Accra Mall",
		Fare:         25,
		Status:       models.StatusRequested,
		RequestedAt:  at,
		UpdatedAt:    at,
	}
}

func TestMemoryStoreCreateAssignsID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateRide(ctx, sampleRide("r1", time.Now().UTC()))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned id")
	}
	got, err := s.GetRide(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != created {
		t.Fatalf("stored ride differs: %+v vs %+v", got, created)
	}
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetRide(context.Background(), "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreClaimRide(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	created, _ := s.CreateRide(ctx, sampleRide("r1", time.Now().UTC()))

	at := time.Now().UTC()
	if err := s.ClaimRide(ctx, created.ID, "d1", at); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, _ := s.GetRide(ctx, created.ID)
	if got.DriverID != "d1" || got.Status != models.StatusAccepted {
		t.Fatalf("claim not applied: %+v", got)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Fatalf("updated_at not set: %v", got.UpdatedAt)
	}

	if err := s.ClaimRide(ctx, created.ID, "d2", time.Now().UTC()); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := s.ClaimRide(ctx, "missing", "d1", time.Now().UTC()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreConcurrentClaimSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	created, _ := s.CreateRide(ctx, sampleRide("r1", time.Now().UTC()))

	const drivers = 16
	var wg sync.WaitGroup
	errs := make([]error, drivers)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.ClaimRide(ctx, created.ID, "d"+string(rune('a'+i)), time.Now().UTC())
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrConflict):
		default:
			t.Fatalf("driver %d: unexpected err %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	got, _ := s.GetRide(ctx, created.ID)
	if got.Status != models.StatusAccepted || got.DriverID == "" {
		t.Fatalf("final state wrong: %+v", got)
	}
}

func TestMemoryStoreRidesByParticipant(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	old, _ := s.CreateRide(ctx, sampleRide("r1", base))
	newer, _ := s.CreateRide(ctx, sampleRide("r1", base.Add(time.Hour)))
	other, _ := s.CreateRide(ctx, sampleRide("r2", base.Add(2*time.Hour)))
	if err := s.ClaimRide(ctx, other.ID, "d1", base.Add(3*time.Hour)); err != nil {
		t.Fatalf("claim: %v", err)
	}

	rides, err := s.RidesByParticipant(ctx, "r1", models.RoleRider)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rides) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(rides))
	}
	if rides[0].ID != newer.ID || rides[1].ID != old.ID {
		t.Fatalf("expected newest first, got %s then %s", rides[0].ID, rides[1].ID)
	}

	driven, err := s.RidesByParticipant(ctx, "d1", models.RoleDriver)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(driven) != 1 || driven[0].ID != other.ID {
		t.Fatalf("driver history wrong: %+v", driven)
	}

	if _, err := s.RidesByParticipant(ctx, "r1", models.Role("admin")); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestMemoryStoreEarningsSummary(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	at := time.Now().UTC()

	first, _ := s.CreateRide(ctx, sampleRide("r1", at))
	second, _ := s.CreateRide(ctx, sampleRide("r2", at))
	_, _ = s.CreateRide(ctx, sampleRide("r3", at))
	_ = s.ClaimRide(ctx, first.ID, "d1", at)
	_ = s.ClaimRide(ctx, second.ID, "d1", at)

	sum, err := s.EarningsSummary(ctx, "d1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sum.Rides != 2 {
		t.Fatalf("expected 2 rides, got %d", sum.Rides)
	}
	if sum.TotalFares != 50 {
		t.Fatalf("expected total 50, got %f", sum.TotalFares)
	}
}
