package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/King47-code/safe-ride-backend/internal/models"
)

// RideStore defines persistence operations for rides. Implementations
// assign the ride id at creation and return the canonical record, so no
// identifier exists before the write commits.
type RideStore interface {
	// CreateRide persists r, assigns its id and returns the stored record.
	CreateRide(ctx context.Context, r models.Ride) (models.Ride, error)

	// GetRide returns the ride with the given id, or models.ErrNotFound.
	GetRide(ctx context.Context, id string) (models.Ride, error)

	// ClaimRide atomically assigns driverID to a ride that is still in the
	// requested state. The loser of a concurrent claim gets
	// models.ErrConflict; an unknown id gets models.ErrNotFound.
	ClaimRide(ctx context.Context, rideID, driverID string, at time.Time) error

	// RidesByParticipant returns the rides where userID occupies the slot
	// named by role, newest requested_at first.
	RidesByParticipant(ctx context.Context, userID string, role models.Role) ([]models.Ride, error)

	// EarningsSummary aggregates accepted rides for a driver.
	EarningsSummary(ctx context.Context, driverID string) (models.EarningsSummary, error)
}

// participantColumn is the only place a role is turned into a column name.
// Roles outside this table never reach a query.
var participantColumn = map[models.Role]string{
	models.RoleRider:  "rider_id",
	models.RoleDriver: "driver_id",
}

// MemoryStore keeps rides in a mutex-guarded map. It backs tests and
// PG-less local runs with the same claim semantics as Postgres.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]models.Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]models.Ride)}
}

func (m *MemoryStore) CreateRide(_ context.Context, r models.Ride) (models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	m.rides[r.ID] = r
	return r, nil
}

func (m *MemoryStore) GetRide(_ context.Context, id string) (models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return models.Ride{}, fmt.Errorf("%w: ride %s", models.ErrNotFound, id)
	}
	return r, nil
}

func (m *MemoryStore) ClaimRide(_ context.Context, rideID, driverID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[rideID]
	if !ok {
		return fmt.Errorf("%w: ride %s", models.ErrNotFound, rideID)
	}
	if r.Status != models.StatusRequested || r.DriverID != "" {
		return fmt.Errorf("%w: ride %s already accepted", models.ErrConflict, rideID)
	}
	r.DriverID = driverID
	r.Status = models.StatusAccepted
	r.UpdatedAt = at
	m.rides[rideID] = r
	return nil
}

func (m *MemoryStore) RidesByParticipant(_ context.Context, userID string, role models.Role) ([]models.Ride, error) {
	if _, ok := participantColumn[role]; !ok {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, role)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Ride
	for _, r := range m.rides {
		switch role {
		case models.RoleRider:
			if r.RiderID == userID {
				out = append(out, r)
			}
		case models.RoleDriver:
			if r.DriverID == userID {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (m *MemoryStore) EarningsSummary(_ context.Context, driverID string) (models.EarningsSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := models.EarningsSummary{DriverID: driverID}
	for _, r := range m.rides {
		if r.DriverID == driverID && r.Status == models.StatusAccepted {
			sum.Rides++
			sum.TotalFares += r.Fare
		}
	}
	return sum, nil
}

// Count reports the number of stored rides; tests use it to prove that
// failed requests persist nothing.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}
