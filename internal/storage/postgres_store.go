package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/King47-code/safe-ride-backend/internal/models"
)

// PostgresStore is the durable RideStore. Coordinates are stored as four
// double precision columns and the fare as NUMERIC(10,2); the accept
// transition is a single conditional UPDATE so concurrent claims resolve
// in the database, not in application code.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle; tests use this with a
// mock driver.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Close() error { return p.db.Close() }

// DB exposes the underlying handle for components that share the
// connection pool, like migrations and the identity service.
func (p *PostgresStore) DB() *sql.DB { return p.db }

const rideColumns = `id, rider_id, driver_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, dropoff_label, fare, status, requested_at, updated_at`

func (p *PostgresStore) CreateRide(ctx context.Context, r models.Ride) (models.Ride, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `INSERT INTO rides(id, rider_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, dropoff_label, fare, status, requested_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		id, r.RiderID, r.Pickup.Lat, r.Pickup.Lng, r.Dropoff.Lat, r.Dropoff.Lng, r.DropoffLabel, r.Fare, string(r.Status), r.RequestedAt, r.UpdatedAt)
	if err != nil {
		return models.Ride{}, fmt.Errorf("%w: insert ride: %v", models.ErrStorageFailure, err)
	}
	r.ID = id
	return r, nil
}

func (p *PostgresStore) GetRide(ctx context.Context, id string) (models.Ride, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id)
	r, err := scanRide(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Ride{}, fmt.Errorf("%w: ride %s", models.ErrNotFound, id)
		}
		return models.Ride{}, fmt.Errorf("%w: query ride: %v", models.ErrStorageFailure, err)
	}
	return r, nil
}

func (p *PostgresStore) ClaimRide(ctx context.Context, rideID, driverID string, at time.Time) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE rides SET driver_id=$1, status=$2, updated_at=$3 WHERE id=$4 AND status=$5 AND driver_id IS NULL`,
		driverID, string(models.StatusAccepted), at, rideID, string(models.StatusRequested))
	if err != nil {
		return fmt.Errorf("%w: claim ride: %v", models.ErrStorageFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: claim ride rows: %v", models.ErrStorageFailure, err)
	}
	if n == 0 {
		// either already claimed or the id is unknown; the lifecycle looks
		// the ride up first, so from here it is a lost race
		return fmt.Errorf("%w: ride %s already accepted", models.ErrConflict, rideID)
	}
	return nil
}

func (p *PostgresStore) RidesByParticipant(ctx context.Context, userID string, role models.Role) ([]models.Ride, error) {
	col, ok := participantColumn[role]
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, role)
	}
	rows, err := p.db.QueryContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE `+col+`=$1 ORDER BY requested_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: query rides by %s: %v", models.ErrStorageFailure, col, err)
	}
	defer rows.Close()

	var out []models.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan ride: %v", models.ErrStorageFailure, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rides: %v", models.ErrStorageFailure, err)
	}
	return out, nil
}

func (p *PostgresStore) EarningsSummary(ctx context.Context, driverID string) (models.EarningsSummary, error) {
	sum := models.EarningsSummary{DriverID: driverID}
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(fare), 0) FROM rides WHERE driver_id=$1 AND status=$2`,
		driverID, string(models.StatusAccepted)).Scan(&sum.Rides, &sum.TotalFares)
	if err != nil {
		return models.EarningsSummary{}, fmt.Errorf("%w: earnings summary: %v", models.ErrStorageFailure, err)
	}
	return sum, nil
}

// scanRide maps one row onto a Ride; sql.Row and sql.Rows both satisfy the
// scanner.
func scanRide(row interface{ Scan(dest ...any) error }) (models.Ride, error) {
	var (
		r        models.Ride
		driverID sql.NullString
		status   string
	)
	err := row.Scan(&r.ID, &r.RiderID, &driverID, &r.Pickup.Lat, &r.Pickup.Lng,
		&r.Dropoff.Lat, &r.Dropoff.Lng, &r.DropoffLabel, &r.Fare, &status,
		&r.RequestedAt, &r.UpdatedAt)
	if err != nil {
		return models.Ride{}, err
	}
	r.DriverID = driverID.String
	r.Status = models.Status(status)
	return r, nil
}
