package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
//
// Lifecycle transitions are single conditional UPDATEs keyed on the source
// status, so concurrency control lives in the database row, not in process
// memory. No transaction spans a transition.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, rider_id, driver_id, pickup, destination, vehicle_class, fare, trip_code, status, created_at, accepted_at, started_at, ended_at, cancelled_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, rider_id, pickup, destination, vehicle_class, fare, trip_code, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		ride.Pickup,
		ride.Destination,
		ride.VehicleClass,
		ride.Fare,
		ride.TripCode,
		ride.Status,
		ride.CreatedAt,
	)

	return err
}

func scanRide(row interface{ Scan(...any) error }) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID sql.NullString
	var acceptedAt, startedAt, endedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.Pickup,
		&ride.Destination,
		&ride.VehicleClass,
		&ride.Fare,
		&ride.TripCode,
		&ride.Status,
		&ride.CreatedAt,
		&acceptedAt,
		&startedAt,
		&endedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		ride.DriverID = driverID.String
	}
	if acceptedAt.Valid {
		ride.AcceptedAt = acceptedAt.Time
	}
	if startedAt.Valid {
		ride.StartedAt = startedAt.Time
	}
	if endedAt.Valid {
		ride.EndedAt = endedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// GetByRiderID retrieves a rider's rides, newest first.
func (r *RideRepository) GetByRiderID(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE rider_id = $1 ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query, riderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

func (r *RideRepository) swap(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Accept binds a driver to a still-requested ride. The status and driver_id
// predicates make the first committed UPDATE the only one that matches.
func (r *RideRepository) Accept(ctx context.Context, rideID, driverID string, at time.Time) (bool, error) {
	query := `
		UPDATE rides SET status = $3, driver_id = $2, accepted_at = $4
		WHERE id = $1 AND status = $5 AND driver_id IS NULL
	`
	return r.swap(ctx, query, rideID, driverID, domain.RideStatusAccepted, at, domain.RideStatusRequested)
}

// Start moves an accepted ride to ongoing.
func (r *RideRepository) Start(ctx context.Context, rideID string, at time.Time) (bool, error) {
	query := `
		UPDATE rides SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4
	`
	return r.swap(ctx, query, rideID, domain.RideStatusOngoing, at, domain.RideStatusAccepted)
}

// Complete moves an ongoing ride to completed.
func (r *RideRepository) Complete(ctx context.Context, rideID string, at time.Time) (bool, error) {
	query := `
		UPDATE rides SET status = $2, ended_at = $3
		WHERE id = $1 AND status = $4
	`
	return r.swap(ctx, query, rideID, domain.RideStatusCompleted, at, domain.RideStatusOngoing)
}

// Cancel moves any non-terminal ride to cancelled.
func (r *RideRepository) Cancel(ctx context.Context, rideID string, at time.Time) (bool, error) {
	query := `
		UPDATE rides SET status = $2, cancelled_at = $3
		WHERE id = $1 AND status IN ($4, $5, $6)
	`
	return r.swap(ctx, query, rideID, domain.RideStatusCancelled, at,
		domain.RideStatusRequested, domain.RideStatusAccepted, domain.RideStatusOngoing)
}

// ExpireIfRequested cancels the ride only if no driver has claimed it yet.
func (r *RideRepository) ExpireIfRequested(ctx context.Context, rideID string, at time.Time) (bool, error) {
	query := `
		UPDATE rides SET status = $2, cancelled_at = $3
		WHERE id = $1 AND status = $4
	`
	return r.swap(ctx, query, rideID, domain.RideStatusCancelled, at, domain.RideStatusRequested)
}

// AppendMessage persists a transcript entry. The sequence number comes from
// the table's bigserial, so append order is assigned at commit time.
func (r *RideRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO ride_messages (id, ride_id, sender, body, client_time, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`

	return r.q.QueryRowContext(ctx, query,
		msg.ID,
		msg.RideID,
		msg.Sender,
		msg.Body,
		msg.ClientTime,
		msg.SentAt,
	).Scan(&msg.Seq)
}

// Messages returns a ride's transcript in append order.
func (r *RideRepository) Messages(ctx context.Context, rideID string) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, ride_id, seq, sender, body, client_time, sent_at
		FROM ride_messages WHERE ride_id = $1 ORDER BY seq ASC
	`

	rows, err := r.q.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.RideID,
			&msg.Seq,
			&msg.Sender,
			&msg.Body,
			&msg.ClientTime,
			&msg.SentAt,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
