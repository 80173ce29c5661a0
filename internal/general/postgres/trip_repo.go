package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taxi-dispatch/internal/domain/trip"
	"taxi-dispatch/internal/ports"

	"github.com/jackc/pgx/v5"
)

// TripRepo persists trips using pgx and plain SQL.
type TripRepo struct{}

// NewTripRepo constructs a new TripRepo.
func NewTripRepo() ports.TripRepository {
	return &TripRepo{}
}

const tripColumns = `
	id, created_at, updated_at, customer_id, driver_id, vehicle_id,
	pickup_lat, pickup_lng, pickup_address,
	destination_lat, destination_lng, destination_address,
	status, estimated_fare, final_fare, distance_km, duration_minutes,
	identity_verified, verification_score,
	accepted_at, arrived_at, start_time, end_time, cancelled_at`

// Create inserts a new trip row in REQUESTED state.
func (repo *TripRepo) Create(ctx context.Context, t *trip.Trip) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO trips (
			id, customer_id, status,
			pickup_lat, pickup_lng, pickup_address,
			destination_lat, destination_lng, destination_address,
			estimated_fare, distance_km, duration_minutes,
			identity_verified, verification_score
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`,
		t.ID,
		t.CustomerID,
		t.Status.String(), // always "REQUESTED" at creation
		t.Pickup.Latitude, t.Pickup.Longitude, t.Pickup.Address,
		t.Destination.Latitude, t.Destination.Longitude, t.Destination.Address,
		t.EstimatedFare,
		t.DistanceKM,
		t.DurationMinutes,
		t.IdentityVerified,
		t.VerificationScore,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return err
}

// GetByID fetches a trip by primary key (uuid).
func (repo *TripRepo) GetByID(ctx context.Context, id string) (*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
	t, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trip.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns trips matching the filter, newest first.
func (repo *TripRepo) List(ctx context.Context, filter ports.TripFilter) ([]*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status.String()))
	}
	if filter.DriverID != "" {
		where = append(where, "driver_id = "+arg(filter.DriverID))
	}
	if filter.VehicleID != "" {
		where = append(where, "vehicle_id = "+arg(filter.VehicleID))
	}
	if filter.CustomerID != "" {
		where = append(where, "customer_id = "+arg(filter.CustomerID))
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += " LIMIT " + arg(limit)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []*trip.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return trips, nil
}

// Accept atomically assigns the winning driver. It is a single conditional
// UPDATE so N racing drivers resolve to exactly one winner without any
// read-then-write window.
func (repo *TripRepo) Accept(ctx context.Context, tripID, driverID, vehicleID string, acceptedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var vehicle *string
	if vehicleID != "" {
		vehicle = &vehicleID
	}

	tag, err := tx.Exec(ctx, `
		UPDATE trips
		SET driver_id = $2,
		    vehicle_id = $3,
		    status = 'ACCEPTED',
		    accepted_at = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'REQUESTED'
		  AND driver_id IS NULL
	`, tripID, driverID, vehicle, acceptedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// lost the race or the trip is not acceptable: classify from current row
	var current string
	var existingDriver *string
	err = tx.QueryRow(ctx, `
		SELECT status, driver_id FROM trips WHERE id = $1
	`, tripID).Scan(&current, &existingDriver)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.ErrNotFound
		}
		return err
	}

	// idempotent success if this driver already won
	if current == trip.StatusAccepted.String() && existingDriver != nil && *existingDriver == driverID {
		return nil
	}
	if existingDriver != nil {
		return trip.ErrAlreadyAccepted
	}
	return trip.ErrInvalidTransition
}

// UpdateStatus sets the trip status and stamps the corresponding timeline
// column. The row is locked so the transition check and the write are one
// unit; re-applying the current status succeeds idempotently.
func (repo *TripRepo) UpdateStatus(ctx context.Context, id string, status trip.Status, at time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM trips
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.ErrNotFound
		}
		return err
	}

	// idempotent success
	if current == status.String() {
		return nil
	}

	if !status.Valid() {
		return trip.ErrInvalidStatus
	}
	if !trip.Status(current).CanTransitionTo(status) {
		return trip.ErrInvalidTransition
	}

	query := `
	UPDATE trips
	SET status = $1,
	    updated_at = now()
	`
	timelineColumn := timelineColumnFor(status)
	if timelineColumn != "" {
		query += `, ` + timelineColumn + ` = $2
		WHERE id = $3`
	} else {
		query += `
		WHERE id = $3`
	}

	_, err = tx.Exec(ctx, query, status.String(), at, id)
	return err
}

// Complete finalizes a trip with its final fare, stamps end_time, and moves
// to COMPLETED.
func (repo *TripRepo) Complete(ctx context.Context, tripID string, finalFare float64, completedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM trips
		WHERE id = $1
		FOR UPDATE
	`, tripID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.ErrNotFound
		}
		return err
	}

	// idempotent success
	if current == trip.StatusCompleted.String() {
		return nil
	}
	if !trip.Status(current).CanTransitionTo(trip.StatusCompleted) {
		return trip.ErrInvalidTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE trips
		SET status = 'COMPLETED',
		    final_fare = $1,
		    end_time = $2,
		    updated_at = now()
		WHERE id = $3
	`, finalFare, completedAt, tripID)
	return err
}

// Cancel stamps cancelled_at and end_time and moves to CANCELLED. Trips in
// progress or already finished cannot be cancelled.
func (repo *TripRepo) Cancel(ctx context.Context, tripID string, cancelledAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM trips
		WHERE id = $1
		FOR UPDATE
	`, tripID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.ErrNotFound
		}
		return err
	}

	// idempotent success
	if current == trip.StatusCancelled.String() {
		return nil
	}
	if !trip.Status(current).CanTransitionTo(trip.StatusCancelled) {
		return trip.ErrInvalidTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE trips
		SET status = 'CANCELLED',
		    cancelled_at = $1,
		    end_time = $1,
		    updated_at = now()
		WHERE id = $2
	`, cancelledAt, tripID)
	return err
}

// --- helpers ---

// scanTrip reads one trips row into the domain entity.
func scanTrip(row pgx.Row) (*trip.Trip, error) {
	var t trip.Trip
	var status string
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.CustomerID, &t.DriverID, &t.VehicleID,
		&t.Pickup.Latitude, &t.Pickup.Longitude, &t.Pickup.Address,
		&t.Destination.Latitude, &t.Destination.Longitude, &t.Destination.Address,
		&status, &t.EstimatedFare, &t.FinalFare, &t.DistanceKM, &t.DurationMinutes,
		&t.IdentityVerified, &t.VerificationScore,
		&t.AcceptedAt, &t.ArrivedAt, &t.StartTime, &t.EndTime, &t.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = trip.Status(status)
	return &t, nil
}

// timelineColumnFor maps a status to the timeline column that must be stamped.
func timelineColumnFor(status trip.Status) string {
	switch status {
	case trip.StatusAccepted:
		return "accepted_at"
	case trip.StatusArrived:
		return "arrived_at"
	case trip.StatusInProgress:
		return "start_time"
	case trip.StatusCompleted:
		return "end_time"
	case trip.StatusCancelled:
		return "cancelled_at"
	default:
		return ""
	}
}
