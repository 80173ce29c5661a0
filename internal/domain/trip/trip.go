package trip

import (
	"strings"
	"time"

	"taxi-dispatch/internal/domain/geo"
)

// Trip is the domain entity corresponding to the `trips` table.
type Trip struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Actors
	CustomerID string
	DriverID   *string // nil until accepted
	VehicleID  *string // nil until accepted

	// Route
	Pickup      geo.Point
	Destination geo.Point

	// Core state
	Status Status

	// Money & estimates
	EstimatedFare   float64
	FinalFare       *float64
	DistanceKM      float64
	DurationMinutes int

	// Identity verification (filled by an external verifier, if at all)
	IdentityVerified  bool
	VerificationScore *float64

	// Lifecycle timestamps
	AcceptedAt  *time.Time
	ArrivedAt   *time.Time
	StartTime   *time.Time
	EndTime     *time.Time
	CancelledAt *time.Time
}

// NewTrip creates a trip in REQUESTED state with fare and duration estimates
// derived from the route.
func NewTrip(id, customerID string, pickup, destination geo.Point) (*Trip, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, Invalid("id", "required")
	}
	if customerID = strings.TrimSpace(customerID); customerID == "" {
		return nil, Invalid("customer_id", "required")
	}
	if !pickup.Valid() {
		return nil, Invalid("pickup", "coordinates out of range")
	}
	if !destination.Valid() {
		return nil, Invalid("destination", "coordinates out of range")
	}

	distance := HaversineKM(pickup.Latitude, pickup.Longitude, destination.Latitude, destination.Longitude)
	duration := EstimateDurationMinutes(distance)

	now := time.Now().UTC()
	return &Trip{
		ID:              id,
		CreatedAt:       now,
		UpdatedAt:       now,
		CustomerID:      customerID,
		Pickup:          pickup,
		Destination:     destination,
		Status:          StatusRequested,
		EstimatedFare:   EstimateFare(distance, duration),
		DistanceKM:      distance,
		DurationMinutes: duration,
	}, nil
}

// Accept binds the winning driver and vehicle and moves REQUESTED -> ACCEPTED.
// A second accept on the same trip fails with ErrAlreadyAccepted.
func (t *Trip) Accept(driverID, vehicleID string, at time.Time) error {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return Invalid("driver_id", "required")
	}
	if t.DriverID != nil && *t.DriverID != "" {
		return ErrAlreadyAccepted
	}
	if t.Status != StatusRequested {
		return ErrInvalidTransition
	}

	t.DriverID = &driverID
	if vehicleID = strings.TrimSpace(vehicleID); vehicleID != "" {
		t.VehicleID = &vehicleID
	}
	at = at.UTC()
	t.AcceptedAt = &at
	t.setStatus(StatusAccepted)
	return nil
}

// MarkArrived transitions ACCEPTED -> ARRIVED.
func (t *Trip) MarkArrived(at time.Time) error {
	if t.Status != StatusAccepted {
		return ErrInvalidTransition
	}
	at = at.UTC()
	t.ArrivedAt = &at
	t.setStatus(StatusArrived)
	return nil
}

// Start transitions ARRIVED -> IN_PROGRESS.
func (t *Trip) Start(at time.Time) error {
	if t.Status != StatusArrived {
		return ErrInvalidTransition
	}
	at = at.UTC()
	t.StartTime = &at
	t.setStatus(StatusInProgress)
	return nil
}

// Complete transitions IN_PROGRESS -> COMPLETED and fixes the final fare.
// A zero finalFare falls back to the estimate.
func (t *Trip) Complete(finalFare float64, at time.Time) error {
	if t.Status != StatusInProgress {
		return ErrInvalidTransition
	}
	if finalFare <= 0 {
		finalFare = t.EstimatedFare
	}
	at = at.UTC()
	t.EndTime = &at
	t.FinalFare = &finalFare
	t.setStatus(StatusCompleted)
	return nil
}

// Cancel transitions to CANCELLED. Trips already in progress or in a
// terminal state cannot be cancelled.
func (t *Trip) Cancel(at time.Time) error {
	if !t.Status.CanTransitionTo(StatusCancelled) {
		return ErrInvalidTransition
	}
	at = at.UTC()
	t.CancelledAt = &at
	t.EndTime = &at
	t.setStatus(StatusCancelled)
	return nil
}

// ----- internal helpers -----

func (t *Trip) setStatus(status Status) {
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
}
