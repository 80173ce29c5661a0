package ports

import (
	"context"
	"time"

	"taxi-dispatch/internal/domain/device"
	"taxi-dispatch/internal/domain/driver"
	"taxi-dispatch/internal/domain/geo"
	"taxi-dispatch/internal/domain/trip"
	"taxi-dispatch/internal/general/contracts"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TripFilter narrows TripRepository.List. Empty fields are ignored.
type TripFilter struct {
	Status     trip.Status
	DriverID   string
	VehicleID  string
	CustomerID string
	Limit      int
}

// TripRepository defines the methods for managing trip data.
type TripRepository interface {
	Create(ctx context.Context, t *trip.Trip) error
	GetByID(ctx context.Context, id string) (*trip.Trip, error)
	List(ctx context.Context, filter TripFilter) ([]*trip.Trip, error)

	// Accept must be atomic: with N concurrent calls for the same trip,
	// exactly one succeeds and the rest get trip.ErrAlreadyAccepted.
	Accept(ctx context.Context, tripID, driverID, vehicleID string, acceptedAt time.Time) error

	UpdateStatus(ctx context.Context, id string, status trip.Status, at time.Time) error
	Complete(ctx context.Context, tripID string, finalFare float64, completedAt time.Time) error
	Cancel(ctx context.Context, tripID string, cancelledAt time.Time) error
}

// TripEventRepository defines the methods for managing trip event data.
type TripEventRepository interface {
	Append(ctx context.Context, e *trip.Event) error
}

// DriverRepository defines the methods for managing driver data.
type DriverRepository interface {
	GetByID(ctx context.Context, driverID string) (*driver.Driver, error)
	UpdateStatus(ctx context.Context, driverID string, status driver.DriverStatus) error
	ListAvailable(ctx context.Context, limit int) ([]driver.Driver, error)
}

// DeviceRepository defines the methods for managing onboard devices.
type DeviceRepository interface {
	Upsert(ctx context.Context, d *device.Device) error
	GetByID(ctx context.Context, id string) (*device.Device, error)
	List(ctx context.Context) ([]*device.Device, error)
	Ping(ctx context.Context, id string, at time.Time) error
	MarkStale(ctx context.Context, cutoff time.Time) (int, error)
}

// LocationHistoryRepository defines the methods for archiving GPS samples.
type LocationHistoryRepository interface {
	Archive(ctx context.Context, loc *geo.VehicleLocation) error
}

// LiveCache holds short-lived latest-value state (vehicle positions, device
// presence) that expires on its own after the freshness window.
type LiveCache interface {
	SetVehicleLocation(ctx context.Context, msg contracts.LocationUpdateMessage) error
	LiveVehicleLocations(ctx context.Context) ([]contracts.LocationUpdateMessage, error)
	TouchDevice(ctx context.Context, deviceID string, at time.Time) error
	DeviceOnline(ctx context.Context, deviceID string) (bool, error)
}
