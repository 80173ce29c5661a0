package driver

import (
	"errors"
	"strings"
	"time"
)

// Driver is the domain entity corresponding to the `drivers` table.
type Driver struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Descriptive
	Name      string
	VehicleID *string // nil until a vehicle is assigned

	// Operational state
	Status DriverStatus
}

var (
	ErrUserIDRequired      = errors.New("user id is required")
	ErrInvalidStatusSwitch = errors.New("invalid driver status transition")
)

// NewDriver creates a new Driver entity with sane defaults.
func NewDriver(userID, name, vehicleID string) (*Driver, error) {
	if userID = strings.TrimSpace(userID); userID == "" {
		return nil, ErrUserIDRequired
	}

	now := time.Now().UTC()
	d := &Driver{
		ID:        userID,
		CreatedAt: now,
		UpdatedAt: now,
		Name:      strings.TrimSpace(name),
		Status:    DriverStatusOffline,
	}
	if vehicleID = strings.TrimSpace(vehicleID); vehicleID != "" {
		d.VehicleID = &vehicleID
	}
	return d, nil
}

// ---- State transitions (minimal, explicit) ----

// MarkAvailable transitions OFFLINE/BUSY -> AVAILABLE.
func (driver *Driver) MarkAvailable() error {
	switch driver.Status {
	case DriverStatusOffline, DriverStatusBusy:
		driver.setStatus(DriverStatusAvailable)
		return nil
	default:
		return ErrInvalidStatusSwitch
	}
}

// MarkBusy transitions AVAILABLE -> BUSY (after winning a trip).
func (driver *Driver) MarkBusy() error {
	if driver.Status != DriverStatusAvailable {
		return ErrInvalidStatusSwitch
	}
	driver.setStatus(DriverStatusBusy)
	return nil
}

// GoOffline transitions AVAILABLE/BUSY -> OFFLINE.
func (driver *Driver) GoOffline() error {
	switch driver.Status {
	case DriverStatusAvailable, DriverStatusBusy:
		driver.setStatus(DriverStatusOffline)
		return nil
	default:
		return ErrInvalidStatusSwitch
	}
}

// ---- internal helpers ----

func (driver *Driver) setStatus(status DriverStatus) {
	driver.Status = status
	driver.UpdatedAt = time.Now().UTC()
}
