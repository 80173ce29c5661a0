package device

import (
	"errors"
	"strings"
	"time"
)

// Device is an onboard camera/GPS unit, corresponding to the `devices` table.
type Device struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Descriptive
	Name      string
	VehicleID *string // nil until mounted in a vehicle

	// Liveness
	Status   Status
	LastPing *time.Time
}

var (
	ErrNotFound     = errors.New("device not found")
	ErrIDRequired   = errors.New("device id is required")
	ErrNameRequired = errors.New("device name is required")
)

// NewDevice constructs a device in OFFLINE state.
func NewDevice(id, name, vehicleID string) (*Device, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrIDRequired
	}
	if name = strings.TrimSpace(name); name == "" {
		return nil, ErrNameRequired
	}

	now := time.Now().UTC()
	d := &Device{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
		Status:    StatusOffline,
	}
	if vehicleID = strings.TrimSpace(vehicleID); vehicleID != "" {
		d.VehicleID = &vehicleID
	}
	return d, nil
}

// Ping records a heartbeat and marks the device ONLINE.
func (d *Device) Ping(at time.Time) {
	at = at.UTC()
	d.LastPing = &at
	d.Status = StatusOnline
	d.UpdatedAt = at
}

// Online reports whether the device pinged within the freshness window.
func (d *Device) Online(now time.Time, window time.Duration) bool {
	return d.LastPing != nil && now.Sub(*d.LastPing) <= window
}
