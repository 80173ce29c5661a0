package geo

import (
	"errors"
	"math"
	"strings"
	"time"
)

// VehicleLocation is one GPS sample from a vehicle, as broadcast on the
// tracking channel and archived in the `location_history` table.
type VehicleLocation struct {
	ID             string
	VehicleID      string
	Latitude       float64
	Longitude      float64
	SpeedKMH       *float64
	HeadingDegrees *float64
	AccuracyMeters *float64
	AltitudeMeters *float64
	DeviceID       *string
	TripID         *string
	RecordedAt     time.Time
}

var (
	ErrMissingVehicleID   = errors.New("vehicle ID is missing")
	ErrInvalidLatitude    = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude   = errors.New("longitude must be between -180 and 180")
	ErrNegativeAccuracy   = errors.New("accuracy_meters cannot be negative")
	ErrNegativeSpeed      = errors.New("speed_kmh cannot be negative")
	ErrInvalidHeading     = errors.New("heading_degrees must be between 0 and 360")
	ErrRecordedAtZeroTime = errors.New("recorded_at must be a valid timestamp")
)

// NewVehicleLocation constructs a validated GPS sample. Only the vehicle id
// and the coordinates are strictly required, everything else is optional.
func NewVehicleLocation(vehicleID string, latitude, longitude float64, recordedAt time.Time) (*VehicleLocation, error) {
	loc := &VehicleLocation{
		VehicleID:  strings.TrimSpace(vehicleID),
		Latitude:   latitude,
		Longitude:  longitude,
		RecordedAt: recordedAt,
	}
	if loc.RecordedAt.IsZero() {
		loc.RecordedAt = time.Now().UTC()
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return loc, nil
}

// Validate checks invariants of the VehicleLocation entity.
func (loc VehicleLocation) Validate() error {
	if loc.VehicleID == "" {
		return ErrMissingVehicleID
	}

	if loc.Latitude < -90 || loc.Latitude > 90 || math.IsNaN(loc.Latitude) {
		return ErrInvalidLatitude
	}
	if loc.Longitude < -180 || loc.Longitude > 180 || math.IsNaN(loc.Longitude) {
		return ErrInvalidLongitude
	}

	// optional metrics
	if loc.AccuracyMeters != nil {
		if *loc.AccuracyMeters < 0 || math.IsNaN(*loc.AccuracyMeters) {
			return ErrNegativeAccuracy
		}
	}
	if loc.SpeedKMH != nil {
		if *loc.SpeedKMH < 0 || math.IsNaN(*loc.SpeedKMH) {
			return ErrNegativeSpeed
		}
	}
	if loc.HeadingDegrees != nil {
		// allow exactly 0 and 360 (some SDKs report 360.0 instead of 0.0)
		if *loc.HeadingDegrees < 0 || *loc.HeadingDegrees > 360 || math.IsNaN(*loc.HeadingDegrees) {
			return ErrInvalidHeading
		}
	}

	if loc.RecordedAt.IsZero() {
		return ErrRecordedAtZeroTime
	}
	return nil
}

// Fresh reports whether the sample is newer than the freshness window.
func (loc VehicleLocation) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(loc.RecordedAt) <= window
}
