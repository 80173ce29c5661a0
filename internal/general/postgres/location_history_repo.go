package postgres

import (
	"context"

	"taxi-dispatch/internal/domain/geo"
	"taxi-dispatch/internal/ports"
)

// LocationHistoryRepo archives GPS samples using pgx and plain SQL.
type LocationHistoryRepo struct{}

// NewLocationHistoryRepo constructs a new LocationHistoryRepo.
func NewLocationHistoryRepo() ports.LocationHistoryRepository {
	return &LocationHistoryRepo{}
}

// Archive inserts one sample into location_history.
func (repo *LocationHistoryRepo) Archive(ctx context.Context, loc *geo.VehicleLocation) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if err := loc.Validate(); err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO location_history (
			vehicle_id, latitude, longitude,
			speed_kmh, heading_degrees, accuracy_meters, altitude_meters,
			device_id, trip_id, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		loc.VehicleID, loc.Latitude, loc.Longitude,
		loc.SpeedKMH, loc.HeadingDegrees, loc.AccuracyMeters, loc.AltitudeMeters,
		loc.DeviceID, loc.TripID, loc.RecordedAt,
	).Scan(&loc.ID)
	return err
}
