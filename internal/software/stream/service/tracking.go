package service

import (
	"context"
	"encoding/json"
	"time"

	"taxi-dispatch/internal/domain/geo"
	"taxi-dispatch/internal/general/contracts"
	"taxi-dispatch/internal/ports"
)

// PublishLocation validates one GPS sample, records it as the vehicle's
// latest position, and fans it out on the location exchange. Broadcasting
// and archiving happen through the consumers, so a broker outage degrades
// fan-out but never loses the latest-position cache.
func (service *streamService) PublishLocation(ctx context.Context, in ports.PublishLocationInput) error {
	loc, err := geo.NewVehicleLocation(in.VehicleID, in.Latitude, in.Longitude, in.RecordedAt)
	if err != nil {
		return err
	}
	loc.SpeedKMH = in.SpeedKMH
	loc.HeadingDegrees = in.HeadingDegrees
	loc.AccuracyMeters = in.AccuracyMeters
	loc.AltitudeMeters = in.AltitudeMeters
	if in.DeviceID != "" {
		loc.DeviceID = &in.DeviceID
	}
	if in.TripID != "" {
		loc.TripID = &in.TripID
	}
	if err := loc.Validate(); err != nil {
		return err
	}

	msg := contracts.LocationUpdateMessage{
		VehicleID:      loc.VehicleID,
		Latitude:       loc.Latitude,
		Longitude:      loc.Longitude,
		SpeedKMH:       loc.SpeedKMH,
		HeadingDegrees: loc.HeadingDegrees,
		AccuracyMeters: loc.AccuracyMeters,
		AltitudeMeters: loc.AltitudeMeters,
		DeviceID:       loc.DeviceID,
		TripID:         loc.TripID,
		Timestamp:      loc.RecordedAt,
		Envelope: contracts.Envelope{
			Producer: "stream-service",
			SentAt:   time.Now().UTC(),
		},
	}

	if err := service.liveCache.SetVehicleLocation(ctx, msg); err != nil {
		service.logger.Error(ctx, "live_cache_set_failed", "Failed to cache latest vehicle location", err,
			map[string]any{"vehicle_id": loc.VehicleID})
	}
	if loc.DeviceID != nil {
		if err := service.liveCache.TouchDevice(ctx, *loc.DeviceID, loc.RecordedAt); err != nil {
			service.logger.Error(ctx, "device_touch_failed", "Failed to refresh device presence", err,
				map[string]any{"device_id": *loc.DeviceID})
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeLocationFanout, "", body); err != nil {
		service.logger.Error(ctx, "location_publish_failed", "Failed to publish location update to RabbitMQ", err,
			map[string]any{"vehicle_id": loc.VehicleID})
		return err
	}

	service.logger.Info(ctx, "location_published", "Published vehicle location", map[string]any{
		"vehicle_id": loc.VehicleID,
		"lat":        loc.Latitude,
		"lng":        loc.Longitude,
	})
	return nil
}

// LiveLocations returns the latest known position for every vehicle still
// inside the freshness window.
func (service *streamService) LiveLocations(ctx context.Context) ([]contracts.LocationUpdateMessage, error) {
	return service.liveCache.LiveVehicleLocations(ctx)
}
