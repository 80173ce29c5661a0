package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"taxi-dispatch/internal/domain/geo"
	"taxi-dispatch/internal/general/contracts"
)

// RunBackgroundConsumers starts the consumers that mirror accepted GPS
// samples onto tracking sockets and into the history table.
func (service *streamService) RunBackgroundConsumers(ctx context.Context) {
	service.startBroadcastConsumer(ctx)
	service.startArchiveConsumer(ctx)
	service.startStaleDeviceSweeper(ctx)
}

// startStaleDeviceSweeper periodically marks ONLINE devices whose last ping
// fell out of the freshness window as OFFLINE.
func (service *streamService) startStaleDeviceSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(service.freshnessWindow)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				service.sweepStaleDevices(ctx)
			}
		}
	}()
}

func (service *streamService) sweepStaleDevices(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-service.freshnessWindow)
	var marked int
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		n, err := service.deviceRepo.MarkStale(txCtx, cutoff)
		if err != nil {
			return err
		}
		marked = n
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "stale_device_sweep_failed",
			"Failed to mark stale devices offline", err, nil)
		return
	}
	if marked > 0 {
		service.logger.Info(ctx, "stale_devices_marked", "Marked stale devices offline", map[string]any{
			"count":  marked,
			"cutoff": cutoff,
		})
	}
}

// startBroadcastConsumer pushes every location update to all connected
// tracking viewers. Delivery is at-most-once per viewer.
func (service *streamService) startBroadcastConsumer(ctx context.Context) {
	go func() {
		err := service.rabbitmq.Consume(
			ctx,
			contracts.QueueLocationBroadcast,
			"stream-broadcast",
			50,
			func(_ context.Context, d amqp.Delivery) error {
				var msg contracts.LocationUpdateMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					service.logger.Error(ctx, "location_decode_failed",
						"Failed to decode location update", err,
						map[string]any{"size": len(d.Body)})
					return fmt.Errorf("decode: %w", err)
				}
				if msg.VehicleID == "" {
					return nil
				}

				sent := service.tracking.Broadcast(contracts.WSLocationUpdate{
					Type: contracts.WSTypeLocationUpdate,
					Data: msg,
				})
				service.logger.Debug(ctx, "location_broadcast", "Pushed location to tracking viewers",
					map[string]any{"vehicle_id": msg.VehicleID, "viewers": sent})
				return nil
			},
		)
		if err != nil && !errors.Is(err, context.Canceled) {
			service.logger.Error(ctx, "location_broadcast_consume_failed",
				"Failed to consume location broadcast messages", err,
				map[string]any{"queue": contracts.QueueLocationBroadcast})
		}
	}()
}

// startArchiveConsumer persists every location update into location_history.
func (service *streamService) startArchiveConsumer(ctx context.Context) {
	go func() {
		err := service.rabbitmq.Consume(
			ctx,
			contracts.QueueLocationArchive,
			"stream-archive",
			50,
			func(_ context.Context, d amqp.Delivery) error {
				var msg contracts.LocationUpdateMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					service.logger.Error(ctx, "location_decode_failed",
						"Failed to decode location update", err,
						map[string]any{"size": len(d.Body)})
					return fmt.Errorf("decode: %w", err)
				}
				if msg.VehicleID == "" {
					return nil
				}
				return service.archiveLocation(ctx, msg)
			},
		)
		if err != nil && !errors.Is(err, context.Canceled) {
			service.logger.Error(ctx, "location_archive_consume_failed",
				"Failed to consume location archive messages", err,
				map[string]any{"queue": contracts.QueueLocationArchive})
		}
	}()
}

func (service *streamService) archiveLocation(ctx context.Context, msg contracts.LocationUpdateMessage) error {
	loc := &geo.VehicleLocation{
		VehicleID:      msg.VehicleID,
		Latitude:       msg.Latitude,
		Longitude:      msg.Longitude,
		SpeedKMH:       msg.SpeedKMH,
		HeadingDegrees: msg.HeadingDegrees,
		AccuracyMeters: msg.AccuracyMeters,
		AltitudeMeters: msg.AltitudeMeters,
		DeviceID:       msg.DeviceID,
		TripID:         msg.TripID,
		RecordedAt:     msg.Timestamp,
	}
	if loc.RecordedAt.IsZero() {
		loc.RecordedAt = time.Now().UTC()
	}
	if err := loc.Validate(); err != nil {
		// malformed samples are acked and dropped so they cannot poison the queue
		service.logger.Error(ctx, "location_archive_rejected", "Dropped invalid location sample", err,
			map[string]any{"vehicle_id": msg.VehicleID})
		return nil
	}

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.historyRepo.Archive(txCtx, loc)
	})
	if err != nil {
		service.logger.Error(ctx, "location_archive_failed", "Failed to archive location sample", err,
			map[string]any{"vehicle_id": msg.VehicleID})
		return err
	}
	return nil
}
