package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxi-dispatch/internal/domain/driver"
	"taxi-dispatch/internal/domain/trip"
	"taxi-dispatch/internal/general/contracts"
	"taxi-dispatch/internal/ports"
)

// AcceptTrip settles the accept race for a trip. The repository performs a
// single conditional update, so with N concurrent drivers exactly one wins;
// the rest get trip.ErrAlreadyAccepted. A repeat accept by the winner is a
// no-op success.
func (service *dispatchService) AcceptTrip(ctx context.Context, in ports.AcceptTripInput) (ports.TransitionResult, error) {
	var (
		accepted      *trip.Trip
		correlationID = generateCorrelationID()
		now           = time.Now().UTC()
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.tripRepo.Accept(txCtx, in.TripID, in.DriverID, in.VehicleID, now); err != nil {
			return err
		}

		t, err := service.tripRepo.GetByID(txCtx, in.TripID)
		if err != nil {
			return err
		}
		accepted = t

		event, err := trip.NewEvent(t.ID, trip.EventTripAccepted, map[string]any{
			"driver_id":  in.DriverID,
			"vehicle_id": in.VehicleID,
		})
		if err != nil {
			return err
		}
		if err := service.tripEventRepo.Append(txCtx, event); err != nil {
			return err
		}

		// the winning driver stops receiving new offers until the trip ends
		if err := service.driverRepo.UpdateStatus(txCtx, in.DriverID, driver.DriverStatusBusy); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, trip.ErrAlreadyAccepted) {
			service.logger.Info(ctx, "trip_accept_lost", "Driver lost the accept race", map[string]any{
				"trip_id":    in.TripID,
				"driver_id":  in.DriverID,
				"request_id": correlationID,
			})
		} else {
			service.logger.Error(ctx, "trip_accept_failed", "Failed to accept trip", err, map[string]any{
				"trip_id":    in.TripID,
				"driver_id":  in.DriverID,
				"request_id": correlationID,
			})
		}
		return ports.TransitionResult{}, err
	}

	view := contracts.NewTripView(accepted)

	takenMsg := contracts.TripTakenMessage{
		TripID:    accepted.ID,
		DriverID:  in.DriverID,
		Timestamp: now,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      producerName,
			SentAt:        now,
		},
	}
	if err := service.publishTripTaken(ctx, takenMsg); err != nil {
		service.logger.Error(ctx, "trip_taken_publish_failed", "Failed to publish trip taken to RabbitMQ", err, map[string]any{
			"trip_id":    accepted.ID,
			"request_id": correlationID,
		})
	}

	statusMsg := contracts.TripStatusMessage{
		Trip:      view,
		Status:    accepted.Status.String(),
		Timestamp: now,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      producerName,
		},
	}
	if err := service.publishTripStatus(ctx, statusMsg); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish trip status to RabbitMQ", err, map[string]any{
			"trip_id":    accepted.ID,
			"request_id": correlationID,
		})
	}

	service.logger.Info(ctx, "trip_accepted", fmt.Sprintf("Trip %s accepted by driver %s", accepted.ID, in.DriverID), map[string]any{
		"trip_id":    accepted.ID,
		"driver_id":  in.DriverID,
		"request_id": correlationID,
	})

	return ports.TransitionResult{
		Trip:      view,
		Message:   "trip accepted",
		Timestamp: now,
	}, nil
}
