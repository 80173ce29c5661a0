package service

import (
	"context"
	"fmt"
	"time"

	"taxi-dispatch/internal/domain/driver"
	"taxi-dispatch/internal/domain/trip"
	"taxi-dispatch/internal/general/contracts"
	"taxi-dispatch/internal/ports"
)

// MarkArrived transitions ACCEPTED -> ARRIVED.
func (service *dispatchService) MarkArrived(ctx context.Context, tripID string) (ports.TransitionResult, error) {
	return service.transition(ctx, tripID, trip.StatusArrived, "driver arrived", func(txCtx context.Context, now time.Time) error {
		return service.tripRepo.UpdateStatus(txCtx, tripID, trip.StatusArrived, now)
	})
}

// StartTrip transitions ARRIVED -> IN_PROGRESS.
func (service *dispatchService) StartTrip(ctx context.Context, tripID string) (ports.TransitionResult, error) {
	return service.transition(ctx, tripID, trip.StatusInProgress, "trip started", func(txCtx context.Context, now time.Time) error {
		return service.tripRepo.UpdateStatus(txCtx, tripID, trip.StatusInProgress, now)
	})
}

// CompleteTrip transitions IN_PROGRESS -> COMPLETED, fixes the final fare and
// frees the driver for new offers. Without a positive metered fare the trip is
// repriced from its stored distance and duration, which settles at the
// estimate.
func (service *dispatchService) CompleteTrip(ctx context.Context, in ports.CompleteTripInput) (ports.TransitionResult, error) {
	return service.transition(ctx, in.TripID, trip.StatusCompleted, "trip completed", func(txCtx context.Context, now time.Time) error {
		fare := in.FinalFare
		if fare <= 0 {
			t, err := service.tripRepo.GetByID(txCtx, in.TripID)
			if err != nil {
				return err
			}
			fare = trip.ComputeFinalFare(t.DistanceKM, t.DurationMinutes)
		}
		return service.tripRepo.Complete(txCtx, in.TripID, fare, now)
	})
}

// CancelTrip cancels a trip that has not started yet. Trips in progress or in
// a terminal state reject the cancel with trip.ErrInvalidTransition.
func (service *dispatchService) CancelTrip(ctx context.Context, tripID string) (ports.TransitionResult, error) {
	return service.transition(ctx, tripID, trip.StatusCancelled, "trip cancelled", func(txCtx context.Context, now time.Time) error {
		return service.tripRepo.Cancel(txCtx, tripID, now)
	})
}

// transition runs a lifecycle mutation, appends the audit event, frees the
// driver when the trip reaches a terminal state, and publishes the resulting
// status. The publish is best effort and never undoes the stored mutation.
func (service *dispatchService) transition(
	ctx context.Context,
	tripID string,
	next trip.Status,
	message string,
	mutate func(txCtx context.Context, now time.Time) error,
) (ports.TransitionResult, error) {
	var (
		updated       *trip.Trip
		correlationID = generateCorrelationID()
		now           = time.Now().UTC()
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if err := mutate(txCtx, now); err != nil {
			return err
		}

		t, err := service.tripRepo.GetByID(txCtx, tripID)
		if err != nil {
			return err
		}
		updated = t

		event, err := trip.NewEvent(t.ID, trip.EventTypeForStatus(next), map[string]any{
			"status": next.String(),
		})
		if err != nil {
			return err
		}
		if err := service.tripEventRepo.Append(txCtx, event); err != nil {
			return err
		}

		if next.Terminal() && t.DriverID != nil && *t.DriverID != "" {
			if err := service.driverRepo.UpdateStatus(txCtx, *t.DriverID, driver.DriverStatusAvailable); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "trip_transition_failed", "Failed to apply trip transition", err, map[string]any{
			"trip_id":    tripID,
			"next":       next.String(),
			"request_id": correlationID,
		})
		return ports.TransitionResult{}, err
	}

	view := contracts.NewTripView(updated)

	statusMsg := contracts.TripStatusMessage{
		Trip:      view,
		Status:    updated.Status.String(),
		Timestamp: now,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      producerName,
		},
	}
	if err := service.publishTripStatus(ctx, statusMsg); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish trip status to RabbitMQ", err, map[string]any{
			"trip_id":    tripID,
			"request_id": correlationID,
		})
	}

	service.logger.Info(ctx, "trip_transitioned", fmt.Sprintf("Trip %s is now %s", tripID, updated.Status), map[string]any{
		"trip_id":    tripID,
		"status":     updated.Status.String(),
		"request_id": correlationID,
	})

	return ports.TransitionResult{
		Trip:      view,
		Message:   message,
		Timestamp: now,
	}, nil
}
