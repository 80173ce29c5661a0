package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taxi-dispatch/internal/domain/geo"
	"taxi-dispatch/internal/domain/trip"
	"taxi-dispatch/internal/general/contracts"
	"taxi-dispatch/internal/ports"
)

// RequestTrip creates a new trip in REQUESTED state and hands it to the
// matcher via the trip.offer routing key. The trip is persisted before any
// publish so a broker outage never loses a request.
func (service *dispatchService) RequestTrip(ctx context.Context, in ports.RequestTripInput) (ports.RequestTripResult, error) {
	var (
		created       *trip.Trip
		correlationID = generateCorrelationID()
	)

	pickup := geo.Point{
		Latitude:  in.PickupLatitude,
		Longitude: in.PickupLongitude,
		Address:   in.PickupAddress,
	}
	destination := geo.Point{
		Latitude:  in.DestinationLatitude,
		Longitude: in.DestinationLongitude,
		Address:   in.DestinationAddress,
	}

	t, err := trip.NewTrip(uuid.NewString(), in.CustomerID, pickup, destination)
	if err != nil {
		return ports.RequestTripResult{}, err
	}

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.tripRepo.Create(txCtx, t); err != nil {
			return err
		}

		event, err := trip.NewEvent(t.ID, trip.EventTripRequested, map[string]any{
			"customer_id":    t.CustomerID,
			"estimated_fare": t.EstimatedFare,
			"distance_km":    t.DistanceKM,
		})
		if err != nil {
			return err
		}
		if err := service.tripEventRepo.Append(txCtx, event); err != nil {
			return err
		}

		created = t
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "trip_request_failed", "Failed to create trip", err, map[string]any{
			"customer_id": in.CustomerID,
			"request_id":  correlationID,
		})
		return ports.RequestTripResult{}, err
	}

	view := contracts.NewTripView(created)
	now := time.Now().UTC()

	// publishes after the commit are best effort; a failed publish is logged
	// and never undoes the stored trip
	offerMsg := contracts.TripOfferMessage{
		Trip:      view,
		Timestamp: now,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      producerName,
			SentAt:        now,
		},
	}
	if err := service.publishTripOffer(ctx, offerMsg); err != nil {
		service.logger.Error(ctx, "trip_offer_publish_failed", "Failed to publish trip offer to RabbitMQ", err, map[string]any{
			"trip_id":    created.ID,
			"request_id": correlationID,
		})
	}

	statusMsg := contracts.TripStatusMessage{
		Trip:      view,
		Status:    created.Status.String(),
		Timestamp: now,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      producerName,
		},
	}
	if err := service.publishTripStatus(ctx, statusMsg); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish trip status to RabbitMQ", err, map[string]any{
			"trip_id":    created.ID,
			"request_id": correlationID,
		})
	}

	service.logger.Info(ctx, "trip_requested", fmt.Sprintf("Trip %s requested", created.ID), map[string]any{
		"trip_id":     created.ID,
		"customer_id": created.CustomerID,
		"request_id":  correlationID,
	})

	return ports.RequestTripResult{
		TripID:                   created.ID,
		Status:                   created.Status.String(),
		EstimatedFare:            created.EstimatedFare,
		EstimatedDurationMinutes: created.DurationMinutes,
		EstimatedDistanceKM:      created.DistanceKM,
	}, nil
}
