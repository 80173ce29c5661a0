package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"taxi-dispatch/internal/domain/driver"
	"taxi-dispatch/internal/domain/trip"
	"taxi-dispatch/internal/general/contracts"
	"taxi-dispatch/internal/general/websocket"
)

// RunBackgroundConsumers starts the consumers that turn matcher queue traffic
// into driver and customer channel pushes.
func (service *dispatchService) RunBackgroundConsumers(ctx context.Context) {
	service.startOfferConsumer(ctx)
	service.startStatusConsumer(ctx)
}

// startOfferConsumer consumes trip.offer and trip.taken messages and fans them
// out to connected drivers. Delivery is at-most-once: a dead socket just drops
// out of the broadcast.
func (service *dispatchService) startOfferConsumer(ctx context.Context) {
	go func() {
		err := service.rabbitmq.Consume(
			ctx,
			contracts.QueueTripOffers,
			"dispatch-offers",
			20,
			func(_ context.Context, d amqp.Delivery) error {
				switch d.RoutingKey {
				case contracts.RouteTripOffer:
					return service.handleTripOffer(ctx, d.Body)
				case contracts.RouteTripTaken:
					return service.handleTripTaken(ctx, d.Body)
				default:
					// unknown routing key: ack & ignore to avoid poison loops
					return nil
				}
			},
		)
		if err != nil && !errors.Is(err, context.Canceled) {
			service.logger.Error(ctx, "trip_offer_consume_failed",
				"Failed to consume trip offer messages", err,
				map[string]any{"queue": contracts.QueueTripOffers})
		}
	}()
}

// handleTripOffer pushes a new_trip message to every connected driver that is
// still AVAILABLE. Drivers bound to an active trip stay connected for their
// lifecycle messages but are skipped here.
func (service *dispatchService) handleTripOffer(ctx context.Context, body []byte) error {
	var msg contracts.TripOfferMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		service.logger.Error(ctx, "trip_offer_decode_failed",
			"Failed to decode trip offer message", err,
			map[string]any{"size": len(body)})
		return fmt.Errorf("decode: %w", err)
	}
	if msg.Trip.ID == "" {
		return nil
	}

	except := service.ineligibleDrivers(ctx, service.drivers.Keys())

	sent := service.drivers.Broadcast(contracts.WSNewTrip{
		Type: contracts.WSTypeNewTrip,
		Trip: msg.Trip,
		Envelope: contracts.Envelope{
			CorrelationID: msg.CorrelationID,
			Producer:      producerName,
			SentAt:        time.Now().UTC(),
		},
	}, except...)

	service.logger.Info(ctx, "new_trip_broadcast", "Offered trip to available connected drivers", map[string]any{
		"trip_id": msg.Trip.ID,
		"drivers": sent,
		"skipped": len(except),
	})
	return nil
}

// ineligibleDrivers returns the connected driver ids that may not receive
// offers right now (BUSY, OFFLINE, or unknown to the store). When the
// availability lookup fails, every connected driver stays eligible; a
// spurious offer is cheaper than a trip nobody hears about.
func (service *dispatchService) ineligibleDrivers(ctx context.Context, connected []string) []string {
	if len(connected) == 0 {
		return nil
	}

	var available []driver.Driver
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		list, err := service.driverRepo.ListAvailable(txCtx, 0)
		if err != nil {
			return err
		}
		available = list
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "driver_availability_lookup_failed",
			"Failed to load available drivers, offering to all connected", err, nil)
		return nil
	}

	dispatchable := make(map[string]bool, len(available))
	for _, d := range available {
		if d.Status.Dispatchable() {
			dispatchable[d.ID] = true
		}
	}

	var except []string
	for _, id := range connected {
		if !dispatchable[id] {
			except = append(except, id)
		}
	}
	return except
}

// handleTripTaken withdraws the offer from every driver except the winner.
func (service *dispatchService) handleTripTaken(ctx context.Context, body []byte) error {
	var msg contracts.TripTakenMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		service.logger.Error(ctx, "trip_taken_decode_failed",
			"Failed to decode trip taken message", err,
			map[string]any{"size": len(body)})
		return fmt.Errorf("decode: %w", err)
	}
	if msg.TripID == "" {
		return nil
	}

	sent := service.drivers.Broadcast(contracts.WSTripTaken{
		Type:     contracts.WSTypeTripTaken,
		TripID:   msg.TripID,
		DriverID: msg.DriverID,
		Envelope: contracts.Envelope{
			CorrelationID: msg.CorrelationID,
			Producer:      producerName,
			SentAt:        time.Now().UTC(),
		},
	}, msg.DriverID)

	service.logger.Info(ctx, "trip_taken_broadcast", "Withdrew trip offer from losing drivers", map[string]any{
		"trip_id":   msg.TripID,
		"driver_id": msg.DriverID,
		"drivers":   sent,
	})
	return nil
}

// startStatusConsumer consumes trip.status.* messages and pushes a trip
// snapshot to the trip's customer and assigned driver.
func (service *dispatchService) startStatusConsumer(ctx context.Context) {
	go func() {
		err := service.rabbitmq.Consume(
			ctx,
			contracts.QueueTripStatus,
			"dispatch-status",
			20,
			func(_ context.Context, d amqp.Delivery) error {
				var msg contracts.TripStatusMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					service.logger.Error(ctx, "trip_status_decode_failed",
						"Failed to decode trip status message", err,
						map[string]any{"size": len(d.Body)})
					return fmt.Errorf("decode: %w", err)
				}
				if msg.Trip.ID == "" {
					return nil
				}
				service.notifyTripParties(ctx, msg)
				return nil
			},
		)
		if err != nil && !errors.Is(err, context.Canceled) {
			service.logger.Error(ctx, "trip_status_consume_failed",
				"Failed to consume trip status messages", err,
				map[string]any{"queue": contracts.QueueTripStatus})
		}
	}()
}

// notifyTripParties pushes the status update to the customer channel and, once
// a driver is assigned, to the driver channel. A party without a live socket
// is skipped silently.
func (service *dispatchService) notifyTripParties(ctx context.Context, msg contracts.TripStatusMessage) {
	wsMsg := contracts.WSTripUpdate{
		Type: wsTypeForStatus(msg.Status),
		Trip: msg.Trip,
		Envelope: contracts.Envelope{
			CorrelationID: msg.CorrelationID,
			Producer:      producerName,
			SentAt:        time.Now().UTC(),
		},
	}

	if err := service.customers.Send(msg.Trip.CustomerID, wsMsg); err != nil && !errors.Is(err, websocket.ErrChannelUnavailable) {
		service.logger.Error(ctx, "ws_notify_customer_failed",
			"Failed to push trip status to customer", err,
			map[string]any{"trip_id": msg.Trip.ID, "customer_id": msg.Trip.CustomerID})
	}

	if msg.Trip.DriverID != nil && *msg.Trip.DriverID != "" {
		if err := service.drivers.Send(*msg.Trip.DriverID, wsMsg); err != nil && !errors.Is(err, websocket.ErrChannelUnavailable) {
			service.logger.Error(ctx, "ws_notify_driver_failed",
				"Failed to push trip status to driver", err,
				map[string]any{"trip_id": msg.Trip.ID, "driver_id": *msg.Trip.DriverID})
		}
	}
}

// wsTypeForStatus maps a reached trip status to its channel message type.
func wsTypeForStatus(status string) string {
	switch status {
	case trip.StatusAccepted.String():
		return contracts.WSTypeTripAccepted
	case trip.StatusArrived.String():
		return contracts.WSTypeDriverArrived
	case trip.StatusInProgress.String():
		return contracts.WSTypeTripStarted
	case trip.StatusCompleted.String():
		return contracts.WSTypeTripCompleted
	default:
		return contracts.WSTypeTripUpdate
	}
}
