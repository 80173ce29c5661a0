package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"taxi-dispatch/internal/general/contracts"
)

const producerName = "dispatch-service"

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405")
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// publishTripOffer sends a freshly requested trip to the matcher queue using
// routing key trip.offer on the trip topic exchange.
func (service *dispatchService) publishTripOffer(ctx context.Context, msg contracts.TripOfferMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeTripTopic, contracts.RouteTripOffer, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "trip_offer_published", "Published trip offer to RabbitMQ", map[string]any{
		"routing_key": contracts.RouteTripOffer,
		"trip_id":     msg.Trip.ID,
	})
	return nil
}

// publishTripTaken announces the winner of an accept race using routing key
// trip.taken so losing drivers get the offer withdrawn.
func (service *dispatchService) publishTripTaken(ctx context.Context, msg contracts.TripTakenMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeTripTopic, contracts.RouteTripTaken, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "trip_taken_published", "Published trip taken to RabbitMQ", map[string]any{
		"routing_key": contracts.RouteTripTaken,
		"trip_id":     msg.TripID,
	})
	return nil
}

// publishTripStatus sends a trip status update to the trip topic exchange using
// routing key trip.status.{status}, e.g., trip.status.accepted.
func (service *dispatchService) publishTripStatus(ctx context.Context, msg contracts.TripStatusMessage) error {
	routingKey := contracts.RouteTripStatusPrefix + strings.ToLower(msg.Status)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeTripTopic, routingKey, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "trip_status_published", "Published trip status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
		"trip_id":     msg.Trip.ID,
	})
	return nil
}
