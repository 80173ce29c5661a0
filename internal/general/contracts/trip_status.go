package contracts

import "time"

// TripStatusMessage is published by the dispatch service after every trip
// state mutation. Routing key: "trip.status.{status}" on ExchangeTripTopic.
type TripStatusMessage struct {
	Trip      TripView  `json:"trip"`
	Status    string    `json:"status"` // REQUESTED|ACCEPTED|ARRIVED|IN_PROGRESS|COMPLETED|CANCELLED
	Timestamp time.Time `json:"timestamp"`
	Envelope
}

// TripOfferMessage is published on trip creation so the matcher can offer
// the trip to connected drivers. Routing key: RouteTripOffer.
type TripOfferMessage struct {
	Trip      TripView  `json:"trip"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}

// TripTakenMessage is published when a driver wins a trip so the matcher
// can withdraw the offer everywhere else. Routing key: RouteTripTaken.
type TripTakenMessage struct {
	TripID    string    `json:"trip_id"`
	DriverID  string    `json:"driver_id"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
