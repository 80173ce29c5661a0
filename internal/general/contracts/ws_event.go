package contracts

import "time"

// WebSocket message types. Driver channels receive new_trip / trip_taken plus
// the trip_* lifecycle messages for their assigned trip; customer channels
// receive the lifecycle messages for their own trips.
const (
	WSTypeNewTrip        = "new_trip"
	WSTypeTripTaken      = "trip_taken"
	WSTypeTripUpdate     = "trip_update"
	WSTypeTripAccepted   = "trip_accepted"
	WSTypeDriverArrived  = "driver_arrived"
	WSTypeTripStarted    = "trip_started"
	WSTypeTripCompleted  = "trip_completed"
	WSTypeLocationUpdate = "location_update"
	WSTypeFrame          = "frame"
)

// WSNewTrip is broadcast to every connected driver when a trip is requested.
type WSNewTrip struct {
	Type string   `json:"type"` // "new_trip"
	Trip TripView `json:"trip"`
	Envelope
}

// WSTripTaken withdraws an offer from the drivers who lost the race.
type WSTripTaken struct {
	Type     string `json:"type"` // "trip_taken"
	TripID   string `json:"trip_id"`
	DriverID string `json:"driver_id"`
	Envelope
}

// WSTripUpdate carries a full trip snapshot after a lifecycle change.
// Type is one of the trip_* lifecycle message types.
type WSTripUpdate struct {
	Type string   `json:"type"`
	Trip TripView `json:"trip"`
	Envelope
}

// WSLocationUpdate mirrors GPS samples onto tracking sockets.
type WSLocationUpdate struct {
	Type string                `json:"type"` // "location_update"
	Data LocationUpdateMessage `json:"data"`
}

// WSFrame is one video frame pushed to a device's subscribers.
type WSFrame struct {
	Type      string    `json:"type"` // "frame"
	DeviceID  string    `json:"device_id"`
	Image     string    `json:"image"` // base64-encoded JPEG
	Timestamp time.Time `json:"timestamp"`
	Size      int       `json:"size"`
	TripID    *string   `json:"trip_id,omitempty"`
}
