package contracts

import "time"

// LocationUpdateMessage is broadcast by the stream service for every accepted
// GPS sample. Exchange: ExchangeLocationFanout (fanout, no routing key).
type LocationUpdateMessage struct {
	VehicleID      string    `json:"vehicle_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	SpeedKMH       *float64  `json:"speed,omitempty"`
	HeadingDegrees *float64  `json:"heading,omitempty"`
	AccuracyMeters *float64  `json:"accuracy,omitempty"`
	AltitudeMeters *float64  `json:"altitude,omitempty"`
	DeviceID       *string   `json:"device_id,omitempty"`
	TripID         *string   `json:"trip_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Envelope
}
