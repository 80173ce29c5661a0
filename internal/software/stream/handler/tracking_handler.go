package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"taxi-dispatch/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type publishLocationRequest struct {
	VehicleID      string   `json:"vehicle_id"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	SpeedKMH       *float64 `json:"speed"`
	HeadingDegrees *float64 `json:"heading"`
	AccuracyMeters *float64 `json:"accuracy"`
	AltitudeMeters *float64 `json:"altitude"`
	DeviceID       string   `json:"device_id"`
	TripID         string   `json:"trip_id"`
	Timestamp      string   `json:"timestamp"` // RFC3339, optional
}

// ----- Handler: POST /tracking/location -----

func (handler *StreamHTTPHandler) handlePublishLocation(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10) // 64 KiB
	defer r.Body.Close()

	var req publishLocationRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	in := ports.PublishLocationInput{
		VehicleID:      strings.TrimSpace(req.VehicleID),
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		SpeedKMH:       req.SpeedKMH,
		HeadingDegrees: req.HeadingDegrees,
		AccuracyMeters: req.AccuracyMeters,
		AltitudeMeters: req.AltitudeMeters,
		DeviceID:       strings.TrimSpace(req.DeviceID),
		TripID:         strings.TrimSpace(req.TripID),
	}
	if raw := strings.TrimSpace(req.Timestamp); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "timestamp must be RFC3339", err)
			return
		}
		in.RecordedAt = at.UTC()
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := handler.svc.PublishLocation(ctxWithTimeout, in); err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusAccepted, map[string]any{
		"status":     "accepted",
		"vehicle_id": in.VehicleID,
	})
}

// ----- Handler: GET /tracking/live -----

func (handler *StreamHTTPHandler) handleLiveLocations(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	locations, err := handler.svc.LiveLocations(ctxWithTimeout)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{
		"locations": locations,
		"count":     len(locations),
	})
}
