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

type uploadFrameRequest struct {
	DeviceID  string `json:"device_id"`
	Image     string `json:"image"` // base64-encoded JPEG
	TripID    string `json:"trip_id"`
	Timestamp string `json:"timestamp"` // RFC3339, optional
}

// ----- Handler: POST /video/frames/upload -----

func (handler *StreamHTTPHandler) handleUploadFrame(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	// base64 inflates the frame by a third, leave headroom over the raw cap
	r.Body = http.MaxBytesReader(w, r.Body, 8<<20) // 8 MiB
	defer r.Body.Close()

	var req uploadFrameRequest
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

	in := ports.UploadFrameInput{
		DeviceID: strings.TrimSpace(req.DeviceID),
		Image:    req.Image,
		TripID:   strings.TrimSpace(req.TripID),
	}
	if raw := strings.TrimSpace(req.Timestamp); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "timestamp must be RFC3339", err)
			return
		}
		in.At = at.UTC()
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	viewers, err := handler.svc.UploadFrame(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{
		"status":    "ok",
		"device_id": in.DeviceID,
		"viewers":   viewers,
	})
}

// ----- Handler: GET /video/device/list -----

func (handler *StreamHTTPHandler) handleStreamingDevices(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	devices, err := handler.svc.StreamingDevices(ctx)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// ----- Handler: GET /video/device/latest/{device_id} -----

func (handler *StreamHTTPHandler) handleLatestFrame(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	deviceID := strings.TrimSpace(r.PathValue("device_id"))
	if deviceID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "device_id is required", nil)
		return
	}

	frame, err := handler.svc.LatestFrame(ctx, deviceID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, frame)
}
