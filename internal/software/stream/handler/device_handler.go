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

type registerDeviceRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	VehicleID string `json:"vehicle_id"`
}

// ----- Handler: POST /devices -----

func (handler *StreamHTTPHandler) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	defer r.Body.Close()

	var req registerDeviceRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.RegisterDevice(ctxWithTimeout, ports.RegisterDeviceInput{
		ID:        strings.TrimSpace(req.ID),
		Name:      strings.TrimSpace(req.Name),
		VehicleID: strings.TrimSpace(req.VehicleID),
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, view)
}

// ----- Handler: GET /devices -----

func (handler *StreamHTTPHandler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	views, err := handler.svc.ListDevices(ctxWithTimeout)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{
		"devices": views,
		"count":   len(views),
	})
}

// ----- Handler: GET /devices/{device_id} -----

func (handler *StreamHTTPHandler) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	deviceID := strings.TrimSpace(r.PathValue("device_id"))
	if deviceID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "device_id is required", errors.New("missing device_id"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.GetDevice(ctxWithTimeout, deviceID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- Handler: POST /devices/{device_id}/ping -----

func (handler *StreamHTTPHandler) handlePingDevice(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	deviceID := strings.TrimSpace(r.PathValue("device_id"))
	if deviceID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "device_id is required", errors.New("missing device_id"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.PingDevice(ctxWithTimeout, deviceID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}
