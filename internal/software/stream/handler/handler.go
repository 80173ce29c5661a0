package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"taxi-dispatch/internal/domain/device"
	"taxi-dispatch/internal/domain/geo"
	"taxi-dispatch/internal/domain/user"
	"taxi-dispatch/internal/domain/video"
	"taxi-dispatch/internal/general/jwt"
	"taxi-dispatch/internal/general/logger"
	"taxi-dispatch/internal/general/websocket"
	"taxi-dispatch/internal/ports"
)

// StreamHTTPHandler adapts HTTP and WebSocket requests to the StreamService.
type StreamHTTPHandler struct {
	svc      ports.StreamService
	logger   *logger.Logger
	auth     *jwt.Manager
	gateway  *websocket.Gateway
	tracking *websocket.Registry
	videoHub *websocket.VideoHub
}

// NewStreamHTTPHandler wires an HTTP handler around the StreamService.
func NewStreamHTTPHandler(
	svc ports.StreamService,
	logger *logger.Logger,
	auth *jwt.Manager,
	gateway *websocket.Gateway,
	tracking *websocket.Registry,
	videoHub *websocket.VideoHub,
) *StreamHTTPHandler {
	return &StreamHTTPHandler{
		svc:      svc,
		logger:   logger,
		auth:     auth,
		gateway:  gateway,
		tracking: tracking,
		videoHub: videoHub,
	}
}

// RegisterRoutes mounts tracking, video and device endpoints on the provided mux.
func (handler *StreamHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /tracking/location",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver, user.RoleAdmin)(handler.handlePublishLocation),
	)
	mux.HandleFunc("GET /tracking/live",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleDriver, user.RoleAdmin)(handler.handleLiveLocations),
	)

	mux.HandleFunc("POST /video/frames/upload", handler.handleUploadFrame)
	mux.HandleFunc("GET /video/device/list",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleDriver, user.RoleAdmin)(handler.handleStreamingDevices),
	)
	mux.HandleFunc("GET /video/device/latest/{device_id}",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleDriver, user.RoleAdmin)(handler.handleLatestFrame),
	)

	mux.HandleFunc("POST /devices",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleAdmin)(handler.handleRegisterDevice),
	)
	mux.HandleFunc("GET /devices",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleAdmin)(handler.handleListDevices),
	)
	mux.HandleFunc("GET /devices/{device_id}",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleAdmin)(handler.handleGetDevice),
	)
	mux.HandleFunc("POST /devices/{device_id}/ping", handler.handlePingDevice)

	// WebSocket channels authenticate via the first frame, not middleware
	mux.HandleFunc("GET /ws/tracking", handler.handleTrackingChannel)
	mux.HandleFunc("GET /ws/video/{device_id}", handler.handleVideoChannel)

	mux.HandleFunc("GET /health", handler.handleHealth)
}

func (handler *StreamHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "stream-service",
	})
}

// jsonResponse encodes to a buffer first so the status stays controllable on failure.
func (handler *StreamHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *StreamHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// serviceError maps stream errors onto HTTP statuses. Validation failures
// from the geo and video domains read as 400s, missing resources as 404s.
func (handler *StreamHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "device not found", err)
	case errors.Is(err, video.ErrNoFrame):
		handler.httpError(ctx, w, http.StatusNotFound, "no recent frame for device", err)
	case errors.Is(err, video.ErrFrameTooLarge):
		handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, err.Error(), err)
	case isBadInput(err):
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, "internal error", err)
	}
}

func isBadInput(err error) bool {
	for _, target := range []error{
		geo.ErrMissingVehicleID,
		geo.ErrInvalidLatitude,
		geo.ErrInvalidLongitude,
		geo.ErrNegativeAccuracy,
		geo.ErrNegativeSpeed,
		geo.ErrInvalidHeading,
		geo.ErrRecordedAtZeroTime,
		video.ErrDeviceIDRequired,
		video.ErrEmptyImage,
		video.ErrNotBase64,
		device.ErrIDRequired,
		device.ErrNameRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *StreamHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
