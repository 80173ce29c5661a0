package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"

	"taxi-dispatch/internal/domain/user"
)

// ----- Handler: GET /ws/tracking -----

// handleTrackingChannel serves the map view: every authenticated viewer
// receives all live location updates. Viewers are keyed by a per-connection
// id so any number of sockets per user can watch at once.
func (handler *StreamHTTPHandler) handleTrackingChannel(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	conn, claims := handler.gateway.Upgrade(w, r, user.RoleCustomer, user.RoleDriver, user.RoleAdmin)
	if conn == nil {
		return
	}

	viewerID := claims.Subject + ":" + uuid.NewString()
	handler.tracking.Register(viewerID, conn)
	handler.logger.Info(ctx, "tracking_viewer_joined", "Tracking viewer connected",
		map[string]any{"viewer": viewerID})

	stop := make(chan struct{})
	go handler.gateway.KeepAlive(conn, stop)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(stop)
	handler.tracking.Unregister(viewerID, conn)
	conn.Close(gorilla.CloseNormalClosure, "bye")

	handler.logger.Info(ctx, "tracking_viewer_left", "Tracking viewer disconnected",
		map[string]any{"viewer": viewerID})
}

// ----- Handler: GET /ws/video/{device_id} -----

// handleVideoChannel subscribes the viewer to one device's frames. The hub
// replays the cached frame on subscribe when it is still fresh.
func (handler *StreamHTTPHandler) handleVideoChannel(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	deviceID := strings.TrimSpace(r.PathValue("device_id"))
	if deviceID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "device_id is required", nil)
		return
	}

	conn, claims := handler.gateway.Upgrade(w, r, user.RoleCustomer, user.RoleDriver, user.RoleAdmin)
	if conn == nil {
		return
	}

	handler.videoHub.Subscribe(deviceID, conn)
	handler.logger.Info(ctx, "video_viewer_joined", "Video viewer subscribed",
		map[string]any{"device_id": deviceID, "viewer": claims.Subject})

	stop := make(chan struct{})
	go handler.gateway.KeepAlive(conn, stop)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(stop)
	handler.videoHub.Unsubscribe(deviceID, conn)
	conn.Close(gorilla.CloseNormalClosure, "bye")

	handler.logger.Info(ctx, "video_viewer_left", "Video viewer unsubscribed",
		map[string]any{"device_id": deviceID, "viewer": claims.Subject})
}
