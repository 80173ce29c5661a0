package handler

import (
	"net/http"
	"strings"

	gorilla "github.com/gorilla/websocket"

	"taxi-dispatch/internal/domain/user"
	"taxi-dispatch/internal/general/websocket"
)

// ----- Handler: GET /ws/trips/driver/{driver_id} -----

// handleDriverChannel upgrades a driver's socket, authenticates the first
// frame, and registers the connection as the driver's single active channel.
// A reconnect supersedes and closes the previous socket.
func (handler *DispatchHTTPHandler) handleDriverChannel(w http.ResponseWriter, r *http.Request) {
	handler.serveChannel(w, r, handler.drivers, "driver_id", user.RoleDriver)
}

// ----- Handler: GET /ws/trips/customer/{customer_id} -----

func (handler *DispatchHTTPHandler) handleCustomerChannel(w http.ResponseWriter, r *http.Request) {
	handler.serveChannel(w, r, handler.customers, "customer_id", user.RoleCustomer)
}

// serveChannel runs the shared channel lifecycle: upgrade + auth, verify the
// path id against the token subject, register, then block on the read loop
// until the peer goes away. Inbound frames are drained and ignored; these
// channels are push-only.
func (handler *DispatchHTTPHandler) serveChannel(
	w http.ResponseWriter,
	r *http.Request,
	registry *websocket.Registry,
	pathParam string,
	role user.Role,
) {
	ctx := handler.withReqID(r.Context(), r)

	id := strings.TrimSpace(r.PathValue(pathParam))
	if id == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, pathParam+" is required", nil)
		return
	}

	conn, claims := handler.gateway.Upgrade(w, r, role)
	if conn == nil {
		return
	}

	if claims.Subject != id {
		handler.logger.Error(ctx, "ws_subject_mismatch", "Channel id does not match token subject", nil,
			map[string]any{"channel": registry.Name(), "path_id": id, "subject": claims.Subject})
		conn.Close(gorilla.ClosePolicyViolation, pathParam+" does not match token subject")
		return
	}

	registry.Register(id, conn)
	handler.logger.Info(ctx, "ws_channel_opened", "WebSocket channel registered",
		map[string]any{"channel": registry.Name(), "id": id})

	stop := make(chan struct{})
	go handler.gateway.KeepAlive(conn, stop)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(stop)
	registry.Unregister(id, conn)
	conn.Close(gorilla.CloseNormalClosure, "bye")

	handler.logger.Info(ctx, "ws_channel_closed", "WebSocket channel closed",
		map[string]any{"channel": registry.Name(), "id": id})
}
