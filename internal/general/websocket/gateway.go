package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"taxi-dispatch/internal/domain/user"
	"taxi-dispatch/internal/general/jwt"
	"taxi-dispatch/internal/general/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Gateway upgrades HTTP requests and performs first-frame JWT auth. The
// per-endpoint handlers own their registries; the gateway only deals with
// the handshake and keepalive plumbing shared by all of them.
type Gateway struct {
	logger *logger.Logger
	jwtMgr *jwt.Manager
}

// NewGateway creates a Gateway.
func NewGateway(log *logger.Logger, jwtMgr *jwt.Manager) *Gateway {
	return &Gateway{logger: log, jwtMgr: jwtMgr}
}

// Upgrade performs the HTTP upgrade and authenticates the first frame:
// { "type":"auth", "token":"Bearer <jwt>" }. On success it sends an
// auth_success frame and returns the wrapped connection plus claims.
// On failure the socket is already closed and (nil, nil) is returned.
func (g *Gateway) Upgrade(w http.ResponseWriter, r *http.Request, allowed ...user.Role) (*Conn, *jwt.Claims) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return nil, nil
	}

	conn := newConn(raw)
	raw.SetReadLimit(wsMaxFrameBytes)

	// the auth frame must arrive quickly
	_ = raw.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	msgType, firstFrame, err := raw.ReadMessage()
	if err != nil {
		g.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		g.denyAuth(conn, "authentication timeout: send auth message within 5 seconds")
		return nil, nil
	}
	if msgType != websocket.TextMessage {
		g.denyAuth(conn, "auth message must be in text format")
		return nil, nil
	}

	res, err := jwt.ValidateWSAuth(firstFrame, g.jwtMgr, allowed...)
	if err != nil {
		g.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		g.denyAuth(conn, "authentication failed: invalid token")
		return nil, nil
	}

	if err := conn.WriteJSON(map[string]any{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		"user_id":   res.Claims.Subject,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		g.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		conn.Close(websocket.CloseInternalServerErr, "internal error")
		return nil, nil
	}

	// after auth, switch to the steady-state read deadline refreshed by pongs
	_ = raw.SetReadDeadline(time.Now().Add(wsReadTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	return conn, res.Claims
}

// KeepAlive pings the connection every 30s until stop is closed or a ping
// fails. A failed ping closes the socket to unblock the reader.
func (g *Gateway) KeepAlive(conn *Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				conn.Close(websocket.CloseGoingAway, "ping failed")
				return
			}
		}
	}
}

func (g *Gateway) denyAuth(conn *Conn, reason string) {
	_ = conn.WriteJSON(map[string]any{
		"type":    "auth_error",
		"error":   reason,
		"success": false,
	})
	conn.Close(websocket.ClosePolicyViolation, "authentication failed")
}
