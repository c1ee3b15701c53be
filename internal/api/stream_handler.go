package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamReadLimit  = 4096
)

// StreamHandler upgrades GET /api/notifications/ws to a websocket and pushes the
// caller's notifications and session events until the connection closes.
type StreamHandler struct {
	sessions SessionProvider
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(sessions SessionProvider, hub *Hub, logger *slog.Logger) *StreamHandler {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if hub == nil {
		panic("hub cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		sessions: sessions,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Access is gated by the bearer token, not the origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "stream_handler")),
	}
}

// Stream handles GET /api/notifications/ws.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	session, identity, ok := sessionFromRequest(w, r, h.sessions, log)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	c := h.hub.register(identity.UserID)
	defer h.hub.unregister(c)

	notifications, cancel := session.Notifications().Subscribe()
	defer cancel()

	log.Info("stream opened", slog.String("user_id", identity.UserID))
	defer log.Info("stream closed", slog.String("user_id", identity.UserID))

	snap := snapshotToResponse(session.Snapshot())
	if err := writeFrame(conn, Frame{Type: FrameSnapshot, Session: &snap}); err != nil {
		log.Debug("failed to write snapshot", slog.String("error", err.Error()))
		return
	}

	closed := make(chan struct{})
	go readLoop(conn, closed)

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return

		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(streamWriteWait))
			return

		case payload := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug("failed to write event", slog.String("error", err.Error()))
				return
			}

		case n, ok := <-notifications:
			if !ok {
				return
			}
			if err := writeFrame(conn, Frame{Type: FrameNotification, Notification: &n}); err != nil {
				log.Debug("failed to write notification", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

// readLoop discards client messages and keeps the read deadline fresh. It
// closes done when the connection fails.
func readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
