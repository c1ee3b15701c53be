package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/events"
)

// Frame types sent over the stream.
const (
	FrameSnapshot     = "snapshot"
	FrameEvent        = "event"
	FrameNotification = "notification"
)

// clientBuffer is the per-connection outbound queue depth.
const clientBuffer = 32

// Frame is one message written to a stream connection.
type Frame struct {
	Type         string               `json:"type"`
	Event        *events.Event        `json:"event,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
	Session      *SessionResponse     `json:"session,omitempty"`
}

type client struct {
	userID string
	send   chan []byte
}

// Hub fans session events out to the stream connections of their user. It
// implements events.EventHandler.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	logger  *slog.Logger
}

var _ events.EventHandler = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger.With(slog.String("component", "stream_hub")),
	}
}

// HandleEvent queues the event for every connection of event.UserID.
// Connections whose queue is full miss the event.
func (h *Hub) HandleEvent(_ context.Context, event *events.Event) error {
	if event == nil {
		return nil
	}
	payload, err := json.Marshal(Frame{Type: FrameEvent, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal stream frame: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[event.UserID] {
		select {
		case c.send <- payload:
		default:
			h.logger.Debug("dropping event for slow stream client",
				slog.String("user_id", event.UserID),
				slog.String("event_type", event.Type))
		}
	}
	return nil
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(userID string) *client {
	c := &client{userID: userID, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}
