package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// Event types.
const (
	TypeContentDisplayed   = "content.displayed"
	TypeGenerationFinished = "generation.finished"
)

// Event is a presentation event scoped to one user.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// UserID is the owner of the session that produced the event
	UserID string `json:"user_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// ContentDisplayed is the payload of TypeContentDisplayed.
type ContentDisplayed struct {
	ContentType domain.ContentType `json:"content_type"`
	Prompt      string             `json:"prompt"`
	Segments    []string           `json:"segments"`
	Source      string             `json:"source"`
}

// Display sources.
const (
	SourceGeneration = "generation"
	SourceHistory    = "history"
)

// GenerationFinished is the payload of TypeGenerationFinished.
type GenerationFinished struct {
	ContentType domain.ContentType `json:"content_type"`
	Provider    string             `json:"provider,omitempty"`
	State       string             `json:"state"`
	Failure     string             `json:"failure,omitempty"`
	Cost        int                `json:"cost"`
	Balance     int                `json:"balance"`
	Duration    time.Duration      `json:"duration"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType, userID string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}
