package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/orchestrator"
)

// GenerateRequest is the body of POST /api/generations. An empty content
// type uses the session's selected type; an empty prompt is reported by the
// orchestrator as a precondition failure.
type GenerateRequest struct {
	ContentType string `json:"content_type" validate:"omitempty,oneof=twitter instagram linkedin image"`
	Prompt      string `json:"prompt"       validate:"max=4000"`
}

// SelectContentTypeRequest is the body of PUT /api/session/content-type.
type SelectContentTypeRequest struct {
	ContentType string `json:"content_type" validate:"required,oneof=twitter instagram linkedin image"`
}

// GenerationResponse reports one generation cycle.
type GenerationResponse struct {
	State        string                `json:"state"`
	Failure      string                `json:"failure,omitempty"`
	Message      string                `json:"message"`
	Content      *ContentResponse      `json:"content,omitempty"`
	HistoryEntry *HistoryEntryResponse `json:"history_entry,omitempty"`
	Charged      int                   `json:"charged"`
	Balance      int                   `json:"balance"`
	Notification domain.Notification   `json:"notification"`
	DurationMS   int64                 `json:"duration_ms"`
}

// ContentResponse is displayable generated content.
type ContentResponse struct {
	ContentType string    `json:"content_type"`
	Prompt      string    `json:"prompt"`
	Segments    []string  `json:"segments"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryEntryResponse is one stored generation.
type HistoryEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	ContentType string    `json:"content_type"`
	Prompt      string    `json:"prompt"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryResponse lists stored generations newest first.
type HistoryResponse struct {
	Entries []HistoryEntryResponse `json:"entries"`
}

// MeResponse is the account view returned by GET /api/me.
type MeResponse struct {
	UserID  string                 `json:"user_id"`
	Email   string                 `json:"email,omitempty"`
	Name    string                 `json:"name,omitempty"`
	Balance int                    `json:"balance"`
	History []HistoryEntryResponse `json:"history"`
}

// AttachmentResponse describes an attached image without its payload.
type AttachmentResponse struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// AttachmentsResponse reports the attachment list after a change.
type AttachmentsResponse struct {
	Added         int                   `json:"added"`
	Ignored       int                   `json:"ignored"`
	Dropped       int                   `json:"dropped"`
	Attachments   []AttachmentResponse  `json:"attachments"`
	Notifications []domain.Notification `json:"notifications"`
}

// ContentTypeResponse describes a supported variant.
type ContentTypeResponse struct {
	Type           string `json:"type"`
	Modality       string `json:"modality"`
	Cost           int    `json:"cost"`
	AnalyzesImages bool   `json:"analyzes_images"`
}

// SessionResponse is the snapshot returned by GET /api/session.
type SessionResponse struct {
	State          string                 `json:"state"`
	Busy           bool                   `json:"busy"`
	ContentType    string                 `json:"content_type"`
	Prompt         string                 `json:"prompt"`
	Balance        *int                   `json:"balance"`
	Displayed      *ContentResponse       `json:"displayed,omitempty"`
	Attachments    []AttachmentResponse   `json:"attachments"`
	History        []HistoryEntryResponse `json:"history"`
	Notifications  []domain.Notification  `json:"notifications"`
	ContentTypes   []ContentTypeResponse  `json:"content_types"`
	ExamplePrompts []string               `json:"example_prompts"`
}

func contentToResponse(c *domain.GeneratedContent) *ContentResponse {
	if c == nil {
		return nil
	}
	segments := c.Segments
	if segments == nil {
		segments = []string{}
	}
	return &ContentResponse{
		ContentType: string(c.ContentType),
		Prompt:      c.Prompt,
		Segments:    segments,
		ImageURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt,
	}
}

func historyEntryToResponse(e domain.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:          e.ID,
		ContentType: string(e.ContentType),
		Prompt:      e.Prompt,
		Content:     e.Content,
		CreatedAt:   e.CreatedAt,
	}
}

func historyToResponse(entries []domain.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = historyEntryToResponse(e)
	}
	return out
}

func attachmentsToResponse(attachments []domain.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, len(attachments))
	for i, a := range attachments {
		out[i] = AttachmentResponse{Index: i, Name: a.Name, MIMEType: a.MIMEType, Size: a.Size}
	}
	return out
}

func outcomeToResponse(out orchestrator.Outcome) GenerationResponse {
	resp := GenerationResponse{
		State:        out.State.String(),
		Failure:      out.Failure.String(),
		Message:      out.Notification.Message,
		Content:      contentToResponse(out.Content),
		Charged:      out.Charged,
		Balance:      out.Balance,
		Notification: out.Notification,
		DurationMS:   out.Duration.Milliseconds(),
	}
	if out.Entry != nil {
		entry := historyEntryToResponse(*out.Entry)
		resp.HistoryEntry = &entry
	}
	return resp
}

func snapshotToResponse(snap orchestrator.Snapshot) SessionResponse {
	variants := domain.Variants()
	types := make([]ContentTypeResponse, len(variants))
	for i, v := range variants {
		types[i] = ContentTypeResponse{
			Type:           string(v.Type()),
			Modality:       v.Modality().String(),
			Cost:           v.Cost(),
			AnalyzesImages: v.AnalyzesImages(),
		}
	}

	return SessionResponse{
		State:          snap.State.String(),
		Busy:           snap.Busy,
		ContentType:    string(snap.ContentType),
		Prompt:         snap.Prompt,
		Balance:        snap.Balance,
		Displayed:      contentToResponse(snap.Displayed),
		Attachments:    attachmentsToResponse(snap.Attachments),
		History:        historyToResponse(snap.History),
		Notifications:  snap.Notifications,
		ContentTypes:   types,
		ExamplePrompts: domain.ImageExamplePrompts,
	}
}
