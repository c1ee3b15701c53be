package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyHistoryContent = errors.New("history content cannot be empty")
	ErrEmptyHistoryPrompt  = errors.New("history prompt cannot be empty")
)

// HistoryEntry is an append-only record of a completed generation.
type HistoryEntry struct {
	ID          uuid.UUID   `json:"id"`
	UserID      string      `json:"user_id"`
	ContentType ContentType `json:"content_type"`
	Prompt      string      `json:"prompt"`
	Content     string      `json:"content"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewHistoryEntry creates an entry for generated content.
func NewHistoryEntry(userID string, content *GeneratedContent) (*HistoryEntry, error) {
	body := content.Joined()
	if content.Image != nil {
		// image history keeps a reference that can be rendered directly
		body = content.ImageURL
		if body == "" {
			body = content.Image.DataURL()
		}
	}

	entry := &HistoryEntry{
		ID:          uuid.New(),
		UserID:      userID,
		ContentType: content.ContentType,
		Prompt:      content.Prompt,
		Content:     body,
		CreatedAt:   time.Now().UTC(),
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Validate checks if the HistoryEntry has valid data.
func (e *HistoryEntry) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if _, err := ParseContentType(string(e.ContentType)); err != nil {
		return err
	}
	if strings.TrimSpace(e.Prompt) == "" {
		return ErrEmptyHistoryPrompt
	}
	if strings.TrimSpace(e.Content) == "" {
		return ErrEmptyHistoryContent
	}
	return nil
}

// Restore rebuilds displayable content from the entry, split per its variant.
func (e *HistoryEntry) Restore() (*GeneratedContent, error) {
	variant, err := ParseContentType(string(e.ContentType))
	if err != nil {
		return nil, err
	}

	content := &GeneratedContent{
		ContentType: e.ContentType,
		Prompt:      e.Prompt,
		Segments:    variant.Segments(e.Content),
		CreatedAt:   e.CreatedAt,
	}
	if variant.Modality() == ModalityImage {
		content.ImageURL = e.Content
	}
	return content, nil
}
