package domain

import (
	"encoding/base64"
	"strings"
	"time"
)

// MaxAttachments caps the number of images a session may hold.
const MaxAttachments = 10

// DefaultImageMIMEType is assumed when a provider omits the MIME type of an image.
const DefaultImageMIMEType = "image/png"

// InlineMedia is a binary payload forwarded to or returned by a provider.
type InlineMedia struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

// DataURL renders the media as a data URL suitable for display or download.
func (m InlineMedia) DataURL() string {
	mime := m.MIMEType
	if mime == "" {
		mime = DefaultImageMIMEType
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}

// Attachment is an image the user attached to the current session.
type Attachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
	Data     []byte `json:"-"`
}

// IsImage reports whether the declared MIME type is an image type.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MIMEType, "image/")
}

// GenerationRequest is the provider-neutral request built from user input.
// It is not modified after construction.
type GenerationRequest struct {
	Variant     Variant
	Prompt      string
	Instruction string
	Media       []InlineMedia
}

// GeneratedContent is the normalized result of a generation.
type GeneratedContent struct {
	ContentType ContentType  `json:"content_type"`
	Prompt      string       `json:"prompt"`
	Segments    []string     `json:"segments"`
	Image       *InlineMedia `json:"-"`
	ImageURL    string       `json:"image_url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Usable reports whether the content has at least one non-blank segment.
func (c *GeneratedContent) Usable() bool {
	if c == nil {
		return false
	}
	for _, s := range c.Segments {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Joined returns the segments in their stored form.
func (c *GeneratedContent) Joined() string {
	return strings.Join(c.Segments, SegmentSeparator)
}

// PointsTransaction records the effect of one ledger operation.
type PointsTransaction struct {
	UserID  string `json:"user_id"`
	Delta   int    `json:"delta"`
	Balance int    `json:"balance"`
}
