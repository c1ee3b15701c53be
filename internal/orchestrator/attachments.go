package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/service/auth"
)

// AttachmentResult summarizes one AddAttachments call.
type AttachmentResult struct {
	Added       int                   `json:"added"`
	Ignored     int                   `json:"ignored"`
	Dropped     int                   `json:"dropped"`
	Attachments []domain.Attachment   `json:"attachments"`
	Notices     []domain.Notification `json:"notifications"`
}

// AddAttachments appends the image files to the session. Files that are not
// images are ignored, and images beyond domain.MaxAttachments are dropped.
// Each condition raises its own notification.
func (s *Session) AddAttachments(ctx context.Context, files []domain.Attachment) (AttachmentResult, error) {
	if _, err := s.authorize(ctx); err != nil {
		return AttachmentResult{}, err
	}
	if len(files) == 0 {
		return AttachmentResult{}, ErrNoAttachments
	}

	log := logger.FromContextOrDefault(ctx, s.logger)

	images := make([]domain.Attachment, 0, len(files))
	for _, f := range files {
		if a, ok := asImage(f); ok {
			images = append(images, a)
		}
	}

	s.mu.Lock()
	remaining := domain.MaxAttachments - len(s.attachments)
	accepted := images[:min(len(images), max(remaining, 0))]
	s.attachments = append(s.attachments, accepted...)
	total := len(s.attachments)
	current := slices.Clone(s.attachments)
	variant, _ := domain.ParseContentType(string(s.contentType))
	s.mu.Unlock()

	result := AttachmentResult{
		Added:       len(accepted),
		Ignored:     len(files) - len(images),
		Dropped:     len(images) - len(accepted),
		Attachments: current,
	}

	if result.Ignored > 0 {
		result.Notices = append(result.Notices, s.notifications.Error(MsgNotImages))
	}
	if result.Dropped > 0 {
		result.Notices = append(result.Notices, s.notifications.Error(
			fmt.Sprintf("Only %d images allowed - only added the first %d", domain.MaxAttachments, max(remaining, 0))))
	}
	if result.Added > 0 {
		msg := fmt.Sprintf("Added %d image", result.Added)
		if result.Added > 1 {
			msg += "s"
		}
		result.Notices = append(result.Notices, s.notifications.Success(msg))

		if variant != nil && variant.AnalyzesImages() && total > domain.MaxAnalyzedImages {
			result.Notices = append(result.Notices, s.notifications.Success(
				fmt.Sprintf("Only the first %d images will be analyzed", domain.MaxAnalyzedImages)))
		}
	}

	log.Debug("attachments updated",
		slog.Int("added", result.Added),
		slog.Int("ignored", result.Ignored),
		slog.Int("dropped", result.Dropped),
		slog.Int("total", total))
	return result, nil
}

// RemoveAttachment deletes the attachment at index.
func (s *Session) RemoveAttachment(ctx context.Context, index int) error {
	if _, err := s.authorize(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if index < 0 || index >= len(s.attachments) {
		n := len(s.attachments)
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrAttachmentIndex, index, n)
	}
	s.attachments = slices.Delete(s.attachments, index, index+1)
	s.mu.Unlock()

	s.notifications.Success(MsgImageRemoved)
	return nil
}

// SelectContentType changes the selected variant. Switching to a different
// type clears the attachments.
func (s *Session) SelectContentType(ctx context.Context, contentType domain.ContentType) error {
	if _, err := s.authorize(ctx); err != nil {
		return err
	}
	variant, err := domain.ParseContentType(string(contentType))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contentType != variant.Type() {
		s.contentType = variant.Type()
		s.attachments = nil
	}
	return nil
}

func (s *Session) attachmentSnapshot() []domain.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.attachments)
}

// asImage settles the MIME type of a file and copies its payload. Files with
// no declared image type are sniffed.
func asImage(f domain.Attachment) (domain.Attachment, bool) {
	if len(f.Data) == 0 && !f.IsImage() {
		return domain.Attachment{}, false
	}
	if !f.IsImage() {
		detected := mimetype.Detect(f.Data).String()
		if !strings.HasPrefix(detected, "image/") {
			return domain.Attachment{}, false
		}
		f.MIMEType = detected
	}

	f.Data = slices.Clone(f.Data)
	f.Size = len(f.Data)
	return f, true
}

// authorize rejects callers whose identity does not own the session.
func (s *Session) authorize(ctx context.Context) (auth.Identity, error) {
	identity, err := s.deps.Gate.Resolve(ctx)
	if err != nil {
		return auth.Identity{}, err
	}
	if identity.UserID != s.userID {
		return auth.Identity{}, fmt.Errorf("%w: identity does not own this session", domain.ErrUnauthenticated)
	}
	return identity, nil
}
