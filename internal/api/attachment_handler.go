package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/phrazzld/threadcraft-api/internal/api/shared"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/orchestrator"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
)

const (
	// AttachmentField is the multipart field carrying uploaded images.
	AttachmentField = "images"

	// MaxUploadBytes bounds a single attachment upload request.
	MaxUploadBytes = 40 << 20

	multipartMemory = 8 << 20
)

// AttachmentHandler serves the attachment endpoints.
type AttachmentHandler struct {
	sessions SessionProvider
	logger   *slog.Logger
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(sessions SessionProvider, logger *slog.Logger) *AttachmentHandler {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "attachment_handler")),
	}
}

// Upload handles POST /api/attachments with a multipart body.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	session, _, ok := sessionFromRequest(w, r, h.sessions, log)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		log.Debug("invalid multipart body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files, err := readAttachments(r.MultipartForm.File[AttachmentField])
	if err != nil {
		log.Warn("failed to read uploaded files", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Failed to read uploaded files")
		return
	}

	result, err := session.AddAttachments(r.Context(), files)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, attachmentResultToResponse(result))
}

// Remove handles DELETE /api/attachments/{index}.
func (h *AttachmentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	index, ok := getPathIndex(r, "index")
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid attachment index")
		return
	}

	session, _, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := session.RemoveAttachment(r.Context(), index); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	snap := session.Snapshot()
	shared.RespondWithJSON(w, r, http.StatusOK, AttachmentsResponse{
		Attachments:   attachmentsToResponse(snap.Attachments),
		Notifications: snap.Notifications,
	})
}

func readAttachments(headers []*multipart.FileHeader) ([]domain.Attachment, error) {
	files := make([]domain.Attachment, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", fh.Filename, err)
		}
		files = append(files, domain.Attachment{
			Name:     fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Size:     len(data),
			Data:     data,
		})
	}
	return files, nil
}

func attachmentResultToResponse(res orchestrator.AttachmentResult) AttachmentsResponse {
	notices := res.Notices
	if notices == nil {
		notices = []domain.Notification{}
	}
	return AttachmentsResponse{
		Added:         res.Added,
		Ignored:       res.Ignored,
		Dropped:       res.Dropped,
		Attachments:   attachmentsToResponse(res.Attachments),
		Notifications: notices,
	}
}
