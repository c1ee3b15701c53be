package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/threadcraft-api/internal/api/shared"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/phrazzld/threadcraft-api/internal/orchestrator"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
)

// GenerationHandler serves generation and session selection endpoints.
type GenerationHandler struct {
	sessions SessionProvider
	logger   *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(sessions SessionProvider, logger *slog.Logger) *GenerationHandler {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "generation_handler")),
	}
}

// Generate handles POST /api/generations. The response body always carries
// the outcome; the status reflects how far the cycle got.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req GenerateRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	session, _, ok := sessionFromRequest(w, r, h.sessions, log)
	if !ok {
		return
	}

	out := session.Generate(r.Context(), domain.ContentType(req.ContentType), req.Prompt)
	shared.RespondWithJSON(w, r, outcomeStatus(out), outcomeToResponse(out))
}

// GetSession handles GET /api/session.
func (h *GenerationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, _, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snapshotToResponse(session.Snapshot()))
}

// SelectContentType handles PUT /api/session/content-type.
func (h *GenerationHandler) SelectContentType(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SelectContentTypeRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	session, _, ok := sessionFromRequest(w, r, h.sessions, log)
	if !ok {
		return
	}

	if err := session.SelectContentType(r.Context(), domain.ContentType(req.ContentType)); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snapshotToResponse(session.Snapshot()))
}

// outcomeStatus maps a generation outcome to an HTTP status.
func outcomeStatus(out orchestrator.Outcome) int {
	switch out.State {
	case orchestrator.StateDone:
		return http.StatusCreated
	case orchestrator.StatePartiallyFailed:
		return http.StatusOK
	}

	if out.Failure == orchestrator.FailureProvider {
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(out.Err, orchestrator.ErrBusy):
		return http.StatusConflict
	case errors.Is(out.Err, generation.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(out.Err, domain.ErrEmptyPrompt),
		errors.Is(out.Err, domain.ErrUnknownContentType),
		errors.Is(out.Err, domain.ErrUnauthenticated),
		errors.Is(out.Err, domain.ErrInsufficientFunds):
		return MapErrorToStatusCode(out.Err)
	default:
		return http.StatusServiceUnavailable
	}
}
