package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/threadcraft-api/internal/api/shared"
)

// HistoryHandler serves account and history endpoints.
type HistoryHandler struct {
	sessions SessionProvider
	logger   *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(sessions SessionProvider, logger *slog.Logger) *HistoryHandler {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "history_handler")),
	}
}

// Me handles GET /api/me. It creates the account on first sign-in.
func (h *HistoryHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, identity, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	account, err := session.Refresh(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load account")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MeResponse{
		UserID:  identity.UserID,
		Email:   identity.Email,
		Name:    identity.Name,
		Balance: account.Balance,
		History: historyToResponse(account.History),
	})
}

// List handles GET /api/history.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	session, _, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	account, err := session.Refresh(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load history")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{Entries: historyToResponse(account.History)})
}

// Select handles POST /api/history/{id}/select. It redisplays a stored
// generation without charging points.
func (h *HistoryHandler) Select(w http.ResponseWriter, r *http.Request) {
	id, ok := getPathUUID(r, "id")
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid history entry ID")
		return
	}

	session, _, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	content, err := session.SelectHistoryEntry(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, contentToResponse(content))
}
