package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/api/shared"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/orchestrator"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/service/auth"
)

// SessionProvider returns the generation session of a user.
type SessionProvider interface {
	Get(userID string) (*orchestrator.Session, error)
}

// sessionFromRequest resolves the caller's session. It writes an error
// response and returns false when the caller is unauthenticated or the
// session cannot be created.
func sessionFromRequest(
	w http.ResponseWriter,
	r *http.Request,
	sessions SessionProvider,
	log *slog.Logger,
) (*orchestrator.Session, auth.Identity, bool) {
	log = logger.FromContextOrDefault(r.Context(), log)

	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		log.Warn("identity not found in request context")
		HandleAPIError(w, r, domain.ErrUnauthenticated, "")
		return nil, auth.Identity{}, false
	}

	session, err := sessions.Get(identity.UserID)
	if err != nil {
		log.Error("failed to open session", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "Failed to open session")
		return nil, auth.Identity{}, false
	}
	return session, identity, true
}

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, paramName))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// getPathIndex extracts a non-negative integer from the URL path parameters.
func getPathIndex(r *http.Request, paramName string) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, paramName))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// decodeAndValidate decodes a JSON body into req and validates it. It
// writes a 400 response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any, log *slog.Logger) bool {
	if err := shared.DecodeJSON(w, r, req); err != nil {
		logger.FromContextOrDefault(r.Context(), log).Debug("invalid request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		respondValidationError(w, r, err, log)
		return false
	}
	return true
}
