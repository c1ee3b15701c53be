package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/threadcraft-api/internal/api/shared"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/orchestrator"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/service"
	"github.com/phrazzld/threadcraft-api/internal/service/auth"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingSubject):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrHistoryNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, orchestrator.ErrAttachmentIndex):
		return http.StatusNotFound

	// Points errors
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired

	// Bad request errors
	case errors.Is(err, domain.ErrUnknownContentType),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrEmptyPrompt),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, orchestrator.ErrNoAttachments),
		errors.Is(err, service.ErrInvalidUserID):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingSubject):
		return "Invalid token"

	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required"

	case errors.Is(err, domain.ErrUnauthenticated):
		return orchestrator.MsgSignIn

	case errors.Is(err, service.ErrHistoryNotFound):
		return "History entry not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, orchestrator.ErrAttachmentIndex):
		return "Attachment not found"

	case errors.Is(err, orchestrator.ErrNoAttachments):
		return "No files provided"

	case errors.Is(err, domain.ErrInsufficientFunds):
		return orchestrator.MsgInsufficientPoints

	case errors.Is(err, domain.ErrUnknownContentType):
		return "Unsupported content type"

	case errors.Is(err, domain.ErrEmptyPrompt):
		return orchestrator.MsgEmptyPrompt

	case errors.Is(err, domain.ErrInvalidAmount):
		return "Amount must be positive"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid request data"

	default:
		if strings.Contains(err.Error(), "load history") {
			return "Failed to load history"
		}
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err. A
// non-empty message overrides the safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	status := MapErrorToStatusCode(err)

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'GenerateRequest.Prompt' Error:Field validation for 'Prompt' failed on the 'max' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// respondValidationError logs the raw validation error and sends the
// sanitized form.
func respondValidationError(w http.ResponseWriter, r *http.Request, err error, log *slog.Logger) {
	log = logger.FromContextOrDefault(r.Context(), log)
	log.Debug("request validation failed", slog.String("error", err.Error()))
	shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
}
