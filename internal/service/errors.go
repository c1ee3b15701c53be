package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is; the API layer maps them to HTTP
// status codes.
var (
	// ErrInvalidUserID indicates an empty user identifier was supplied.
	ErrInvalidUserID = errors.New("user id cannot be empty")

	// ErrHistoryNotFound indicates the requested history entry does not exist
	// or belongs to another user.
	// API layer should map this to HTTP 404 Not Found.
	ErrHistoryNotFound = errors.New("history entry not found")
)
