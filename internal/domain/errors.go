package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownContentType is returned when a content type string does not
	// name one of the supported variants.
	ErrUnknownContentType = errors.New("unknown content type")

	// ErrEmptyPrompt is returned when a generation is requested without a prompt.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInsufficientFunds is returned when a debit exceeds the current balance.
	ErrInsufficientFunds = errors.New("insufficient points")

	// ErrInvalidAmount is returned for non-positive debit or credit amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNotAnImage is returned when an attachment does not carry image data.
	ErrNotAnImage = errors.New("attachment is not an image")

	// ErrUnauthenticated is returned when no verified identity is available.
	ErrUnauthenticated = errors.New("not authenticated")
)
