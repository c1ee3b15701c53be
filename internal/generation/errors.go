package generation

import (
	"errors"
	"fmt"

	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// Common errors returned by the generation package
var (
	// ErrProviderUnavailable is returned when a provider has no credentials or
	// is otherwise not configured. No remote call is attempted.
	ErrProviderUnavailable = errors.New("generation provider unavailable")

	// ErrProviderFailure is returned for remote failures and for responses that
	// are malformed or carry no usable content.
	ErrProviderFailure = errors.New("generation provider failed")

	// ErrNoImageProduced is returned when an image response has no inline image part.
	ErrNoImageProduced = fmt.Errorf("%w: no image was generated", ErrProviderFailure)

	// ErrContentBlocked is returned when the provider refuses the prompt on safety grounds.
	ErrContentBlocked = fmt.Errorf("%w: content blocked by safety filters", ErrProviderFailure)

	// ErrEmptyResponse is returned when the provider answers without any text.
	ErrEmptyResponse = fmt.Errorf("%w: empty response", ErrProviderFailure)

	// ErrInvalidConfig is returned when a provider configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyPrompt is returned by the request builder for blank prompts.
	ErrEmptyPrompt = domain.ErrEmptyPrompt
)
