package generation

import (
	"context"
	"fmt"

	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// TextProvider generates free text from an instruction and optional inline media.
type TextProvider interface {
	// GenerateText sends a single request to the backend.
	//
	// Returns:
	//   - the raw text produced by the model
	//   - ErrProviderUnavailable when the backend is not configured
	//   - an error wrapping ErrProviderFailure for remote or response failures
	GenerateText(ctx context.Context, instruction string, media []domain.InlineMedia) (string, error)
}

// ImageProvider generates exactly one image from a prompt.
type ImageProvider interface {
	// GenerateImage sends a single request to the backend.
	//
	// Returns:
	//   - the first inline image found in the response
	//   - ErrNoImageProduced when the response carries no image part
	//   - ErrProviderUnavailable or ErrProviderFailure as for TextProvider
	GenerateImage(ctx context.Context, prompt string) (*domain.InlineMedia, error)
}

// Providers groups the text and image backends of one vendor.
type Providers struct {
	Name  string
	Text  TextProvider
	Image ImageProvider
}

// Configured reports whether a provider can serve requests. Providers that
// do not expose a Configured method are assumed to be usable.
func Configured(p any) bool {
	if p == nil {
		return false
	}
	if c, ok := p.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

// Unavailable is a provider that fails every call with ErrProviderUnavailable.
// It stands in for a backend whose credentials are missing.
type Unavailable struct {
	Reason string
}

var (
	_ TextProvider  = Unavailable{}
	_ ImageProvider = Unavailable{}
)

// Configured always reports false.
func (u Unavailable) Configured() bool { return false }

func (u Unavailable) GenerateText(context.Context, string, []domain.InlineMedia) (string, error) {
	return "", u.err()
}

func (u Unavailable) GenerateImage(context.Context, string) (*domain.InlineMedia, error) {
	return nil, u.err()
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return ErrProviderUnavailable
	}
	return fmt.Errorf("%w: %s", ErrProviderUnavailable, u.Reason)
}
