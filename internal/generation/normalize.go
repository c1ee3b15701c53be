package generation

import (
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// Normalize splits raw provider text into segments according to the variant.
// It never fails; an empty slice is a valid result.
func Normalize(variant domain.Variant, raw string) []string {
	return variant.Segments(raw)
}

// NormalizeText builds the displayable content for a text generation.
func NormalizeText(req *domain.GenerationRequest, raw string) *domain.GeneratedContent {
	return &domain.GeneratedContent{
		ContentType: req.Variant.Type(),
		Prompt:      req.Prompt,
		Segments:    Normalize(req.Variant, raw),
		CreatedAt:   time.Now().UTC(),
	}
}

// NormalizeImage builds the displayable content for an image generation. The
// single segment is the data URL of the image.
func NormalizeImage(req *domain.GenerationRequest, image *domain.InlineMedia) *domain.GeneratedContent {
	content := &domain.GeneratedContent{
		ContentType: req.Variant.Type(),
		Prompt:      req.Prompt,
		CreatedAt:   time.Now().UTC(),
	}
	if image == nil || len(image.Data) == 0 {
		return content
	}
	content.Image = image
	content.Segments = Normalize(req.Variant, image.DataURL())
	return content
}
