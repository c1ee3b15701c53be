package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"google.golang.org/genai"
)

// Sampling settings for image generation.
const (
	imageTemperature     = 0.8
	imageTopP            = 0.95
	imageTopK            = 40
	imageMaxOutputTokens = 8192
)

// ImageProvider implements generation.ImageProvider on an image-capable
// Gemini model.
type ImageProvider struct {
	client  contentGenerator
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ generation.ImageProvider = (*ImageProvider)(nil)

func newImageProvider(client contentGenerator, model string, timeout time.Duration, log *slog.Logger) *ImageProvider {
	return &ImageProvider{client: client, model: model, timeout: timeout, logger: log}
}

func imageConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:        genai.Ptr[float32](imageTemperature),
		TopP:               genai.Ptr[float32](imageTopP),
		TopK:               genai.Ptr[float32](imageTopK),
		MaxOutputTokens:    imageMaxOutputTokens,
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
}

// GenerateImage returns the first inline-data part found scanning
// candidates, then their content, then parts.
func (p *ImageProvider) GenerateImage(ctx context.Context, prompt string) (*domain.InlineMedia, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.GenerateContent(ctx, p.model, genai.Text(prompt), imageConfig())
	if err != nil {
		log.Error("gemini image request failed",
			slog.String("error", err.Error()),
			slog.String("model", p.model),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", generation.ErrProviderFailure, err)
	}
	if err := checkResponse(resp); err != nil {
		if errors.Is(err, generation.ErrEmptyResponse) {
			log.Warn("gemini response carried no candidates", slog.String("model", p.model))
			return nil, generation.ErrNoImageProduced
		}
		log.Warn("gemini image response rejected",
			slog.String("error", err.Error()),
			slog.String("model", p.model))
		return nil, err
	}

	image := firstInlineImage(resp)
	if image == nil {
		log.Warn("gemini response carried no image", slog.String("model", p.model))
		return nil, generation.ErrNoImageProduced
	}

	log.Info("gemini image generated",
		slog.String("model", p.model),
		slog.String("mime_type", image.MIMEType),
		slog.Int("bytes", len(image.Data)),
		slog.Duration("elapsed", time.Since(start)))
	return image, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) *domain.InlineMedia {
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = domain.DefaultImageMIMEType
			}
			return &domain.InlineMedia{Data: part.InlineData.Data, MIMEType: mime}
		}
	}
	return nil
}
