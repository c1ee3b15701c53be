package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	goopenai "github.com/sashabaranov/go-openai"
)

// ImageProvider implements generation.ImageProvider with the images API,
// requesting base64 payloads so no second download is needed.
type ImageProvider struct {
	client  apiClient
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ generation.ImageProvider = (*ImageProvider)(nil)

func (p *ImageProvider) GenerateImage(ctx context.Context, prompt string) (*domain.InlineMedia, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.CreateImage(ctx, goopenai.ImageRequest{
		Prompt:         prompt,
		Model:          p.model,
		N:              1,
		Size:           goopenai.CreateImageSize1024x1024,
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		log.Error("openai image request failed",
			slog.String("error", err.Error()),
			slog.String("model", p.model))
		return nil, providerError(err)
	}

	for _, item := range resp.Data {
		if item.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("%w: undecodable image payload: %v", generation.ErrProviderFailure, err)
		}
		log.Info("openai image generated",
			slog.String("model", p.model),
			slog.Int("bytes", len(data)),
			slog.Duration("elapsed", time.Since(start)))
		return &domain.InlineMedia{Data: data, MIMEType: domain.DefaultImageMIMEType}, nil
	}

	log.Warn("openai response carried no image", slog.String("model", p.model))
	return nil, generation.ErrNoImageProduced
}
