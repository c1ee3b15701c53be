package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"google.golang.org/genai"
)

// TextProvider implements generation.TextProvider on a Gemini text model.
type TextProvider struct {
	client  contentGenerator
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ generation.TextProvider = (*TextProvider)(nil)

func newTextProvider(client contentGenerator, model string, timeout time.Duration, log *slog.Logger) *TextProvider {
	return &TextProvider{client: client, model: model, timeout: timeout, logger: log}
}

// GenerateText sends the instruction followed by each inline image as one
// user turn and joins every text part of the first candidate.
func (p *TextProvider) GenerateText(ctx context.Context, instruction string, media []domain.InlineMedia) (string, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	parts := make([]*genai.Part, 0, len(media)+1)
	parts = append(parts, genai.NewPartFromText(instruction))
	for _, m := range media {
		parts = append(parts, genai.NewPartFromBytes(m.Data, m.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		log.Error("gemini text request failed",
			slog.String("error", err.Error()),
			slog.String("model", p.model),
			slog.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("%w: %v", generation.ErrProviderFailure, err)
	}
	if err := checkResponse(resp); err != nil {
		log.Warn("gemini text response rejected",
			slog.String("error", err.Error()),
			slog.String("model", p.model))
		return "", err
	}

	var text strings.Builder
	if content := resp.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", generation.ErrEmptyResponse
	}

	log.Info("gemini text generated",
		slog.String("model", p.model),
		slog.Int("images", len(media)),
		slog.Int("chars", text.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return text.String(), nil
}
