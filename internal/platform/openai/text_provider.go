package openai

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	goopenai "github.com/sashabaranov/go-openai"
)

// TextProvider implements generation.TextProvider with chat completions.
// Inline images are sent as data URL image parts.
type TextProvider struct {
	client  apiClient
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ generation.TextProvider = (*TextProvider)(nil)

func (p *TextProvider) GenerateText(ctx context.Context, instruction string, media []domain.InlineMedia) (string, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	message := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser}
	if len(media) == 0 {
		message.Content = instruction
	} else {
		parts := make([]goopenai.ChatMessagePart, 0, len(media)+1)
		parts = append(parts, goopenai.ChatMessagePart{Type: goopenai.ChatMessagePartTypeText, Text: instruction})
		for _, m := range media {
			parts = append(parts, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{
					URL:    m.DataURL(),
					Detail: goopenai.ImageURLDetailAuto,
				},
			})
		}
		message.MultiContent = parts
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    p.model,
		Messages: []goopenai.ChatCompletionMessage{message},
	})
	if err != nil {
		log.Error("openai chat request failed",
			slog.String("error", err.Error()),
			slog.String("model", p.model))
		return "", providerError(err)
	}

	if len(resp.Choices) == 0 {
		return "", generation.ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.FinishReason == goopenai.FinishReasonContentFilter {
		return "", generation.ErrContentBlocked
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		if choice.Message.Refusal != "" {
			return "", generation.ErrContentBlocked
		}
		return "", generation.ErrEmptyResponse
	}

	log.Info("openai text generated",
		slog.String("model", p.model),
		slog.Int("images", len(media)),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
		slog.Duration("elapsed", time.Since(start)))
	return choice.Message.Content, nil
}
