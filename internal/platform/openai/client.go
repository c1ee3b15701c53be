package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/config"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	goopenai "github.com/sashabaranov/go-openai"
)

// Default model names.
const (
	DefaultTextModel  = goopenai.GPT4o
	DefaultImageModel = goopenai.CreateImageModelDallE3
)

// ProviderName identifies this backend in logs and metrics.
const ProviderName = "openai"

// apiClient is the subset of *goopenai.Client used by the providers.
type apiClient interface {
	CreateChatCompletion(ctx context.Context, request goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
	CreateImage(ctx context.Context, request goopenai.ImageRequest) (goopenai.ImageResponse, error)
}

var _ apiClient = (*goopenai.Client)(nil)

// NewProviders builds the OpenAI text and image providers. A missing API key
// yields generation.Unavailable providers.
func NewProviders(cfg config.LLMConfig, logger *slog.Logger) generation.Providers {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "openai"))

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("openai API key not set, generation unavailable")
		unavailable := generation.Unavailable{Reason: "openai API key is not set"}
		return generation.Providers{Name: ProviderName, Text: unavailable, Image: unavailable}
	}

	clientConfig := goopenai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := goopenai.NewClientWithConfig(clientConfig)

	textModel := cfg.TextModel
	if textModel == "" {
		textModel = DefaultTextModel
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = DefaultImageModel
	}

	logger.Info("openai providers configured",
		slog.String("text_model", textModel),
		slog.String("image_model", imageModel))

	return generation.Providers{
		Name:  ProviderName,
		Text:  &TextProvider{client: client, model: textModel, timeout: cfg.Timeout, logger: logger},
		Image: &ImageProvider{client: client, model: imageModel, timeout: cfg.Timeout, logger: logger},
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// providerError wraps a client error as a provider failure, keeping the API
// status code in the message when there is one.
func providerError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: openai status %d: %s", generation.ErrProviderFailure, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", generation.ErrProviderFailure, err)
}
