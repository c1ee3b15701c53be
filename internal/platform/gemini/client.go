package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/config"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"google.golang.org/genai"
)

// Default model names.
const (
	DefaultTextModel  = "gemini-1.5-pro"
	DefaultImageModel = "gemini-2.0-flash-exp-image-generation"
)

// ProviderName identifies this backend in logs and metrics.
const ProviderName = "gemini"

// contentGenerator is the subset of *genai.Models used by the providers.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

var _ contentGenerator = (*genai.Models)(nil)

// NewProviders builds the Gemini text and image providers. A missing API key
// yields generation.Unavailable providers instead of an error, so the server
// can start and report the condition per request.
func NewProviders(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Providers, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "gemini"))

	if cfg.GeminiAPIKey == "" {
		logger.Warn("gemini API key not set, generation unavailable")
		unavailable := generation.Unavailable{Reason: "gemini API key is not set"}
		return generation.Providers{Name: ProviderName, Text: unavailable, Image: unavailable}, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return generation.Providers{}, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	textModel := cfg.TextModel
	if textModel == "" {
		textModel = DefaultTextModel
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = DefaultImageModel
	}

	logger.Info("gemini providers configured",
		slog.String("text_model", textModel),
		slog.String("image_model", imageModel))

	return generation.Providers{
		Name:  ProviderName,
		Text:  newTextProvider(client.Models, textModel, cfg.Timeout, logger),
		Image: newImageProvider(client.Models, imageModel, cfg.Timeout, logger),
	}, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// checkResponse rejects responses that carry no usable candidate.
func checkResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: nil response", generation.ErrProviderFailure)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("%w: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return fmt.Errorf("%w: no candidates", generation.ErrEmptyResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return generation.ErrContentBlocked
	}
	return nil
}
