package generation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"golang.org/x/sync/errgroup"
)

// RequestBuilder assembles provider-neutral requests from user input.
type RequestBuilder struct {
	logger *slog.Logger
}

// NewRequestBuilder creates a RequestBuilder. A nil logger falls back to slog.Default.
func NewRequestBuilder(log *slog.Logger) *RequestBuilder {
	if log == nil {
		log = slog.Default()
	}
	return &RequestBuilder{logger: log.With(slog.String("component", "request_builder"))}
}

// Build derives the instruction for the variant and, when the variant
// analyzes images, converts the first MaxAnalyzedImages attachments to inline
// media. Conversion runs concurrently and completes before Build returns.
// Attachments beyond the prefix are left out of the request.
func (b *RequestBuilder) Build(
	ctx context.Context,
	variant domain.Variant,
	prompt string,
	attachments []domain.Attachment,
) (*domain.GenerationRequest, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	log := logger.FromContextOrDefault(ctx, b.logger)

	var selected []domain.Attachment
	if variant.AnalyzesImages() && len(attachments) > 0 {
		selected = attachments[:min(len(attachments), domain.MaxAnalyzedImages)]
	}

	media, err := b.convert(ctx, selected)
	if err != nil {
		return nil, err
	}

	if excluded := len(attachments) - len(selected); variant.AnalyzesImages() && excluded > 0 {
		log.Debug("attachments excluded from request",
			slog.Int("forwarded", len(selected)),
			slog.Int("excluded", excluded))
	}

	return &domain.GenerationRequest{
		Variant:     variant,
		Prompt:      prompt,
		Instruction: variant.Instruction(prompt, len(selected)),
		Media:       media,
	}, nil
}

func (b *RequestBuilder) convert(ctx context.Context, attachments []domain.Attachment) ([]domain.InlineMedia, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	converted := make([]*domain.InlineMedia, len(attachments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(domain.MaxAnalyzedImages)

	for i, attachment := range attachments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			converted[i] = b.toInlineMedia(gctx, attachment)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	media := make([]domain.InlineMedia, 0, len(converted))
	for _, m := range converted {
		if m != nil {
			media = append(media, *m)
		}
	}
	return media, nil
}

// toInlineMedia copies the attachment payload and settles its MIME type.
// Payloads that are empty or not recognizably an image are skipped.
func (b *RequestBuilder) toInlineMedia(ctx context.Context, a domain.Attachment) *domain.InlineMedia {
	if len(a.Data) == 0 {
		logger.FromContextOrDefault(ctx, b.logger).Warn("skipping empty attachment",
			slog.String("name", a.Name))
		return nil
	}

	mime := a.MIMEType
	if !a.IsImage() {
		detected := mimetype.Detect(a.Data)
		if !strings.HasPrefix(detected.String(), "image/") {
			logger.FromContextOrDefault(ctx, b.logger).Warn("skipping non-image attachment",
				slog.String("name", a.Name),
				slog.String("detected_mime_type", detected.String()))
			return nil
		}
		mime = detected.String()
	}

	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &domain.InlineMedia{Data: data, MIMEType: mime}
}
