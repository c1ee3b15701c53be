package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestImageProvider_GenerateImage(t *testing.T) {
	ctx := context.Background()

	t.Run("returns_first_inline_image", func(t *testing.T) {
		fake := &fakeGenerator{resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText("here you go")}}},
				{Content: &genai.Content{Parts: []*genai.Part{
					genai.NewPartFromBytes([]byte("jpeg-bytes"), "image/jpeg"),
					genai.NewPartFromBytes([]byte("png-bytes"), "image/png"),
				}}},
			},
		}}
		p := newImageProvider(fake, "image-model", 0, discardLogger())

		image, err := p.GenerateImage(ctx, "a lighthouse")

		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", image.MIMEType)
		assert.Equal(t, []byte("jpeg-bytes"), image.Data)

		require.Len(t, fake.calls, 1)
		call := fake.calls[0]
		assert.Equal(t, "image-model", call.model)
		assert.Equal(t, "a lighthouse", call.contents[0].Parts[0].Text)
		assert.Equal(t, []string{"TEXT", "IMAGE"}, call.config.ResponseModalities)
		assert.Equal(t, float32(0.8), *call.config.Temperature)
		assert.Equal(t, int32(8192), call.config.MaxOutputTokens)
	})

	t.Run("defaults_mime_type", func(t *testing.T) {
		fake := &fakeGenerator{resp: responseWithParts(&genai.Part{
			InlineData: &genai.Blob{Data: []byte("raw")},
		})}
		p := newImageProvider(fake, "m", 0, discardLogger())

		image, err := p.GenerateImage(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultImageMIMEType, image.MIMEType)
	})

	t.Run("no_inline_part", func(t *testing.T) {
		fake := &fakeGenerator{resp: responseWithParts(genai.NewPartFromText("I cannot draw that"))}
		p := newImageProvider(fake, "m", 0, discardLogger())

		_, err := p.GenerateImage(ctx, "x")
		assert.ErrorIs(t, err, generation.ErrNoImageProduced)
		assert.ErrorIs(t, err, generation.ErrProviderFailure)
	})

	t.Run("no_candidates", func(t *testing.T) {
		fake := &fakeGenerator{resp: &genai.GenerateContentResponse{}}
		p := newImageProvider(fake, "m", 0, discardLogger())

		_, err := p.GenerateImage(ctx, "x")
		assert.ErrorIs(t, err, generation.ErrNoImageProduced)
		assert.ErrorIs(t, err, generation.ErrProviderFailure)
	})

	t.Run("empty_inline_part_is_ignored", func(t *testing.T) {
		fake := &fakeGenerator{resp: responseWithParts(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png"}})}
		p := newImageProvider(fake, "m", 0, discardLogger())

		_, err := p.GenerateImage(ctx, "x")
		assert.ErrorIs(t, err, generation.ErrNoImageProduced)
	})

	t.Run("remote_error", func(t *testing.T) {
		fake := &fakeGenerator{err: errors.New("quota exceeded")}
		p := newImageProvider(fake, "m", 0, discardLogger())

		_, err := p.GenerateImage(ctx, "x")
		assert.ErrorIs(t, err, generation.ErrProviderFailure)
	})
}
