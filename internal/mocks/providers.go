package mocks

import (
	"context"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/stretchr/testify/mock"
)

// TextProvider is a testify mock of generation.TextProvider.
type TextProvider struct {
	mock.Mock
}

var _ generation.TextProvider = (*TextProvider)(nil)

func (m *TextProvider) GenerateText(ctx context.Context, instruction string, media []domain.InlineMedia) (string, error) {
	args := m.Called(ctx, instruction, media)
	return args.String(0), args.Error(1)
}

// ImageProvider is a testify mock of generation.ImageProvider.
type ImageProvider struct {
	mock.Mock
}

var _ generation.ImageProvider = (*ImageProvider)(nil)

func (m *ImageProvider) GenerateImage(ctx context.Context, prompt string) (*domain.InlineMedia, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InlineMedia), args.Error(1)
}
