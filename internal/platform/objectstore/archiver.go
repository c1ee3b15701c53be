package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/config"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
)

// KeyPrefix is the top-level folder for archived images.
const KeyPrefix = "generated"

var (
	// ErrNotConfigured is returned by NewArchiver when no bucket is set.
	ErrNotConfigured = errors.New("image archive is not configured")

	// ErrEmptyImage is returned when there are no bytes to upload.
	ErrEmptyImage = errors.New("no image data to upload")
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ objectPutter = (*s3.Client)(nil)

// Archiver uploads images to a bucket under a per-user, per-day key.
type Archiver struct {
	client        objectPutter
	bucket        string
	publicBaseURL string
	now           func() time.Time
	logger        *slog.Logger
}

// NewArchiver creates an Archiver from storage settings. Static credentials
// are used when both keys are set; otherwise the client relies on the
// endpoint accepting anonymous writes, which is only useful for local
// emulators.
func NewArchiver(cfg config.StorageConfig, log *slog.Logger) (*Archiver, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = slog.Default()
	}

	options := s3.Options{
		Region:       cfg.S3Region,
		UsePathStyle: cfg.S3Endpoint != "",
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		options.Credentials = credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")
	}
	if cfg.S3Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.S3Endpoint)
	}

	baseURL := cfg.S3PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}

	return newArchiver(s3.New(options), cfg.S3Bucket, baseURL, log), nil
}

func newArchiver(client objectPutter, bucket, publicBaseURL string, log *slog.Logger) *Archiver {
	return &Archiver{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
		logger:        log.With(slog.String("component", "image_archiver")),
	}
}

// Archive uploads the image and returns its public URL.
func (a *Archiver) Archive(ctx context.Context, userID string, image *domain.InlineMedia) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", ErrEmptyImage
	}

	mime := image.MIMEType
	if mime == "" {
		mime = domain.DefaultImageMIMEType
	}
	key := a.key(userID, mime)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(image.Data),
		ContentType: aws.String(mime),
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, a.logger).Error("failed to archive image",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return "", fmt.Errorf("upload to s3: %w", err)
	}

	url := a.publicBaseURL + "/" + key
	logger.FromContextOrDefault(ctx, a.logger).Info("image archived",
		slog.String("key", key),
		slog.Int("bytes", len(image.Data)))
	return url, nil
}

func (a *Archiver) key(userID, mime string) string {
	now := a.now().UTC()
	owner := strings.NewReplacer("/", "_", "|", "_", " ", "_").Replace(userID)
	return path.Join(
		KeyPrefix,
		owner,
		fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()),
		uuid.NewString()+extensionFor(mime),
	)
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
