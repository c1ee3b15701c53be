package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server" validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth" validate:"required"`
	LLM           LLMConfig           `mapstructure:"llm" validate:"required"`
	Points        PointsConfig        `mapstructure:"points"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// SessionIdleTTL drops in-memory sessions unused for this long. Zero keeps them.
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"omitempty,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// AuthConfig contains the settings used to verify identity tokens.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	Issuer    string        `mapstructure:"issuer"`
	ClockSkew time.Duration `mapstructure:"clock_skew" validate:"gte=0"`
}

// LLMConfig contains all LLM integration related settings.
// A missing key for the selected provider leaves generation unavailable
// rather than failing startup.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider" validate:"required,oneof=gemini openai"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	TextModel    string        `mapstructure:"text_model"`
	ImageModel   string        `mapstructure:"image_model"`
	BaseURL      string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// APIKey returns the key of the selected provider.
func (c LLMConfig) APIKey() string {
	if c.Provider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// PointsConfig contains account settings. Generation costs are fixed and not configurable.
type PointsConfig struct {
	StartingBalance int `mapstructure:"starting_balance" validate:"gte=0"`
	HistoryLimit    int `mapstructure:"history_limit" validate:"gt=0,lte=500"`
}

// StorageConfig configures the optional S3 archive for generated images.
type StorageConfig struct {
	S3Bucket          string `mapstructure:"s3_bucket"`
	S3Region          string `mapstructure:"s3_region" validate:"required_with=S3Bucket"`
	S3Endpoint        string `mapstructure:"s3_endpoint" validate:"omitempty,url"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	S3PublicBaseURL   string `mapstructure:"s3_public_base_url" validate:"omitempty,url"`
}

// Enabled reports whether an archive bucket is configured.
func (c StorageConfig) Enabled() bool {
	return c.S3Bucket != ""
}

// NotificationsConfig configures the notification channel.
type NotificationsConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}
