package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "THREADCRAFT"

// defaults lists every key Load knows about. Viper only maps environment
// variables onto keys it has seen, so each key needs an entry here.
var defaults = map[string]any{
	"server.port":                  8080,
	"server.log_level":             "info",
	"server.rate_limit_rps":        2.0,
	"server.rate_limit_burst":      5,
	"server.shutdown_timeout":      "10s",
	"server.session_idle_ttl":      "30m",
	"database.url":                 "",
	"database.max_open_conns":      10,
	"auth.jwt_secret":              "",
	"auth.issuer":                  "",
	"auth.clock_skew":              "2m",
	"llm.provider":                 "gemini",
	"llm.gemini_api_key":           "",
	"llm.openai_api_key":           "",
	"llm.text_model":               "",
	"llm.image_model":              "",
	"llm.base_url":                 "",
	"llm.timeout":                  "60s",
	"points.starting_balance":      50,
	"points.history_limit":         50,
	"storage.s3_bucket":            "",
	"storage.s3_region":            "",
	"storage.s3_endpoint":          "",
	"storage.s3_access_key_id":     "",
	"storage.s3_secret_access_key": "",
	"storage.s3_public_base_url":   "",
	"notifications.ttl":            "3s",
}

// Load configuration from environment variables and optionally config files.
// Sources in increasing precedence: defaults, config.yaml in the working
// directory, a .env file, and the process environment (THREADCRAFT_ prefix).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
