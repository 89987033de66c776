// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Environment string
	Port        int
	LogLevel    slog.Level

	DBPath     string
	StorageDir string
	// PublicBaseURL is the externally visible origin, used to build file
	// references ("<PublicBaseURL>/files/<name>").
	PublicBaseURL string
	MaxUploadMB   int64

	JWTSecret string
	TokenTTL  time.Duration

	KakaoClientID     string
	KakaoClientSecret string
	KakaoCallbackURL  string

	OTLPEndpoint string
}

// AuthEnabled reports whether enough is configured to register the Kakao
// login routes. Without it the /api routes still exist but nobody can log in.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != "" && c.KakaoClientID != ""
}

// FilesBaseURL is the URL prefix the blob store hands out.
func (c *Config) FilesBaseURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/files"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", os.Getenv("PORT"))
	}

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "20"), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %q", os.Getenv("MAX_UPLOAD_MB"))
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL: %q", os.Getenv("JWT_TTL"))
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              port,
		LogLevel:          level,
		DBPath:            getEnv("DB_PATH", "data/paperplane.db"),
		StorageDir:        getEnv("STORAGE_DIR", "data/files"),
		PublicBaseURL:     getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		MaxUploadMB:       maxUpload,
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          ttl,
		KakaoClientID:     os.Getenv("KAKAO_CLIENT_ID"),
		KakaoClientSecret: os.Getenv("KAKAO_CLIENT_SECRET"),
		KakaoCallbackURL:  os.Getenv("KAKAO_CALLBACK_URL"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if cfg.KakaoCallbackURL == "" {
		cfg.KakaoCallbackURL = strings.TrimRight(cfg.PublicBaseURL, "/") + "/auth/kakao/callback"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MaxUploadMBLimit bounds MAX_UPLOAD_MB so the byte limit (MB << 20) fits in
// an int64.
const MaxUploadMBLimit = 1 << 20

func (c *Config) validate() error {
	if c.MaxUploadMB > MaxUploadMBLimit {
		return fmt.Errorf("MAX_UPLOAD_MB must be at most %d", MaxUploadMBLimit)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if !strings.HasPrefix(c.PublicBaseURL, "http://") && !strings.HasPrefix(c.PublicBaseURL, "https://") {
		return fmt.Errorf("PUBLIC_BASE_URL must be an http(s) URL: %q", c.PublicBaseURL)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
