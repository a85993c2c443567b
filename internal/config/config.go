// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultModel           = "gemini-2.5-pro"
	DefaultMaxOutputTokens = 32000
	DefaultPort            = "8080"
	DefaultMaxUploadBytes  = 20 << 20
	DefaultWriteTimeout    = 10 * time.Minute
	DefaultSessionIdle     = 2 * time.Hour
	DefaultSessionSweep    = 5 * time.Minute
)

// ErrMissingAPIKey is returned by RequireService when no Gemini key is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// Config holds every setting the binaries need.
type Config struct {
	GeminiAPIKey    string
	Model           string
	MaxOutputTokens int32
	RepairModelJSON bool

	LogLevel  string
	LogFormat string

	Port           string
	MaxUploadBytes int64
	WriteTimeout   time.Duration

	// SessionIdleTimeout of zero keeps sessions until they are deleted.
	SessionIdleTimeout time.Duration
	SessionSweep       time.Duration

	GCSCredentialsFile string
}

// Load reads .env (if present) and then the process environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:              getString("GEMINI_MODEL", DefaultModel),
		LogLevel:           getString("LOG_LEVEL", "info"),
		LogFormat:          getString("LOG_FORMAT", "console"),
		Port:               getString("PORT", DefaultPort),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
	}

	tokens, err := getInt("GEMINI_MAX_OUTPUT_TOKENS", DefaultMaxOutputTokens)
	if err != nil {
		return nil, err
	}
	if tokens <= 0 {
		return nil, fmt.Errorf("config: GEMINI_MAX_OUTPUT_TOKENS must be positive, got %d", tokens)
	}
	cfg.MaxOutputTokens = int32(tokens)

	maxUpload, err := getInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if cfg.RepairModelJSON, err = getBool("REPAIR_MODEL_JSON", false); err != nil {
		return nil, err
	}

	if cfg.WriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", DefaultWriteTimeout); err != nil {
		return nil, err
	}

	if cfg.SessionIdleTimeout, err = getDuration("SESSION_IDLE_TIMEOUT", DefaultSessionIdle); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout < 0 {
		return nil, fmt.Errorf("config: SESSION_IDLE_TIMEOUT must not be negative, got %s", cfg.SessionIdleTimeout)
	}
	if cfg.SessionSweep, err = getDuration("SESSION_SWEEP_INTERVAL", DefaultSessionSweep); err != nil {
		return nil, err
	}
	if cfg.SessionSweep <= 0 {
		return nil, fmt.Errorf("config: SESSION_SWEEP_INTERVAL must be positive, got %s", cfg.SessionSweep)
	}

	return cfg, nil
}

// RequireService checks the settings needed to talk to the extraction service.
func (c *Config) RequireService() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
