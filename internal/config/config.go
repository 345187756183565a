// Package config reads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/muhammadolammi/mockinterview/internal/interview"
	"github.com/muhammadolammi/mockinterview/internal/resume"
)

const (
	DefaultHTTPAddress = ":8080"
	DefaultModel       = "gemini-2.5-flash"
	DefaultServiceURL  = "http://localhost:8080/interview-agent"
)

var ErrMissing = errors.New("missing required setting")

type Config struct {
	HTTPAddress     string
	GoogleAPIKey    string
	GeminiModel     string
	TurnServiceURL  string
	TurnServiceKey  string
	RabbitMQURL     string
	R2              resume.R2Config
	TurnLimit       int
	CooldownSeconds int
}

// Load reads .env files when present, then the environment.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		HTTPAddress:    get("HTTP_ADDRESS", DefaultHTTPAddress),
		GoogleAPIKey:   get("GOOGLE_API_KEY", ""),
		GeminiModel:    get("GEMINI_MODEL", DefaultModel),
		TurnServiceURL: get("TURN_SERVICE_URL", DefaultServiceURL),
		TurnServiceKey: get("TURN_SERVICE_KEY", ""),
		RabbitMQURL:    get("RABBITMQ_URL", ""),
		R2: resume.R2Config{
			AccountID: get("R2_ACCOUNT_ID", ""),
			Bucket:    get("R2_BUCKET", ""),
			AccessKey: get("R2_ACCESS_KEY", ""),
			SecretKey: get("R2_SECRET_KEY", ""),
		},
	}

	var err error
	if cfg.TurnLimit, err = atoi(get("INTERVIEW_TURN_LIMIT", ""), interview.DefaultTurnLimit); err != nil {
		return Config{}, fmt.Errorf("INTERVIEW_TURN_LIMIT: %w", err)
	}
	if cfg.CooldownSeconds, err = atoi(get("INTERVIEW_COOLDOWN_SECONDS", ""), interview.DefaultCooldownSeconds); err != nil {
		return Config{}, fmt.Errorf("INTERVIEW_COOLDOWN_SECONDS: %w", err)
	}
	return cfg, nil
}

// RequireGoogle reports ErrMissing when no Gemini key is configured.
func (c Config) RequireGoogle() error {
	if c.GoogleAPIKey == "" {
		return fmt.Errorf("%w: empty GOOGLE_API_KEY in env", ErrMissing)
	}
	return nil
}

func atoi(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}
