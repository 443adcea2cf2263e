// Package config loads the relay's runtime settings from the environment,
// applying defaults and sanitizing out-of-range values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Tyrowin/roomchat/internal/message"
)

const (
	defaultPort            = "3000"
	defaultAllowedOrigin   = "http://localhost:3000"
	defaultMaxMessageSize  = 4096
	defaultBurst           = 10
	defaultRefillInterval  = time.Second
	defaultSendBufferSize  = 256
	defaultPublicDir       = "./public"
	defaultLogLevel        = "INFO"
	defaultShutdownTimeout = 10 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE" envDefault:"4096"`
	RateLimit       RateLimitConfig
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE" envDefault:"256"`
	PublicDir       string        `env:"PUBLIC_DIR" envDefault:"./public"`
	MapBaseURL      string        `env:"MAP_BASE_URL" envDefault:"https://google.com/maps"`
	ProfanityWords  []string      `env:"PROFANITY_WORDS" envSeparator:","`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Default returns a Config populated with default values for all settings.
func Default() Config {
	return Sanitize(Config{AllowedOrigins: []string{defaultAllowedOrigin}})
}

// LoadDotEnv reads the given .env files (".env" when none) into the process
// environment. Variables already set win.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

// Load parses the process environment into a sanitized Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return Sanitize(cfg), nil
}

// Sanitize replaces missing or non-positive values with defaults.
func Sanitize(cfg Config) Config {
	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultBurst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaultRefillInterval
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufferSize
	}

	if strings.TrimSpace(cfg.PublicDir) == "" {
		cfg.PublicDir = defaultPublicDir
	}

	if strings.TrimSpace(cfg.MapBaseURL) == "" {
		cfg.MapBaseURL = message.DefaultMapBaseURL
	}

	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = defaultLogLevel
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)
	cfg.ProfanityWords = trimAll(cfg.ProfanityWords)
	return cfg
}

// Addr turns Port into a listen address. Bare ports get a ":" prefix; full
// "host:port" values pass through.
func (c Config) Addr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}
	if strings.Contains(port, ":") {
		return port, nil
	}
	return ":" + port, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
