// Package config loads service configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

type Config struct {
	Port      string          `koanf:"port"`
	Gin       GinConfig       `koanf:"gin"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	Tavily    TavilyConfig    `koanf:"tavily"`
	Payments  PaymentsConfig  `koanf:"payments"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Log       LogConfig       `koanf:"log"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

type GinConfig struct {
	Mode string `koanf:"mode"`
}

type GeminiConfig struct {
	APIKey      string  `koanf:"api_key"`
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
}

type TavilyConfig struct {
	APIKey string `koanf:"api_key"`
}

type PaymentsConfig struct {
	APIKey        string `koanf:"api_key"`
	BaseURL       string `koanf:"base_url"`
	ReturnURL     string `koanf:"return_url"`
	WebhookSecret string `koanf:"webhook_secret"`
	// ProductID is used when a checkout request names no product.
	ProductID string `koanf:"product_id"`
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type UpstreamConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// RateLimitConfig bounds requests per client. RPM 0 disables limiting.
type RateLimitConfig struct {
	RPM   int `koanf:"rpm"`
	Burst int `koanf:"burst"`
}

// Load reads the optional YAML file at path, then environment variables.
//
// Precedence (highest first): environment, file, defaults. Variables map to
// keys by splitting on the first underscore:
//
//	GEMINI_API_KEY          -> gemini.api_key
//	PAYMENTS_WEBHOOK_SECRET -> payments.webhook_secret
//	PORT                    -> port
//
// Missing credentials are not an error; the features that need them report
// it per request.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(s)
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Gin.Mode == "" {
		cfg.Gin.Mode = "release"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Gemini.Temperature == 0 {
		cfg.Gemini.Temperature = 0.7
	}
	if cfg.Payments.BaseURL == "" {
		cfg.Payments.BaseURL = "https://live.dodopayments.com"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 60 * time.Second
	}
	if cfg.RateLimit.RPM > 0 && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = cfg.RateLimit.RPM / 6
		if cfg.RateLimit.Burst < 1 {
			cfg.RateLimit.Burst = 1
		}
	}
}

// Validate checks value ranges. It does not require credentials.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535, got %q", c.Port)
	}
	switch c.Gin.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("gin.mode must be debug, release or test, got %q", c.Gin.Mode)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("gemini.temperature must be within [0, 2], got %v", c.Gemini.Temperature)
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.RateLimit.RPM < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("ratelimit values must not be negative")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string { return ":" + c.Port }
