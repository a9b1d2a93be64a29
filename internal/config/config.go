// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPHost           string `envconfig:"HTTP_HOST" default:"127.0.0.1"`
	HTTPPort           int    `envconfig:"HTTP_PORT" default:"8000"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	CacheBackend   string `envconfig:"CACHE_BACKEND" default:"file"`
	CacheDir       string `envconfig:"CACHE_DIR" default:"data"`
	RedisURL       string `envconfig:"REDIS_URL" default:""`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"sitetrans:site:"`

	ModelEndpoint  string `envconfig:"MODEL_ENDPOINT" default:"http://127.0.0.1:8845/v1"`
	ModelName      string `envconfig:"MODEL_NAME" default:"nllb-200-distilled-600M"`
	ModelAPIKey    string `envconfig:"MODEL_API_KEY" default:""`
	ModelMaxTokens int    `envconfig:"MODEL_MAX_TOKENS" default:"256"`
	ModelSkipCheck bool   `envconfig:"MODEL_SKIP_CHECK" default:"false"`

	SourceLang string `envconfig:"SOURCE_LANG" default:"en"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	switch c.CacheBackend {
	case BackendFile:
		if strings.TrimSpace(c.CacheDir) == "" {
			return fmt.Errorf("CACHE_DIR is required for the file backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of file, redis, memory (got %q)", c.CacheBackend)
	}
	if strings.TrimSpace(c.ModelEndpoint) == "" {
		return fmt.Errorf("MODEL_ENDPOINT is required")
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("MODEL_NAME is required")
	}
	if c.ModelMaxTokens < 1 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be >= 1")
	}
	if strings.TrimSpace(c.SourceLang) == "" {
		return fmt.Errorf("SOURCE_LANG is required")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
