package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/sitetrans"
	"github.com/ZaguanLabs/sitetrans/cache"
	"github.com/ZaguanLabs/sitetrans/internal/cli"
	"github.com/ZaguanLabs/sitetrans/internal/config"
	"github.com/ZaguanLabs/sitetrans/internal/logging"
	"github.com/ZaguanLabs/sitetrans/processor"
	"github.com/ZaguanLabs/sitetrans/provider"
)

// knownLanguages are the languages the default model serves. The configured
// source language is taken from here; the rest become targets.
var knownLanguages = []sitetrans.Language{sitetrans.English, sitetrans.Bengali, sitetrans.Hindi}

// env is everything a command needs from the environment.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// loadEnv applies the .env file, then reads and validates configuration.
// Logs go to stderr so stdout only carries command output.
func loadEnv(loader *cli.EnvLoader, stderr io.Writer) (*env, error) {
	if loader != nil {
		if _, err := loader.Load(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewWithWriter(stderr, cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	return &env{cfg: cfg, logger: logger}, nil
}

// openStore creates the configured cache backend. The returned function
// releases its resources.
func openStore(cfg *config.Config) (cache.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.CacheBackend {
	case config.BackendFile:
		return cache.NewFileStore(cfg.CacheDir), noop, nil
	case config.BackendMemory:
		return cache.NewMemoryStore(), noop, nil
	case config.BackendRedis:
		store, err := cache.NewRedisStore(cache.RedisConfig{
			URL:       cfg.RedisURL,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// languageTable builds the table for the configured source language.
func languageTable(source string) (*sitetrans.LanguageTable, error) {
	code := sitetrans.NormalizeLang(source)
	var targets []sitetrans.Language
	var src *sitetrans.Language
	for i, lang := range knownLanguages {
		if lang.Code == code {
			src = &knownLanguages[i]
			continue
		}
		targets = append(targets, lang)
	}
	if src == nil {
		return nil, fmt.Errorf("unsupported SOURCE_LANG %q", source)
	}
	return sitetrans.NewLanguageTable(*src, targets...), nil
}

// newCoordinator wires store, model and processors from configuration.
func (e *env) newCoordinator(store cache.Store) (*sitetrans.Coordinator, error) {
	languages, err := languageTable(e.cfg.SourceLang)
	if err != nil {
		return nil, err
	}

	model := provider.NewOpenAIModel(provider.OpenAIConfig{
		APIKey:     e.cfg.ModelAPIKey,
		BaseURL:    e.cfg.ModelEndpoint,
		Model:      e.cfg.ModelName,
		MaxTokens:  e.cfg.ModelMaxTokens,
		SkipVerify: e.cfg.ModelSkipCheck,
	})

	return sitetrans.NewCoordinator(store, model,
		sitetrans.WithLanguages(languages),
		sitetrans.WithLogger(e.logger),
		sitetrans.WithProcessor(processor.NewHTMLProcessor()),
	), nil
}
