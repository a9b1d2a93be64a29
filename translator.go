package sitetrans

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/sitetrans/cache"
)

// Coordinator serves translation requests from per-site caches, invoking the
// model only for texts no cache entry covers. When it does, it fills in every
// supported language at once so later requests for other languages are hits.
type Coordinator struct {
	store       cache.Store
	models      *ModelManager
	languages   *LanguageTable
	logger      zerolog.Logger
	onLoadError func(siteID string, err error)
	processors  map[string]ContentProcessor

	// cacheMu is held around store loads and saves, never during generation.
	cacheMu sync.Mutex
}

// Option is a functional option for configuring the Coordinator.
type Option func(*Coordinator)

// WithLanguages sets the language table (default: English → Bengali, Hindi).
func WithLanguages(languages *LanguageTable) Option {
	return func(c *Coordinator) {
		c.languages = languages
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithLoadErrorHandler registers a callback for cache documents that could
// not be read. The request itself proceeds with an empty cache.
func WithLoadErrorHandler(fn func(siteID string, err error)) Option {
	return func(c *Coordinator) {
		c.onLoadError = fn
	}
}

// WithProcessor registers a content processor.
func WithProcessor(processor ContentProcessor) Option {
	return func(c *Coordinator) {
		c.processors[processor.ContentType()] = processor
	}
}

// NewCoordinator creates a Coordinator over store and model.
func NewCoordinator(store cache.Store, model Model, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      store,
		languages:  DefaultLanguageTable(),
		logger:     zerolog.Nop(),
		processors: make(map[string]ContentProcessor),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.models = NewModelManager(model, c.logger)
	return c
}

// Translate returns the request's texts translated into the target language,
// in input order.
func (c *Coordinator) Translate(ctx context.Context, req TranslateRequest) (*Result, error) {
	start := time.Now()
	targetCode := NormalizeLang(req.TargetLang)

	if c.languages.IsSource(targetCode) {
		out := make([]string, len(req.Texts))
		copy(out, req.Texts)
		return &Result{
			Translations: out,
			Metadata: Metadata{
				Elapsed:    time.Since(start),
				SiteID:     req.SiteID,
				TargetLang: targetCode,
				SourceOnly: true,
			},
		}, nil
	}

	if _, ok := c.languages.Target(targetCode); !ok {
		return nil, &UnsupportedLanguageError{Lang: req.TargetLang, Supported: c.languages.TargetCodes()}
	}
	if _, err := cache.SanitizeSiteID(req.SiteID); err != nil {
		return nil, &RequestError{Field: "site_id", Message: "invalid site id", Cause: err}
	}
	// An accepted request runs to completion or fails; a caller going away
	// must not discard translations that are already paid for.
	ctx = context.WithoutCancel(ctx)

	meta := Metadata{SiteID: req.SiteID, TargetLang: targetCode}
	source := c.languages.Source()

	doc := c.load(ctx, req.SiteID)
	modified := false

	keys := make([]string, len(req.Texts))
	seen := make(map[string]bool)
	var missing []string

	for i, text := range req.Texts {
		key := Fingerprint(text)
		keys[i] = key

		entry, ok := doc[key]
		if !ok {
			entry = cache.Entry{}
			doc[key] = entry
		}
		if _, ok := entry[source.Code]; !ok {
			entry[source.Code] = Normalize(text)
			modified = true
		}

		if _, ok := entry[targetCode]; ok {
			meta.CacheHits++
			continue
		}

		meta.Misses++
		if !seen[key] {
			seen[key] = true
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		meta.ModelUsed = true
		generated, err := c.generate(ctx, doc, missing)
		meta.Generated = generated
		if err != nil {
			c.logger.Error().
				Err(err).
				Str("site_id", req.SiteID).
				Str("target_lang", targetCode).
				Int("generated", generated).
				Msg("translation failed")
			return nil, err
		}
		if generated > 0 {
			modified = true
		}
	}

	if modified {
		if err := c.save(ctx, req.SiteID, doc); err != nil {
			return nil, err
		}
	}

	translations := make([]string, len(keys))
	for i, key := range keys {
		translations[i] = doc[key][targetCode]
	}

	meta.Elapsed = time.Since(start)
	c.logger.Info().
		Str("site_id", req.SiteID).
		Str("target_lang", targetCode).
		Int("texts", len(req.Texts)).
		Int("cache_hits", meta.CacheHits).
		Int("misses", meta.Misses).
		Float64("elapsed_ms", float64(meta.Elapsed.Microseconds())/1000).
		Bool("model_used", meta.ModelUsed).
		Msg("translated")

	return &Result{Translations: translations, Metadata: meta}, nil
}

// generate fills every missing non-source language for the given
// fingerprints. Entries are updated in place as translations arrive.
func (c *Coordinator) generate(ctx context.Context, doc cache.SiteCache, keys []string) (int, error) {
	lease, err := c.models.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := lease.Release(); err != nil {
			c.logger.Warn().Err(err).Msg("releasing model")
		}
	}()

	source := c.languages.Source()
	targets := c.languages.Targets()
	generated := 0

	for _, key := range keys {
		entry := doc[key]
		text := entry[source.Code]
		for _, lang := range targets {
			if _, ok := entry[lang.Code]; ok {
				continue
			}
			out, err := lease.Generate(ctx, text, source, lang)
			if err != nil {
				return generated, err
			}
			entry[lang.Code] = out
			generated++
		}
	}

	return generated, nil
}

// load reads the site document. Read failures yield an empty document.
func (c *Coordinator) load(ctx context.Context, siteID string) cache.SiteCache {
	doc, err := c.loadLocked(ctx, siteID)

	if err != nil {
		c.logger.Warn().Err(err).Str("site_id", siteID).Msg("cache load failed, starting empty")
		if c.onLoadError != nil {
			c.onLoadError(siteID, err)
		}
		// Backends already return an empty document on error; don't trust a
		// partial one.
		doc = nil
	}
	if doc == nil {
		doc = cache.SiteCache{}
	}
	return doc
}

func (c *Coordinator) loadLocked(ctx context.Context, siteID string) (cache.SiteCache, error) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	return c.store.Load(ctx, siteID)
}

func (c *Coordinator) save(ctx context.Context, siteID string, doc cache.SiteCache) error {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if err := c.store.Save(ctx, siteID, doc); err != nil {
		c.logger.Error().Err(err).Str("site_id", siteID).Msg("cache save failed")
		return &CacheError{SiteID: siteID, Message: "cannot save cache document", Cause: err}
	}
	return nil
}

// TranslateDocument extracts the texts of content with the processor
// registered for contentType, translates them and writes them back.
// Source-language requests return content unchanged.
func (c *Coordinator) TranslateDocument(ctx context.Context, content, contentType, targetLang, siteID string) (*DocumentResult, error) {
	targetCode := NormalizeLang(targetLang)
	if c.languages.IsSource(targetCode) {
		return &DocumentResult{
			Content:  content,
			Metadata: Metadata{SiteID: siteID, TargetLang: targetCode, SourceOnly: true},
		}, nil
	}
	if _, ok := c.languages.Target(targetCode); !ok {
		return nil, &UnsupportedLanguageError{Lang: targetLang, Supported: c.languages.TargetCodes()}
	}

	processor, ok := c.processors[contentType]
	if !ok {
		return nil, &ProcessorError{
			Message:     "no processor registered for content type",
			ContentType: contentType,
		}
	}

	parsed, texts, err := processor.Extract(content)
	if err != nil {
		return nil, err
	}

	var translations []string
	meta := Metadata{SiteID: siteID, TargetLang: targetCode}
	if len(texts) > 0 {
		res, err := c.Translate(ctx, TranslateRequest{Texts: texts, TargetLang: targetCode, SiteID: siteID})
		if err != nil {
			return nil, err
		}
		translations = res.Translations
		meta = res.Metadata
	}

	out, err := processor.Apply(parsed, translations, targetCode)
	if err != nil {
		return nil, err
	}

	return &DocumentResult{Content: out, Texts: len(texts), Metadata: meta}, nil
}

// Models returns the model lifecycle manager.
func (c *Coordinator) Models() *ModelManager {
	return c.models
}

// Languages returns the language table.
func (c *Coordinator) Languages() *LanguageTable {
	return c.languages
}

// Store returns the cache store.
func (c *Coordinator) Store() cache.Store {
	return c.store
}
