package sitetrans

import "time"

// TranslateRequest is one batch of source texts for a site.
type TranslateRequest struct {
	Texts      []string // Source texts, in order
	TargetLang string   // Target language code (e.g., "hi")
	SiteID     string   // Site whose cache document is used
}

// Result holds translations in the order of the request's texts.
type Result struct {
	Translations []string
	Metadata     Metadata
}

// Metadata describes how a request was served.
type Metadata struct {
	Elapsed    time.Duration // Wall time spent in Translate
	ModelUsed  bool          // The model was acquired for this request
	CacheHits  int           // Texts answered from the cache
	Misses     int           // Texts that needed the model
	Generated  int           // Translations produced, across all languages
	SiteID     string
	TargetLang string
	SourceOnly bool // Target was the source language; nothing was looked up
}

// DocumentResult is the result of translating a whole document.
type DocumentResult struct {
	Content  string
	Texts    int // Translatable texts found
	Metadata Metadata
}

// ContentProcessor extracts translatable texts from a document and writes
// translations back by position.
type ContentProcessor interface {
	Extract(content string) (parsed any, texts []string, err error)
	Apply(parsed any, translations []string, targetLang string) (string, error)
	ContentType() string
}
