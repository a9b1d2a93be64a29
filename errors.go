package sitetrans

import "fmt"

// ModelError indicates a failure of the translation model (load, generate or unload).
// It is fatal for the request that triggered it.
type ModelError struct {
	Op      string // "load", "generate" or "unload"
	Message string
	Cause   error
}

func (e *ModelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("model %s error: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("model %s error: %s", e.Op, e.Message)
}

func (e *ModelError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure that reaches the caller.
// Only writes produce it; read failures degrade to an empty cache.
type CacheError struct {
	SiteID  string
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error (site %s): %s: %v", e.SiteID, e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error (site %s): %s", e.SiteID, e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// UnsupportedLanguageError is returned for a target language that is neither
// the source language nor one of the configured targets.
type UnsupportedLanguageError struct {
	Lang      string
	Supported []string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported target language %q (supported: %v)", e.Lang, e.Supported)
}

// RequestError indicates a malformed translation request.
type RequestError struct {
	Field   string
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid request (%s): %s: %v", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid request (%s): %s", e.Field, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a content processing failure (parse error, etc.).
type ProcessorError struct {
	Message     string
	Cause       error
	ContentType string // The type of content that failed to process
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.ContentType, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.ContentType, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates a processor received a different number of
// translations than the texts it extracted.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}
