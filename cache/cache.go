// Package cache provides per-site translation cache storage.
//
// Each site owns one document mapping a fingerprint to its translations by
// language. Documents are independent: nothing is shared between sites.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorrupt marks a stored document that could not be decoded.
	ErrCorrupt = errors.New("corrupt cache document")

	// ErrInvalidSiteID is returned for site identifiers that cannot name a document.
	ErrInvalidSiteID = errors.New("invalid site id")
)

// Entry maps a language code to text. It always holds the source text under
// the source language code.
type Entry map[string]string

// Merge copies languages from other that the entry does not have yet and
// reports how many were added. Existing languages are never overwritten.
func (e Entry) Merge(other Entry) int {
	added := 0
	for lang, text := range other {
		if _, exists := e[lang]; exists {
			continue
		}
		e[lang] = text
		added++
	}
	return added
}

// SiteCache maps a fingerprint to its entry.
type SiteCache map[string]Entry

// Clone returns a deep copy of the cache.
func (c SiteCache) Clone() SiteCache {
	out := make(SiteCache, len(c))
	for key, entry := range c {
		cp := make(Entry, len(entry))
		for lang, text := range entry {
			cp[lang] = text
		}
		out[key] = cp
	}
	return out
}

// Store loads and saves site cache documents.
type Store interface {
	// Load returns the site's document. A missing document yields an empty
	// cache and no error. An unreadable document yields an empty cache and an
	// error wrapping ErrCorrupt (or the backend's read error).
	Load(ctx context.Context, siteID string) (SiteCache, error)

	// Save overwrites the site's document with doc.
	Save(ctx context.Context, siteID string, doc SiteCache) error
}

// SanitizeSiteID neutralizes path separators so a site id can safely name a
// file or key. Empty ids, ids made only of dots and ids with surrounding
// whitespace are rejected.
func SanitizeSiteID(siteID string) (string, error) {
	if strings.TrimSpace(siteID) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSiteID)
	}
	if strings.TrimSpace(siteID) != siteID {
		return "", fmt.Errorf("%w: surrounding whitespace in %q", ErrInvalidSiteID, siteID)
	}
	if strings.Trim(siteID, ".") == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSiteID, siteID)
	}

	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, siteID)
	return safe, nil
}

// Encode serializes a document as indented UTF-8 JSON. Non-ASCII and HTML
// characters are written literally.
func Encode(doc SiteCache) ([]byte, error) {
	if doc == nil {
		doc = SiteCache{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding cache document: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a document. Any syntax or shape problem is reported as ErrCorrupt.
func Decode(data []byte) (SiteCache, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return SiteCache{}, fmt.Errorf("%w: empty document", ErrCorrupt)
	}

	var doc SiteCache
	if err := json.Unmarshal(data, &doc); err != nil {
		return SiteCache{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if doc == nil {
		// A literal "null" document.
		return SiteCache{}, fmt.Errorf("%w: null document", ErrCorrupt)
	}
	for key, entry := range doc {
		if entry == nil {
			return SiteCache{}, fmt.Errorf("%w: entry %s is null", ErrCorrupt, key)
		}
	}
	return doc, nil
}
