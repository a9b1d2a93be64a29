package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// ExportVersion is written into every export.
const ExportVersion = "1.0"

// ExportFormat represents the JSON structure for cache export/import.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	SiteID     string            `json:"site_id"`
	Entries    SiteCache         `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Exporter writes site documents to portable JSON.
type Exporter struct {
	store Store
}

// NewExporter creates a new cache exporter.
func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes the site's document to w. An unreadable document is an error
// here, unlike during translation.
func (e *Exporter) Export(ctx context.Context, w io.Writer, siteID string, metadata map[string]string) error {
	doc, err := e.store.Load(ctx, siteID)
	if err != nil {
		return fmt.Errorf("loading site %s: %w", siteID, err)
	}

	export := ExportFormat{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		SiteID:     siteID,
		Entries:    doc,
		Metadata:   metadata,
	}

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}

// ExportToFile exports the site's document to a file.
// The path is provided by the caller and is intentionally user-controlled.
func (e *Exporter) ExportToFile(ctx context.Context, path, siteID string, metadata map[string]string) error {
	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	return e.Export(ctx, f, siteID, metadata)
}

// Importer merges exported documents into a store.
type Importer struct {
	store Store
}

// NewImporter creates a new cache importer.
func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

// Import reads an export from r and merges it into siteID's document.
// An empty siteID uses the site recorded in the export. Languages already
// present in the target document are kept; only missing ones are added.
func (i *Importer) Import(ctx context.Context, r io.Reader, siteID string) (*ImportResult, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	if siteID == "" {
		siteID = export.SiteID
	}
	if _, err := SanitizeSiteID(siteID); err != nil {
		return nil, err
	}

	result := &ImportResult{
		Version:  export.Version,
		SiteID:   siteID,
		Metadata: export.Metadata,
	}

	// A corrupt target document is replaced, as translation would do.
	doc, err := i.store.Load(ctx, siteID)
	if err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return nil, fmt.Errorf("loading site %s: %w", siteID, err)
		}
		result.ReplacedCorrupt = true
		doc = SiteCache{}
	}

	for key, entry := range export.Entries {
		if len(entry) == 0 {
			result.Skipped++
			continue
		}
		existing, ok := doc[key]
		if !ok {
			existing = make(Entry, len(entry))
			doc[key] = existing
			result.Imported++
		}
		result.Languages += existing.Merge(entry)
	}

	if result.Imported == 0 && result.Languages == 0 && !result.ReplacedCorrupt {
		return result, nil
	}

	if err := i.store.Save(ctx, siteID, doc); err != nil {
		return nil, fmt.Errorf("saving site %s: %w", siteID, err)
	}
	return result, nil
}

// ImportFromFile imports a site document from a file.
// The path is provided by the caller and is intentionally user-controlled.
func (i *Importer) ImportFromFile(ctx context.Context, path, siteID string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f, siteID)
}

// ImportResult contains statistics about the import operation.
type ImportResult struct {
	Version         string
	SiteID          string
	Metadata        map[string]string
	Imported        int  // New fingerprints added
	Languages       int  // Translations added, counting those of new fingerprints
	Skipped         int  // Empty entries ignored
	ReplacedCorrupt bool // The target document was unreadable and was replaced
}
