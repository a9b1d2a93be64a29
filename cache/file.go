package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultDir is the directory used when a FileStore is created without one.
const DefaultDir = "data"

// FileStore keeps one JSON document per site in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir. The directory is created
// on first save.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultDir
	}
	return &FileStore{dir: dir}
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the document path for a site.
func (s *FileStore) Path(siteID string) (string, error) {
	safe, err := SanitizeSiteID(siteID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, safe+".json"), nil
}

// Load reads the site's document.
func (s *FileStore) Load(ctx context.Context, siteID string) (SiteCache, error) {
	path, err := s.Path(siteID)
	if err != nil {
		return SiteCache{}, err
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is derived from a sanitized site id
	if errors.Is(err, fs.ErrNotExist) {
		return SiteCache{}, nil
	}
	if err != nil {
		return SiteCache{}, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := Decode(data)
	if err != nil {
		return SiteCache{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return doc, nil
}

// Save overwrites the site's document.
func (s *FileStore) Save(ctx context.Context, siteID string, doc SiteCache) error {
	path, err := s.Path(siteID)
	if err != nil {
		return err
	}

	data, err := Encode(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 - cache documents are not secret
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Verify FileStore implements Store
var _ Store = (*FileStore)(nil)
