package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryDocument holds a serialized site document with its write time.
type memoryDocument struct {
	data      []byte
	timestamp time.Time
}

// MemoryStore is a thread-safe in-process store. Documents are kept
// serialized, so callers never share maps with the store.
type MemoryStore struct {
	docs map[string]memoryDocument
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]memoryDocument),
	}
}

// Load returns a copy of the site's document.
func (s *MemoryStore) Load(ctx context.Context, siteID string) (SiteCache, error) {
	safe, err := SanitizeSiteID(siteID)
	if err != nil {
		return SiteCache{}, err
	}

	s.mu.RLock()
	doc, ok := s.docs[safe]
	s.mu.RUnlock()

	if !ok {
		return SiteCache{}, nil
	}
	return Decode(doc.data)
}

// Save stores a snapshot of doc.
func (s *MemoryStore) Save(ctx context.Context, siteID string, doc SiteCache) error {
	safe, err := SanitizeSiteID(siteID)
	if err != nil {
		return err
	}

	data, err := Encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[safe] = memoryDocument{
		data:      data,
		timestamp: time.Now(),
	}
	return nil
}

// Raw sets the stored bytes for a site without validation.
// It lets callers seed documents, including malformed ones.
func (s *MemoryStore) Raw(siteID string, data []byte) error {
	safe, err := SanitizeSiteID(siteID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[safe] = memoryDocument{data: append([]byte(nil), data...), timestamp: time.Now()}
	return nil
}

// UpdatedAt returns when the site's document was last written.
func (s *MemoryStore) UpdatedAt(siteID string) (time.Time, bool) {
	safe, err := SanitizeSiteID(siteID)
	if err != nil {
		return time.Time{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[safe]
	return doc.timestamp, ok
}

// Sites returns the sanitized ids of all stored sites, sorted.
func (s *MemoryStore) Sites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sites := make([]string, 0, len(s.docs))
	for site := range s.docs {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites
}

// Len returns the number of stored site documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Clear removes all documents.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]memoryDocument)
}

// Verify MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
