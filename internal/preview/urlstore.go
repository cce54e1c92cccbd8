package preview

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// URIScheme prefixes every reference URI issued by a URLStore.
const URIScheme = "blob:"

// URLStore maps ephemeral reference URIs to their backing sources. URIs stay
// valid until revoked or until the store is dropped.
type URLStore struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewURLStore creates an empty URLStore.
func NewURLStore() *URLStore {
	return &URLStore{sources: make(map[string]Source)}
}

// Create issues a new reference URI for a source.
func (s *URLStore) Create(src Source) string {
	uri := URIScheme + uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[uri] = src

	return uri
}

// Resolve returns the source behind a URI.
func (s *URLStore) Resolve(uri string) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[uri]
	return src, ok
}

// Revoke releases a URI. Non-reference URIs and unknown URIs are ignored.
func (s *URLStore) Revoke(uri string) {
	if !strings.HasPrefix(uri, URIScheme) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, uri)
}

// Len returns the number of live reference URIs.
func (s *URLStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}
