// Package cache persists partial extraction results per document fingerprint
// so that re-running a document, or extending its requested page range, never
// re-spends quota on already-processed pages.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/opencurricula/courseminer/internal/course"
)

// Entry is the cached state for one document fingerprint. CachedThrough is
// the highest contiguously-processed page index and never moves backward.
type Entry struct {
	Fingerprint   string          `json:"fingerprint"`
	CachedThrough int             `json:"cachedThroughPage"`
	TotalPages    int             `json:"totalPages"`
	Records       []course.Course `json:"records"`
}

// Store is the storage backend seam: an in-memory map for tests, a file
// store in production.
type Store interface {
	Get(ctx context.Context, fingerprint string) (*Entry, bool, error)
	Put(ctx context.Context, fingerprint string, e *Entry) error
}

// Fingerprint computes the stable content hash of a source document's bytes,
// used as the cache key.
func Fingerprint(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// MemStore is a Store backed by a mutex-guarded map. Entries for different
// fingerprints are fully independent.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemStore() *MemStore {
	return &MemStore{entries: map[string]*Entry{}}
}

func (s *MemStore) Get(_ context.Context, fingerprint string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	cp := *e
	cp.Records = append([]course.Course(nil), e.Records...)
	return &cp, true, nil
}

func (s *MemStore) Put(_ context.Context, fingerprint string, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	cp.Records = append([]course.Course(nil), e.Records...)
	s.entries[fingerprint] = &cp
	return nil
}
