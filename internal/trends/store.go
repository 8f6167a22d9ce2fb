// Package trends shields the slow and unreliable upstream trend providers
// behind a TTL cache and an ordered fallback chain, so callers always get a
// non-empty keyword list.
package trends

import (
	"context"
	"sync"
	"time"

	"trendpress/internal/core"
)

// Entry is a cached trend lookup, keyed by region and limit.
type Entry struct {
	Keywords  []string         `json:"keywords"`
	Source    core.TrendSource `json:"source"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Store defines the cache backend for trend entries.
// Implementations must be safe for concurrent use. Expiry is evaluated by
// the Service against Entry.FetchedAt, so a Store only has to keep the most
// recent entry per key.
type Store interface {
	// Get retrieves the entry for key. Returns nil, nil on a miss.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores the entry for key, overwriting any previous value.
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes the entry for key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// DeleteAll removes every entry.
	DeleteAll(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// MemoryStore implements Store with a process-local map.
// This is the default for single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory trend store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Get retrieves the entry for key.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return cloneEntry(entry), nil
}

// Set stores the entry for key.
func (s *MemoryStore) Set(_ context.Context, key string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cloneEntry(entry)
	return nil
}

// Delete removes the entry for key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// DeleteAll removes every entry.
func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }

// cloneEntry copies an entry so callers cannot mutate shared cache state.
func cloneEntry(e *Entry) *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Keywords = append([]string(nil), e.Keywords...)
	return &c
}
