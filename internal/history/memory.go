package history

import (
	"context"
	"sync"
)

const defaultMemoryMax = 1000

// MemoryStore keeps recent history in memory. The oldest entries are dropped
// once the bound is reached, so it is suitable for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	max     int
}

func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = defaultMemoryMax
	}
	return &MemoryStore{max: max}
}

func (s *MemoryStore) Record(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries = append(s.entries, &copied)
	if len(s.entries) > s.max {
		s.entries = s.entries[len(s.entries)-s.max:]
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	out := make([]*Entry, 0, limit)
	// entries are stored oldest first; walk backwards for newest-first order
	for i := len(s.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		copied := *s.entries[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryStore) Summary(_ context.Context) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &Summary{TotalArticles: len(s.entries)}
	for _, e := range s.entries {
		summary.TotalInput += int64(e.InputTokens)
		summary.TotalOutput += int64(e.OutputTokens)
		summary.TotalTokens += int64(e.TotalTokens)
	}
	return summary, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
