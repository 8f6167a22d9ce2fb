package history

import (
	"fmt"

	"trendpress/internal/storage"
)

// NewStore creates the history store matching the storage backend.
// A nil storage selects the in-memory store, used when no persistence is
// configured.
func NewStore(store storage.Storage, retentionDays int) (Store, error) {
	if store == nil {
		return NewMemoryStore(0), nil
	}

	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.SQLiteDB(), retentionDays)

	case storage.TypePostgreSQL:
		pool := store.PostgreSQLPool()
		if pool == nil {
			return nil, fmt.Errorf("PostgreSQL pool is nil")
		}
		return NewPostgreSQLStore(pool, retentionDays)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}
