package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore implements Store for PostgreSQL databases.
type PostgreSQLStore struct {
	pool          *pgxpool.Pool
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewPostgreSQLStore creates a new PostgreSQL history store.
// It creates the history table if it doesn't exist and starts
// a background cleanup goroutine if retention is configured.
func NewPostgreSQLStore(pool *pgxpool.Pool, retentionDays int) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS history (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			keyword TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL,
			style TEXT NOT NULL DEFAULT '',
			lang TEXT NOT NULL DEFAULT '',
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_history_kind ON history(kind)",
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &PostgreSQLStore{
		pool:          pool,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, store.cleanup)
	}

	return store, nil
}

func (s *PostgreSQLStore) Record(ctx context.Context, entry *Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO history (id, kind, keyword, url, model, style, lang,
			input_tokens, output_tokens, total_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		entry.ID, entry.Kind, entry.Keyword, entry.URL, entry.Model, entry.Style, entry.Lang,
		entry.InputTokens, entry.OutputTokens, entry.TotalTokens, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (s *PostgreSQLStore) List(ctx context.Context, limit, offset int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, keyword, url, model, style, lang,
			input_tokens, output_tokens, total_tokens, created_at
		FROM history ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Keyword, &e.URL, &e.Model, &e.Style, &e.Lang,
			&e.InputTokens, &e.OutputTokens, &e.TotalTokens, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return entries, nil
}

func (s *PostgreSQLStore) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(total_tokens), 0)
		FROM history`).Scan(
		&summary.TotalArticles, &summary.TotalInput, &summary.TotalOutput, &summary.TotalTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history summary: %w", err)
	}
	return summary, nil
}

// Close stops the cleanup goroutine.
// The pool itself is managed by the storage layer. Safe to call multiple times.
func (s *PostgreSQLStore) Close() error {
	if s.retentionDays > 0 && s.stopCleanup != nil {
		s.closeOnce.Do(func() {
			close(s.stopCleanup)
		})
	}
	return nil
}

// cleanup deletes history entries older than the retention period.
func (s *PostgreSQLStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).UTC()

	tag, err := s.pool.Exec(ctx, "DELETE FROM history WHERE created_at < $1", cutoff)
	if err != nil {
		slog.Error("failed to cleanup old history entries", "error", err)
		return
	}

	if deleted := tag.RowsAffected(); deleted > 0 {
		slog.Info("cleaned up old history entries", "deleted", deleted)
	}
}
