package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendpress/internal/core"
	"trendpress/internal/storage"
)

func testEntry(keyword string, at time.Time) *Entry {
	return &Entry{
		ID:           uuid.New().String(),
		Kind:         KindKeyword,
		Keyword:      keyword,
		Model:        "claude-sonnet-4-20250514",
		Style:        "informative",
		Lang:         "en",
		InputTokens:  100,
		OutputTokens: 400,
		TotalTokens:  500,
		CreatedAt:    at,
	}
}

func TestNewKeywordEntry(t *testing.T) {
	req := &core.ArticleRequest{Keyword: "golang", Style: "review", Lang: "ko"}
	article := &core.Article{
		Model: "claude-sonnet-4-20250514",
		Usage: core.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
	}

	entry := NewKeywordEntry(req, article)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, KindKeyword, entry.Kind)
	assert.Equal(t, "golang", entry.Keyword)
	assert.Equal(t, "review", entry.Style)
	assert.Equal(t, "ko", entry.Lang)
	assert.Equal(t, 30, entry.TotalTokens)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestNewURLEntry(t *testing.T) {
	req := &core.URLArticleRequest{URL: "https://example.com/post", Style: "how-to", Lang: "en"}
	article := &core.Article{Model: "claude-sonnet-4-20250514"}

	entry := NewURLEntry(req, article)

	assert.Equal(t, KindURL, entry.Kind)
	assert.Equal(t, "https://example.com/post", entry.URL)
	assert.Empty(t, entry.Keyword)
}

func TestMemoryStoreRecordAndList(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, testEntry(fmt.Sprintf("kw-%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	entries, err := store.List(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "kw-4", entries[0].Keyword, "newest entry first")
	assert.Equal(t, "kw-2", entries[2].Keyword)

	entries, err = store.List(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "kw-1", entries[0].Keyword)
}

func TestMemoryStoreBounded(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, testEntry(fmt.Sprintf("kw-%d", i), base)))
	}

	entries, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "kw-4", entries[0].Keyword)
	assert.Equal(t, "kw-2", entries[2].Keyword, "oldest entries dropped")
}

func TestMemoryStoreSummary(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, testEntry("a", time.Now())))
	require.NoError(t, store.Record(ctx, testEntry("b", time.Now())))

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalArticles)
	assert.Equal(t, int64(200), summary.TotalInput)
	assert.Equal(t, int64(800), summary.TotalOutput)
	assert.Equal(t, int64(1000), summary.TotalTokens)
}

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	backing, err := storage.NewSQLite(storage.SQLiteConfig{Path: filepath.Join(t.TempDir(), "history.db")})
	require.NoError(t, err)
	t.Cleanup(func() { backing.Close() })

	store, err := NewSQLiteStore(backing.SQLiteDB(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newSQLiteTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Record(ctx, testEntry(fmt.Sprintf("kw-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	entries, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "kw-2", entries[0].Keyword)
	assert.Equal(t, "kw-0", entries[2].Keyword)
	assert.Equal(t, base.Add(2*time.Minute), entries[0].CreatedAt)

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalArticles)
	assert.Equal(t, int64(1500), summary.TotalTokens)
}

func TestSQLiteStoreDuplicateID(t *testing.T) {
	store := newSQLiteTestStore(t)
	ctx := context.Background()

	entry := testEntry("dup", time.Now().UTC())
	require.NoError(t, store.Record(ctx, entry))
	require.NoError(t, store.Record(ctx, entry), "duplicate insert should be ignored")

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalArticles)
}

func TestSQLiteStoreListPagination(t *testing.T) {
	store := newSQLiteTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Record(ctx, testEntry(fmt.Sprintf("kw-%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	page, err := store.List(ctx, 4, 4)
	require.NoError(t, err)
	require.Len(t, page, 4)
	assert.Equal(t, "kw-5", page[0].Keyword)
	assert.Equal(t, "kw-2", page[3].Keyword)
}

func TestNewStoreMemoryFallback(t *testing.T) {
	store, err := NewStore(nil, 0)
	require.NoError(t, err)
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
}

func TestNewStoreSQLite(t *testing.T) {
	backing, err := storage.NewSQLite(storage.SQLiteConfig{Path: filepath.Join(t.TempDir(), "history.db")})
	require.NoError(t, err)
	defer backing.Close()

	store, err := NewStore(backing, 30)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*SQLiteStore)
	assert.True(t, ok)
}
