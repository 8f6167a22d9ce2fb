// Package history records completed article generations so users can review
// what was written, from which keyword or URL, and how many tokens it cost.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trendpress/internal/core"
)

// Kind distinguishes how an article was requested.
const (
	KindKeyword = "keyword"
	KindURL     = "url"
)

// Entry is a single recorded generation.
type Entry struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Keyword      string    `json:"keyword,omitempty"`
	URL          string    `json:"url,omitempty"`
	Model        string    `json:"model"`
	Style        string    `json:"style"`
	Lang         string    `json:"lang"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewKeywordEntry builds an entry for a keyword-driven generation.
func NewKeywordEntry(req *core.ArticleRequest, article *core.Article) *Entry {
	return &Entry{
		ID:           uuid.New().String(),
		Kind:         KindKeyword,
		Keyword:      req.Keyword,
		Model:        article.Model,
		Style:        req.Style,
		Lang:         req.Lang,
		InputTokens:  article.Usage.InputTokens,
		OutputTokens: article.Usage.OutputTokens,
		TotalTokens:  article.Usage.TotalTokens,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewURLEntry builds an entry for a URL-driven generation.
func NewURLEntry(req *core.URLArticleRequest, article *core.Article) *Entry {
	return &Entry{
		ID:           uuid.New().String(),
		Kind:         KindURL,
		URL:          req.URL,
		Model:        article.Model,
		Style:        req.Style,
		Lang:         req.Lang,
		InputTokens:  article.Usage.InputTokens,
		OutputTokens: article.Usage.OutputTokens,
		TotalTokens:  article.Usage.TotalTokens,
		CreatedAt:    time.Now().UTC(),
	}
}

// Summary aggregates token accounting across recorded generations.
type Summary struct {
	TotalArticles int   `json:"total_articles"`
	TotalInput    int64 `json:"total_input_tokens"`
	TotalOutput   int64 `json:"total_output_tokens"`
	TotalTokens   int64 `json:"total_tokens"`
}

// Store persists generation history.
// Implementations must be safe for concurrent use.
type Store interface {
	// Record writes one entry.
	Record(ctx context.Context, entry *Entry) error

	// List returns entries newest first, at most limit of them, skipping
	// offset entries.
	List(ctx context.Context, limit, offset int) ([]*Entry, error)

	// Summary returns aggregate statistics over all recorded entries.
	Summary(ctx context.Context) (*Summary, error)

	// Close releases store resources. It does not close a shared database
	// connection.
	Close() error
}
