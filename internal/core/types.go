package core

import "time"

// TrendSource identifies which provider in the fallback chain produced a result.
type TrendSource string

const (
	// SourceCSV is the primary bulk export source (up to ~480 keywords).
	SourceCSV TrendSource = "csv"
	// SourceRSS is the secondary feed source (~10-20 keywords).
	SourceRSS TrendSource = "rss"
	// SourceFallback is the static keyword list used when both upstreams fail.
	SourceFallback TrendSource = "fallback"
)

// TrendResult is the outcome of a trending-keywords lookup.
type TrendResult struct {
	Region    string      `json:"region"`
	Keywords  []string    `json:"keywords"`
	Source    TrendSource `json:"source"`
	Cached    bool        `json:"cached"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// ArticleStyle values accepted by the generation endpoints.
var ArticleStyles = []string{"informative", "review", "how-to", "news-commentary"}

// ArticleLength values accepted by the generation endpoints.
var ArticleLengths = []string{"short", "medium", "long"}

// ArticleRequest describes a keyword-driven article generation request.
type ArticleRequest struct {
	Keyword      string `json:"keyword"`
	APIKey       string `json:"api_key,omitempty"`
	Lang         string `json:"lang"`
	Style        string `json:"style"`
	Length       string `json:"length"`
	UseEmoji     bool   `json:"use_emoji"`
	UseWebSearch bool   `json:"use_web_search"`

	// WebContext carries formatted search results, filled in by the handler
	// before the request reaches the writer.
	WebContext string `json:"-"`
}

// URLArticleRequest describes a URL-driven article generation request.
type URLArticleRequest struct {
	URL          string `json:"url"`
	APIKey       string `json:"api_key,omitempty"`
	Lang         string `json:"lang"`
	Style        string `json:"style"`
	Length       string `json:"length"`
	UseEmoji     bool   `json:"use_emoji"`
	UseWebSearch bool   `json:"use_web_search"`
}

// URLContent holds the extracted content of a fetched page.
type URLContent struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Keywords    []string `json:"keywords"`
}

// Article is a generated markdown article with its token accounting.
type Article struct {
	Markdown string `json:"markdown"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
}

// Usage holds normalized token counts from the model API.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
