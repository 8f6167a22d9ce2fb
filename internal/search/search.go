package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"trendpress/internal/core"
)

const (
	defaultSearchURL = "https://html.duckduckgo.com/html/"
	defaultNewsURL   = "https://duckduckgo.com/html/"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	maxSearchBody = 2 << 20
)

// Result is a single search hit used to build article context.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Source  string `json:"source,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Client performs web and news searches against DuckDuckGo's HTML endpoints.
type Client struct {
	httpClient *http.Client
	searchURL  string
	newsURL    string
	cache      *Cache
	logger     *slog.Logger

	// validate guards outbound page fetches. Replaceable in tests.
	validate func(context.Context, string) error
}

func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		searchURL:  defaultSearchURL,
		newsURL:    defaultNewsURL,
		cache:      NewCache(0, 0),
		logger:     logger,
		validate:   ValidateTargetURL,
	}
}

// SetEndpoints overrides the search endpoints, used in tests.
func (c *Client) SetEndpoints(searchURL, newsURL string) {
	c.searchURL = searchURL
	c.newsURL = newsURL
}

// Search runs a web search and returns up to maxResults hits.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	form := url.Values{"q": {query}}
	results, err := c.fetch(ctx, c.searchURL, form)
	if err != nil {
		return nil, err
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// SearchNews runs a news-scoped search. Results carry a Source when the page
// exposes one.
func (c *Client) SearchNews(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 3
	}
	form := url.Values{"q": {query}, "iar": {"news"}, "ia": {"news"}}
	results, err := c.fetch(ctx, c.newsURL, form)
	if err != nil {
		return nil, err
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// SearchWeb gathers web and news results for a keyword and formats them as
// prompt context. It never fails: any error is logged and an empty string is
// returned so article generation can proceed without enrichment.
func (c *Client) SearchWeb(ctx context.Context, keyword, lang string) string {
	cacheKey := fmt.Sprintf("%s:%s", lang, keyword)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached
	}

	query := keyword
	if lang == "ko" {
		query = keyword + " 최신 뉴스"
	} else {
		query = keyword + " latest news"
	}

	web, err := c.Search(ctx, keyword, 5)
	if err != nil {
		c.logger.Warn("web search failed", "keyword", keyword, "error", err)
	}
	news, err := c.SearchNews(ctx, query, 3)
	if err != nil {
		c.logger.Warn("news search failed", "keyword", keyword, "error", err)
	}

	formatted := FormatResults(web, news)
	if formatted != "" {
		c.cache.Set(cacheKey, formatted)
	}
	return formatted
}

// SearchRelatedToURL searches for content related to an already-fetched page,
// using its extracted keywords. Errors are absorbed the same way SearchWeb
// absorbs them.
func (c *Client) SearchRelatedToURL(ctx context.Context, content *core.URLContent) string {
	keywords := ExtractKeywords(content)
	if len(keywords) == 0 {
		return ""
	}
	query := strings.Join(keywords, " ")

	cacheKey := "url:" + query
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached
	}

	results, err := c.Search(ctx, query, 5)
	if err != nil {
		c.logger.Warn("related search failed", "query", query, "error", err)
		return ""
	}

	formatted := FormatResults(results, nil)
	if formatted != "" {
		c.cache.Set(cacheKey, formatted)
	}
	return formatted
}

// ClearCache drops all cached search results.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

func (c *Client) fetch(ctx context.Context, endpoint string, form url.Values) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	return parseResults(doc), nil
}

// parseResults walks DuckDuckGo's HTML result list. Each hit lives in a
// div.result with an a.result__a title link and a .result__snippet body.
func parseResults(doc *html.Node) []Result {
	var results []Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if r, ok := parseResult(n); ok {
				results = append(results, r)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results
}

func parseResult(n *html.Node) (Result, bool) {
	var r Result
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch {
			case node.Data == "a" && hasClass(node, "result__a"):
				r.Title = strings.TrimSpace(textContent(node))
				r.URL = cleanResultURL(attr(node, "href"))
			case hasClass(node, "result__snippet"):
				r.Snippet = strings.TrimSpace(textContent(node))
			case hasClass(node, "result__url"):
				if r.Source == "" {
					r.Source = strings.TrimSpace(textContent(node))
				}
			case hasClass(node, "result__timestamp"):
				r.Date = strings.TrimSpace(textContent(node))
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	if r.Title == "" {
		return Result{}, false
	}
	return r, true
}

// cleanResultURL unwraps DuckDuckGo's redirect links (/l/?uddg=<target>).
func cleanResultURL(href string) string {
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
		return target
	}
	return href
}

// FormatResults renders search hits into the reference block embedded in
// article prompts. Web results and news results get separate sections; an
// empty input produces an empty string.
func FormatResults(web, news []Result) string {
	if len(web) == 0 && len(news) == 0 {
		return ""
	}
	var b strings.Builder
	if len(web) > 0 {
		b.WriteString("## Web search results\n")
		for i, r := range web {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
			if r.Snippet != "" {
				fmt.Fprintf(&b, "   %s\n", r.Snippet)
			}
			if r.URL != "" {
				fmt.Fprintf(&b, "   Source: %s\n", r.URL)
			}
		}
	}
	if len(news) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## Recent news\n")
		for i, r := range news {
			fmt.Fprintf(&b, "%d. %s", i+1, r.Title)
			if r.Date != "" {
				fmt.Fprintf(&b, " (%s)", r.Date)
			}
			b.WriteString("\n")
			if r.Snippet != "" {
				fmt.Fprintf(&b, "   %s\n", r.Snippet)
			}
		}
	}
	return b.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
