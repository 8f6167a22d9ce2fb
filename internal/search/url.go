package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"trendpress/internal/core"
)

const (
	maxPageBody    = 4 << 20
	maxPageContent = 8000
	maxKeywords    = 5
)

// Tags whose subtrees never contribute article text.
var ignoredTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"nav":      {},
	"footer":   {},
	"header":   {},
	"aside":    {},
	"noscript": {},
	"iframe":   {},
	"form":     {},
}

// FetchURLContent downloads a page and extracts its title, description,
// keywords, and readable body text. The target is validated first so the
// service cannot be used to probe internal networks.
func (c *Client) FetchURLContent(ctx context.Context, target string) (*core.URLContent, error) {
	if err := c.validate(ctx, target); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("URL returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	content := &core.URLContent{URL: target}
	extractMetadata(doc, content)
	content.Content = extractBodyText(doc)

	if content.Title == "" && content.Content == "" {
		return nil, fmt.Errorf("page has no extractable content")
	}
	return content, nil
}

func extractMetadata(doc *html.Node, content *core.URLContent) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if content.Title == "" {
					content.Title = strings.TrimSpace(textContent(n))
				}
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				property := strings.ToLower(attr(n, "property"))
				value := strings.TrimSpace(attr(n, "content"))
				if value == "" {
					break
				}
				switch {
				case name == "description":
					if content.Description == "" {
						content.Description = value
					}
				case property == "og:description":
					if content.Description == "" {
						content.Description = value
					}
				case property == "og:title":
					if content.Title == "" {
						content.Title = value
					}
				case name == "keywords":
					for _, kw := range strings.Split(value, ",") {
						if kw = strings.TrimSpace(kw); kw != "" {
							content.Keywords = append(content.Keywords, kw)
						}
					}
				}
			case "body":
				// Metadata lives in <head>; no need to descend further.
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
}

// extractBodyText prefers <article>, then <main>, then <body>, collapsing
// whitespace and clamping the result.
func extractBodyText(doc *html.Node) string {
	root := findElement(doc, "article")
	if root == nil {
		root = findElement(doc, "main")
	}
	if root == nil {
		root = findElement(doc, "body")
	}
	if root == nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := ignoredTags[n.Data]; skip {
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	text := strings.Join(strings.Fields(b.String()), " ")
	return truncate(text, maxPageContent)
}

// truncate cuts s to at most n bytes, backing up so a multi-byte rune is
// never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// ExtractKeywords picks search terms for a fetched page: meta keywords when
// present, otherwise significant words from the title. At most maxKeywords
// terms are returned, deduplicated case-insensitively.
func ExtractKeywords(content *core.URLContent) []string {
	if content == nil {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(kw string) {
		kw = strings.TrimSpace(kw)
		if kw == "" || len(out) >= maxKeywords {
			return
		}
		lower := strings.ToLower(kw)
		if _, dup := seen[lower]; dup {
			return
		}
		seen[lower] = struct{}{}
		out = append(out, kw)
	}

	for _, kw := range content.Keywords {
		add(kw)
	}
	if len(out) > 0 {
		return out
	}

	// No meta keywords; fall back to meaningful title words.
	for _, word := range strings.FieldsFunc(content.Title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len([]rune(word)) >= 2 {
			add(word)
		}
	}
	return out
}
