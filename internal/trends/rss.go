package trends

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"trendpress/internal/core"
)

const (
	defaultRSSBaseURL = "https://trends.google.com/trending/rss"

	maxRSSBody = 1024 * 1024
)

// RSSSource is the secondary trend provider. The feed is lightweight and
// works for every region but only carries the top 10-20 entries.
type RSSSource struct {
	client  *http.Client
	baseURL string
}

// NewRSSSource creates the secondary feed source.
func NewRSSSource(client *http.Client) *RSSSource {
	return &RSSSource{client: client, baseURL: defaultRSSBaseURL}
}

// SetBaseURL overrides the feed endpoint, used by tests.
func (s *RSSSource) SetBaseURL(u string) { s.baseURL = u }

// Name implements Source.
func (s *RSSSource) Name() core.TrendSource { return core.SourceRSS }

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title string `xml:"title"`
}

// Fetch implements Source.
func (s *RSSSource) Fetch(ctx context.Context, region Region, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("geo", region.Geo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRSSBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	keywords := make([]string, 0, len(feed.Channel.Items))
	seen := make(map[string]struct{})
	for _, item := range feed.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		keywords = append(keywords, title)
		if len(keywords) >= limit {
			break
		}
	}

	if len(keywords) == 0 {
		return nil, fmt.Errorf("feed contained no items")
	}
	return keywords, nil
}
