package trends

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"

	"trendpress/internal/core"
)

const (
	defaultCSVBaseURL = "https://trends.google.com/trends/api/dailytrends"

	// maxCSVBody caps how much of the export response we read.
	maxCSVBody = 4 * 1024 * 1024
)

// CSVSource is the primary trend provider. It fetches the bulk export feed
// (JSON rows, up to ~480 keywords) and extracts the trend column plus the
// related-term breakdown.
type CSVSource struct {
	client  *http.Client
	baseURL string
}

// NewCSVSource creates the primary export source.
func NewCSVSource(client *http.Client) *CSVSource {
	return &CSVSource{client: client, baseURL: defaultCSVBaseURL}
}

// SetBaseURL overrides the export endpoint, used by tests.
func (s *CSVSource) SetBaseURL(u string) { s.baseURL = u }

// Name implements Source.
func (s *CSVSource) Name() core.TrendSource { return core.SourceCSV }

// Fetch implements Source.
func (s *CSVSource) Fetch(ctx context.Context, region Region, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("geo", region.Geo)
	q.Set("hours", "24")
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export fetch failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCSVBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read export body: %w", err)
	}

	body, err = decompressBody(body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}

	keywords := parseExportRows(body, limit)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("export contained no keywords")
	}
	return keywords, nil
}

// parseExportRows extracts trend keywords from the export payload.
// The payload is either a bare array of rows or an object wrapping the rows
// under "data" or "rows". Each row carries the keyword in a "Trends" column
// (casing varies) and optional related terms in "Trend breakdown".
func parseExportRows(body []byte, limit int) []string {
	// Google JSON endpoints prepend an XSSI guard.
	body = bytes.TrimPrefix(bytes.TrimSpace(body), []byte(")]}'"))

	parsed := gjson.ParseBytes(body)
	rows := parsed
	if !parsed.IsArray() {
		rows = parsed.Get("data")
		if !rows.Exists() {
			rows = parsed.Get("rows")
		}
	}

	keywords := make([]string, 0, limit)
	seen := make(map[string]struct{})

	add := func(k string) bool {
		k = strings.TrimSpace(k)
		if k == "" {
			return len(keywords) < limit
		}
		if _, dup := seen[k]; dup {
			return len(keywords) < limit
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
		return len(keywords) < limit
	}

	rows.ForEach(func(_, row gjson.Result) bool {
		k := row.Get("Trends").String()
		if k == "" {
			k = row.Get("trends").String()
		}
		if k == "" {
			k = row.Get("title").String()
		}
		if !add(k) {
			return false
		}

		// Related terms pad out the list when the caller asked for more
		// than the row count.
		for _, part := range strings.Split(row.Get("Trend breakdown").String(), ",") {
			part = strings.TrimSpace(part)
			if len(part) < 2 || len(part) > 50 {
				continue
			}
			if !add(part) {
				return false
			}
		}
		return true
	})

	return keywords
}

// decompressBody decodes the response body based on Content-Encoding.
// Supports gzip, deflate, and brotli (br).
func decompressBody(body []byte, contentEncoding string) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(strings.Split(contentEncoding, ",")[0]))
	if encoding == "" || encoding == "identity" {
		return body, nil
	}

	var reader io.Reader
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		defer func() {
			_ = gz.Close() //nolint:errcheck
		}()
		reader = gz
	case "deflate":
		reader = flate.NewReader(bytes.NewReader(body))
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}

	decompressed, err := io.ReadAll(io.LimitReader(reader, maxCSVBody))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress body: %w", err)
	}
	return decompressed, nil
}
