package search

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="https://example.com/go">Go 1.25 released</a>
  <div class="result__snippet">The Go team has released Go 1.25 with new features.</div>
  <span class="result__url">example.com</span>
</div>
<div class="result">
  <a class="result__a" href="/l/?uddg=https%3A%2F%2Fblog.example.org%2Fpost">Generics in practice</a>
  <div class="result__snippet">A practical look at Go generics.</div>
  <span class="result__timestamp">2 days ago</span>
</div>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.Client(), slog.New(slog.NewTextHandler(testWriter{t}, nil)))
	client.SetEndpoints(server.URL, server.URL)
	return client, server
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestSearchParsesResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "golang", r.Form.Get("q"))
		w.Write([]byte(resultsPage))
	})

	results, err := client.Search(context.Background(), "golang", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Go 1.25 released", results[0].Title)
	assert.Equal(t, "https://example.com/go", results[0].URL)
	assert.Equal(t, "The Go team has released Go 1.25 with new features.", results[0].Snippet)
	assert.Equal(t, "example.com", results[0].Source)

	// Redirect links are unwrapped to the real target.
	assert.Equal(t, "https://blog.example.org/post", results[1].URL)
	assert.Equal(t, "2 days ago", results[1].Date)
}

func TestSearchRespectsMaxResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	})

	results, err := client.Search(context.Background(), "golang", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchErrorOnBadStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Search(context.Background(), "golang", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSearchWebAbsorbsErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	got := client.SearchWeb(context.Background(), "golang", "en")
	assert.Empty(t, got)
}

func TestSearchWebUsesCache(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(resultsPage))
	})

	first := client.SearchWeb(context.Background(), "golang", "en")
	require.NotEmpty(t, first)
	callsAfterFirst := calls.Load()

	second := client.SearchWeb(context.Background(), "golang", "en")
	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, calls.Load(), "second lookup should be served from cache")
}

func TestSearchWebFormatsSections(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	})

	got := client.SearchWeb(context.Background(), "golang", "en")
	assert.Contains(t, got, "## Web search results")
	assert.Contains(t, got, "## Recent news")
	assert.Contains(t, got, "1. Go 1.25 released")
	assert.Contains(t, got, "Source: https://example.com/go")
}

func TestSearchTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(resultsPage))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Search(ctx, "golang", 5)
	require.Error(t, err)
}

func TestFormatResultsEmpty(t *testing.T) {
	assert.Empty(t, FormatResults(nil, nil))
}

func TestFormatResultsNewsOnly(t *testing.T) {
	got := FormatResults(nil, []Result{{Title: "Breaking", Snippet: "Something happened.", Date: "1 hour ago"}})
	assert.Contains(t, got, "## Recent news")
	assert.Contains(t, got, "1. Breaking (1 hour ago)")
	assert.NotContains(t, got, "## Web search results")
}
