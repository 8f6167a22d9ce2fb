package writer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendpress/internal/core"
)

func newTestWriter(t *testing.T, handler http.HandlerFunc) *Writer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	w := NewWithHTTPClient("sk-ant-test-key-1234567890", "claude-sonnet-4-20250514", srv.Client())
	w.SetBaseURL(srv.URL)
	return w
}

func TestGenerateArticle(t *testing.T) {
	w := newTestWriter(t, func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test-key-1234567890", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-sonnet-4-20250514", req.Model)
		assert.Equal(t, 2048, req.MaxTokens)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "ai coding")

		_ = json.NewEncoder(rw).Encode(&anthropicResponse{
			ID:    "msg_123",
			Model: "claude-sonnet-4-20250514",
			Content: []anthropicContent{
				{Type: "text", Text: "# AI Coding\n\nGreat article."},
			},
			Usage: anthropicUsage{InputTokens: 120, OutputTokens: 450},
		})
	})

	article, err := w.GenerateArticle(context.Background(), &core.ArticleRequest{
		Keyword: "ai coding",
		Lang:    "en",
		Style:   "informative",
		Length:  "medium",
	})
	require.NoError(t, err)
	assert.Equal(t, "# AI Coding\n\nGreat article.", article.Markdown)
	assert.Equal(t, 120, article.Usage.InputTokens)
	assert.Equal(t, 450, article.Usage.OutputTokens)
	assert.Equal(t, 570, article.Usage.TotalTokens)
}

func TestGenerateArticleStripsCodeFence(t *testing.T) {
	w := newTestWriter(t, func(rw http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(rw).Encode(&anthropicResponse{
			Content: []anthropicContent{
				{Type: "text", Text: "```markdown\n# Title\n\nBody.\n```"},
			},
		})
	})

	article, err := w.GenerateArticle(context.Background(), &core.ArticleRequest{Keyword: "x"})
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody.", article.Markdown)
}

func TestGenerateArticleRequestKeyOverridesDefault(t *testing.T) {
	w := newTestWriter(t, func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-ant-override-key-000000", r.Header.Get("x-api-key"))
		_ = json.NewEncoder(rw).Encode(&anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "ok"}},
		})
	})

	_, err := w.GenerateArticle(context.Background(), &core.ArticleRequest{
		Keyword: "x",
		APIKey:  "sk-ant-override-key-000000",
	})
	require.NoError(t, err)
}

func TestGenerateArticleNoKey(t *testing.T) {
	w := NewWithHTTPClient("", "claude-sonnet-4-20250514", http.DefaultClient)

	_, err := w.GenerateArticle(context.Background(), &core.ArticleRequest{Keyword: "x"})
	require.Error(t, err)

	var svcErr *core.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, core.ErrorTypeInvalidRequest, svcErr.Type)
}

func TestGenerateArticleUpstreamError(t *testing.T) {
	w := newTestWriter(t, func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusTooManyRequests)
		_, _ = rw.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "Number of requests has exceeded your rate limit"}}`))
	})

	_, err := w.GenerateArticle(context.Background(), &core.ArticleRequest{Keyword: "x"})
	require.Error(t, err)

	var svcErr *core.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, core.ErrorTypeRateLimit, svcErr.Type)
	assert.Equal(t, http.StatusTooManyRequests, svcErr.HTTPStatusCode())
}

func TestStreamArticle(t *testing.T) {
	sse := strings.Join([]string{
		`event: message_start`,
		`data: {"type": "message_start"}`,
		``,
		`event: content_block_delta`,
		`data: {"type": "content_block_delta", "delta": {"type": "text_delta", "text": "# Hello"}}`,
		``,
		`event: content_block_delta`,
		`data: {"type": "content_block_delta", "delta": {"type": "text_delta", "text": " world"}}`,
		``,
		`event: message_stop`,
		`data: {"type": "message_stop"}`,
		``,
	}, "\n")

	w := newTestWriter(t, func(rw http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		rw.Header().Set("Content-Type", "text/event-stream")
		_, _ = rw.Write([]byte(sse))
	})

	stream, err := w.StreamArticle(context.Background(), &core.ArticleRequest{Keyword: "hello"})
	require.NoError(t, err)
	defer func() {
		_ = stream.Close() //nolint:errcheck
	}()

	text, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "# Hello world", string(text))
}

func TestStreamArticleUpstreamError(t *testing.T) {
	w := newTestWriter(t, func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusUnauthorized)
		_, _ = rw.Write([]byte(`{"error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	})

	_, err := w.StreamArticle(context.Background(), &core.ArticleRequest{Keyword: "x"})
	require.Error(t, err)

	var svcErr *core.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, core.ErrorTypeAuthentication, svcErr.Type)
}

func TestGenerateFromURL(t *testing.T) {
	w := newTestWriter(t, func(rw http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Messages[0].Content, "https://example.com/post")
		assert.Contains(t, req.Messages[0].Content, "Original content")

		_ = json.NewEncoder(rw).Encode(&anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "# Rewritten"}},
		})
	})

	article, err := w.GenerateFromURL(context.Background(),
		&core.URLContent{URL: "https://example.com/post", Title: "Post", Content: "Some body text."},
		&core.URLArticleRequest{Lang: "en", Style: "review", Length: "short"},
		"")
	require.NoError(t, err)
	assert.Equal(t, "# Rewritten", article.Markdown)
}

func TestFriendlyMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"credit", "Your credit balance is too low", "out of credits"},
		{"rate limit", "rate limit exceeded", "quota was exceeded"},
		{"bad key", "invalid x-api-key", "key is invalid"},
		{"unknown model", "not_found: model claude-x", "model was not found"},
		{"other", "connection reset", "connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FriendlyMessage(tt.message), tt.want)
		})
	}
}
