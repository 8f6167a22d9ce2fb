// Package writer generates markdown blog articles through the Anthropic
// Messages API.
package writer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"trendpress/internal/core"
	"trendpress/internal/httpclient"
)

const (
	defaultBaseURL      = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-20250514"

	maxTokens   = 2048
	temperature = 0.7
)

// Writer is an Anthropic Messages API client producing markdown articles.
type Writer struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// New creates a writer with the service-wide API key and model.
// The key may be empty when every request carries its own key.
func New(apiKey, model string) *Writer {
	return NewWithHTTPClient(apiKey, model, httpclient.NewDefaultHTTPClient())
}

// NewWithHTTPClient creates a writer with a custom HTTP client.
func NewWithHTTPClient(apiKey, model string, client *http.Client) *Writer {
	if model == "" {
		model = DefaultModel
	}
	return &Writer{
		httpClient: client,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      model,
	}
}

// SetBaseURL allows configuring a custom API base URL, used by tests.
func (w *Writer) SetBaseURL(url string) {
	w.baseURL = url
}

// Model returns the configured model id.
func (w *Writer) Model() string {
	return w.model
}

// resolveKey prefers the per-request key over the service-wide one.
func (w *Writer) resolveKey(requestKey string) (string, error) {
	key := strings.TrimSpace(requestKey)
	if key == "" {
		key = w.apiKey
	}
	if key == "" {
		return "", core.NewInvalidRequestError(
			"no API key configured: set ANTHROPIC_API_KEY or pass api_key in the request body", nil)
	}
	return key, nil
}

// anthropicRequest is the Messages API request format.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the Messages API response format.
type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// anthropicStreamEvent is one SSE event from a streaming response.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"delta,omitempty"`
}

// GenerateArticle produces a markdown article for a keyword request.
func (w *Writer) GenerateArticle(ctx context.Context, req *core.ArticleRequest) (*core.Article, error) {
	system, user := buildKeywordPrompts(req)
	return w.complete(ctx, req.APIKey, system, user)
}

// StreamArticle produces an article as a plain-text stream.
// The caller must close the returned reader.
func (w *Writer) StreamArticle(ctx context.Context, req *core.ArticleRequest) (io.ReadCloser, error) {
	system, user := buildKeywordPrompts(req)
	return w.stream(ctx, req.APIKey, system, user)
}

// GenerateFromURL produces a markdown article reinterpreting fetched URL
// content, optionally enriched with related search results.
func (w *Writer) GenerateFromURL(ctx context.Context, content *core.URLContent, req *core.URLArticleRequest, relatedSearch string) (*core.Article, error) {
	system, user := buildURLPrompts(content, req, relatedSearch)
	return w.complete(ctx, req.APIKey, system, user)
}

// StreamFromURL is the streaming variant of GenerateFromURL.
// The caller must close the returned reader.
func (w *Writer) StreamFromURL(ctx context.Context, content *core.URLContent, req *core.URLArticleRequest, relatedSearch string) (io.ReadCloser, error) {
	system, user := buildURLPrompts(content, req, relatedSearch)
	return w.stream(ctx, req.APIKey, system, user)
}

func (w *Writer) newRequest(ctx context.Context, apiKey string, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	return httpReq, nil
}

func (w *Writer) complete(ctx context.Context, requestKey, system, user string) (*core.Article, error) {
	apiKey, err := w.resolveKey(requestKey)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(&anthropicRequest{
		Model:       w.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request", err)
	}

	httpReq, err := w.newRequest(ctx, apiKey, body)
	if err != nil {
		return nil, err
	}

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewUpstreamError("anthropic", http.StatusBadGateway, "failed to send request: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewUpstreamError("anthropic", http.StatusBadGateway, "failed to read response: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, core.ParseUpstreamError("anthropic", resp.StatusCode, respBody, nil)
	}

	var ar anthropicResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		return nil, core.NewUpstreamError("anthropic", http.StatusBadGateway, "failed to unmarshal response: "+err.Error(), err)
	}

	var sb strings.Builder
	for _, block := range ar.Content {
		sb.WriteString(block.Text)
	}

	return &core.Article{
		Markdown: cleanMarkdown(strings.TrimSpace(sb.String())),
		Model:    ar.Model,
		Usage: core.Usage{
			InputTokens:  ar.Usage.InputTokens,
			OutputTokens: ar.Usage.OutputTokens,
			TotalTokens:  ar.Usage.InputTokens + ar.Usage.OutputTokens,
		},
	}, nil
}

func (w *Writer) stream(ctx context.Context, requestKey, system, user string) (io.ReadCloser, error) {
	apiKey, err := w.resolveKey(requestKey)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(&anthropicRequest{
		Model:       w.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
		Stream:      true,
	})
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request", err)
	}

	httpReq, err := w.newRequest(ctx, apiKey, body)
	if err != nil {
		return nil, err
	}

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewUpstreamError("anthropic", http.StatusBadGateway, "failed to send request: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			respBody = []byte("failed to read error response")
		}
		_ = resp.Body.Close() //nolint:errcheck
		return nil, core.ParseUpstreamError("anthropic", resp.StatusCode, respBody, nil)
	}

	return newTextStream(resp.Body), nil
}

// textStream converts the Anthropic SSE stream into plain article text,
// emitting only the content_block_delta text fragments.
type textStream struct {
	reader *bufio.Reader
	body   io.ReadCloser
	buffer []byte
	closed bool
}

func newTextStream(body io.ReadCloser) *textStream {
	return &textStream{
		reader: bufio.NewReader(body),
		body:   body,
	}
}

func (ts *textStream) Read(p []byte) (int, error) {
	if len(ts.buffer) > 0 {
		n := copy(p, ts.buffer)
		ts.buffer = ts.buffer[n:]
		return n, nil
	}
	if ts.closed {
		return 0, io.EOF
	}

	for {
		line, err := ts.reader.ReadBytes('\n')
		if err != nil {
			ts.closed = true
			_ = ts.body.Close() //nolint:errcheck
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, err
		}

		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if len(data) == 0 {
			continue
		}

		var event anthropicStreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		if event.Type == "message_stop" {
			ts.closed = true
			_ = ts.body.Close() //nolint:errcheck
			return 0, io.EOF
		}
		if event.Delta == nil || event.Delta.Text == "" {
			continue
		}

		n := copy(p, event.Delta.Text)
		if n < len(event.Delta.Text) {
			ts.buffer = append(ts.buffer, event.Delta.Text[n:]...)
		}
		return n, nil
	}
}

// Close closes the underlying response body.
func (ts *textStream) Close() error {
	ts.closed = true
	return ts.body.Close()
}

// cleanMarkdown strips a wrapping markdown code fence if the model added one.
func cleanMarkdown(text string) string {
	if strings.HasPrefix(text, "```") && strings.Contains(text[3:], "```") {
		first := strings.Index(text, "\n")
		if first >= 0 {
			text = strings.TrimSpace(text[first+1 : strings.LastIndex(text, "```")])
		}
	}
	return text
}

// FriendlyMessage maps common Anthropic API failure text to actionable
// user-facing messages, passing unrecognized text through unchanged.
func FriendlyMessage(message string) string {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, "credit", "billing", "purchase credits", "too low", "upgrade", "plans"):
		return "The Anthropic API account is out of credits. Top up at https://console.anthropic.com/ under Plans & Billing."
	case strings.Contains(msg, "rate") && strings.Contains(msg, "limit"):
		return "The Anthropic API request quota was exceeded. Try again shortly."
	case strings.Contains(msg, "authentication") ||
		(strings.Contains(msg, "invalid") && (strings.Contains(msg, "key") || strings.Contains(msg, "api"))):
		return "The Anthropic API key is invalid. Check the configured key."
	case strings.Contains(msg, "not_found") && strings.Contains(msg, "model"):
		return fmt.Sprintf("The configured model was not found. Check the MODEL setting against the current Anthropic model list. (%s)", message)
	default:
		return message
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
