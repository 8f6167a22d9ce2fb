// Package server provides HTTP handlers and server setup for the article service.
package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"trendpress/internal/core"
	"trendpress/internal/history"
	"trendpress/internal/ratelimit"
	"trendpress/internal/search"
	"trendpress/internal/trends"
	"trendpress/internal/writer"
)

const (
	defaultRegion      = "south_korea"
	defaultTrendLimit  = 10
	defaultHistoryPage = 50
)

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	trends  *trends.Service
	writer  *writer.Writer
	search  *search.Client
	history history.Store
	logger  *slog.Logger

	generateLimiter *ratelimit.Limiter
	trendsLimiter   *ratelimit.Limiter
}

// HandlerConfig wires the handler's dependencies.
type HandlerConfig struct {
	Trends  *trends.Service
	Writer  *writer.Writer
	Search  *search.Client
	History history.Store
	Logger  *slog.Logger

	GenerateLimiter *ratelimit.Limiter
	TrendsLimiter   *ratelimit.Limiter
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		trends:          cfg.Trends,
		writer:          cfg.Writer,
		search:          cfg.Search,
		history:         cfg.History,
		logger:          logger,
		generateLimiter: cfg.GenerateLimiter,
		trendsLimiter:   cfg.TrendsLimiter,
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Regions handles GET /api/regions
func (h *Handler) Regions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"regions": trends.SupportedRegions(),
	})
}

// Trends handles GET /api/trends
func (h *Handler) Trends(c echo.Context) error {
	region := c.QueryParam("region")
	if region == "" {
		region = defaultRegion
	}

	limit := defaultTrendLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return handleError(c, core.NewInvalidRequestError("limit must be an integer", err))
		}
		limit = parsed
	}

	result, err := h.trends.Trending(c.Request().Context(), region, limit)
	if err != nil {
		switch {
		case errors.Is(err, trends.ErrUnsupportedRegion):
			return handleError(c, core.NewInvalidRequestError("unsupported region: "+region, err))
		case errors.Is(err, trends.ErrInvalidLimit):
			return handleError(c, core.NewInvalidRequestError("limit must be positive", err))
		}
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// InvalidateTrends handles DELETE /api/trends/cache.
// With a region query parameter it purges one entry, otherwise everything.
func (h *Handler) InvalidateTrends(c echo.Context) error {
	ctx := c.Request().Context()

	region := c.QueryParam("region")
	if region == "" {
		if err := h.trends.InvalidateAll(ctx); err != nil {
			return handleError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "cache cleared"})
	}

	limit := defaultTrendLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return handleError(c, core.NewInvalidRequestError("limit must be an integer", err))
		}
		limit = parsed
	}

	if err := h.trends.Invalidate(ctx, region, limit); err != nil {
		if errors.Is(err, trends.ErrUnsupportedRegion) {
			return handleError(c, core.NewInvalidRequestError("unsupported region: "+region, err))
		}
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cache entry cleared"})
}

// Generate handles POST /api/generate
func (h *Handler) Generate(c echo.Context) error {
	var req core.ArticleRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if err := validateArticleRequest(&req); err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	if req.UseWebSearch && h.search != nil {
		req.WebContext = h.search.SearchWeb(ctx, req.Keyword, req.Lang)
	}

	article, err := h.writer.GenerateArticle(ctx, &req)
	if err != nil {
		return handleError(c, friendlyUpstream(err))
	}

	h.record(c, history.NewKeywordEntry(&req, article))
	return c.JSON(http.StatusOK, article)
}

// GenerateStream handles POST /api/generate/stream
func (h *Handler) GenerateStream(c echo.Context) error {
	var req core.ArticleRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if err := validateArticleRequest(&req); err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	if req.UseWebSearch && h.search != nil {
		req.WebContext = h.search.SearchWeb(ctx, req.Keyword, req.Lang)
	}

	stream, err := h.writer.StreamArticle(ctx, &req)
	if err != nil {
		return handleError(c, friendlyUpstream(err))
	}

	return h.proxyStream(c, stream)
}

// GenerateFromURL handles POST /api/generate-from-url
func (h *Handler) GenerateFromURL(c echo.Context) error {
	var req core.URLArticleRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if err := validateURLArticleRequest(&req); err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	content, err := h.search.FetchURLContent(ctx, req.URL)
	if err != nil {
		return handleError(c, core.NewInvalidRequestError("failed to fetch URL: "+err.Error(), err))
	}

	var relatedSearch string
	if req.UseWebSearch {
		relatedSearch = h.search.SearchRelatedToURL(ctx, content)
	}

	article, err := h.writer.GenerateFromURL(ctx, content, &req, relatedSearch)
	if err != nil {
		return handleError(c, friendlyUpstream(err))
	}

	h.record(c, history.NewURLEntry(&req, article))
	return c.JSON(http.StatusOK, article)
}

// GenerateFromURLStream handles POST /api/generate-from-url/stream
func (h *Handler) GenerateFromURLStream(c echo.Context) error {
	var req core.URLArticleRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if err := validateURLArticleRequest(&req); err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	content, err := h.search.FetchURLContent(ctx, req.URL)
	if err != nil {
		return handleError(c, core.NewInvalidRequestError("failed to fetch URL: "+err.Error(), err))
	}

	var relatedSearch string
	if req.UseWebSearch {
		relatedSearch = h.search.SearchRelatedToURL(ctx, content)
	}

	stream, err := h.writer.StreamFromURL(ctx, content, &req, relatedSearch)
	if err != nil {
		return handleError(c, friendlyUpstream(err))
	}

	return h.proxyStream(c, stream)
}

// History handles GET /api/history
func (h *Handler) History(c echo.Context) error {
	limit := defaultHistoryPage
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return handleError(c, core.NewInvalidRequestError("limit must be a positive integer", err))
		}
		limit = parsed
	}

	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return handleError(c, core.NewInvalidRequestError("offset must be a non-negative integer", err))
		}
		offset = parsed
	}

	entries, err := h.history.List(c.Request().Context(), limit, offset)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// HistorySummary handles GET /api/history/summary
func (h *Handler) HistorySummary(c echo.Context) error {
	summary, err := h.history.Summary(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// record writes a history entry, logging rather than failing the request.
func (h *Handler) record(c echo.Context, entry *history.Entry) {
	if h.history == nil {
		return
	}
	if err := h.history.Record(c.Request().Context(), entry); err != nil {
		h.logger.Warn("failed to record history entry", "error", err)
	}
}

// proxyStream copies generated text to the client chunk by chunk, flushing
// after each write so the browser renders the article as it is produced.
func (h *Handler) proxyStream(c echo.Context, stream io.ReadCloser) error {
	defer func() {
		_ = stream.Close() //nolint:errcheck
	}()

	c.Response().Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().WriteHeader(http.StatusOK)

	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := c.Response().Write(buf[:n]); werr != nil {
				// Client went away; nothing to return after headers are sent
				return nil
			}
			c.Response().Flush()
		}
		if err != nil {
			if err != io.EOF {
				h.logger.Warn("stream interrupted", "error", err)
			}
			return nil
		}
	}
}

// friendlyUpstream rewrites provider failure messages into the text users
// see, leaving non-provider errors untouched.
func friendlyUpstream(err error) error {
	var serviceErr *core.ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Upstream != "" {
		serviceErr.Message = writer.FriendlyMessage(serviceErr.Message)
	}
	return err
}

// handleError converts service errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var serviceErr *core.ServiceError
	if errors.As(err, &serviceErr) {
		return c.JSON(serviceErr.HTTPStatusCode(), serviceErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
