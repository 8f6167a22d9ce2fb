package trends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"trendpress/internal/core"
)

// Caller-visible errors. Upstream fetch failures are absorbed by the
// fallback chain and never surface.
var (
	ErrUnsupportedRegion = errors.New("unsupported region")
	ErrInvalidLimit      = errors.New("limit must be a positive integer")
)

const (
	// DefaultTTL is how long a cached result remains valid for reads.
	DefaultTTL = 10 * time.Minute

	// DefaultMaxLimit caps the number of keywords a caller can request.
	DefaultMaxLimit = 480

	// DefaultSourceTimeout bounds each provider attempt, so a hanging
	// upstream falls through to the next source instead of stalling the
	// request.
	DefaultSourceTimeout = 15 * time.Second
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendpress_trend_cache_lookups_total",
			Help: "Trend cache lookups by result (hit or miss)",
		},
		[]string{"result"},
	)
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendpress_trend_fetches_total",
			Help: "Trend fetches that produced a result, by source",
		},
		[]string{"source"},
	)
)

// Config holds the trend service configuration.
type Config struct {
	// TTL is the cache entry lifetime (default 10 minutes).
	TTL time.Duration

	// MaxLimit caps the requested keyword count (default 480).
	MaxLimit int

	// SourceTimeout bounds each upstream attempt (default 15 seconds).
	SourceTimeout time.Duration

	// Sources is the ordered provider chain, tried first to last.
	Sources []Source

	// Fallback is the static keyword list served when every source fails.
	// Must be non-empty; defaults to DefaultFallback.
	Fallback []string

	// Store is the cache backend (default: in-memory).
	Store Store

	// Clock is injectable for tests (default: time.Now).
	Clock func() time.Time
}

// Service answers trending-keyword lookups through a TTL cache and the
// ordered source chain. Safe for concurrent use.
type Service struct {
	ttl           time.Duration
	maxLimit      int
	sourceTimeout time.Duration
	sources       []Source
	fallback      []string
	store         Store
	now           func() time.Time
}

// NewService creates a trend service. It validates eagerly that the
// fallback list is non-empty: an empty list is a configuration defect and
// must fail at startup, never at request time.
func NewService(cfg Config) (*Service, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultMaxLimit
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = DefaultSourceTimeout
	}
	if cfg.Fallback == nil {
		cfg.Fallback = DefaultFallback
	}
	if len(cfg.Fallback) == 0 {
		return nil, fmt.Errorf("fallback keyword list must not be empty")
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Service{
		ttl:           cfg.TTL,
		maxLimit:      cfg.MaxLimit,
		sourceTimeout: cfg.SourceTimeout,
		sources:       cfg.Sources,
		fallback:      cfg.Fallback,
		store:         cfg.Store,
		now:           cfg.Clock,
	}, nil
}

// Trending returns up to limit trending keywords for the region.
//
// A valid cached entry is returned without any upstream call. On a miss the
// source chain is tried in order and the first success is cached and
// returned. When every source fails the static fallback list is served and
// cached with the same TTL, so a known-broken upstream is not hammered.
// The only errors are ErrUnsupportedRegion and ErrInvalidLimit.
func (s *Service) Trending(ctx context.Context, regionID string, limit int) (*core.TrendResult, error) {
	region, ok := LookupRegion(regionID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRegion, regionID)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	key := cacheKey(region.ID, limit)
	now := s.now()

	if entry := s.lookup(ctx, key, now); entry != nil {
		cacheLookups.WithLabelValues("hit").Inc()
		return &core.TrendResult{
			Region:    region.ID,
			Keywords:  entry.Keywords,
			Source:    entry.Source,
			Cached:    true,
			FetchedAt: entry.FetchedAt,
		}, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	keywords, source := s.fetch(ctx, region, limit)
	fetchesTotal.WithLabelValues(string(source)).Inc()

	entry := &Entry{Keywords: keywords, Source: source, FetchedAt: now}
	if err := s.store.Set(ctx, key, entry); err != nil {
		slog.Warn("failed to cache trend result", "key", key, "error", err)
	}

	return &core.TrendResult{
		Region:    region.ID,
		Keywords:  keywords,
		Source:    source,
		FetchedAt: now,
	}, nil
}

// Invalidate purges the cache entry for one region/limit pair.
func (s *Service) Invalidate(ctx context.Context, regionID string, limit int) error {
	if _, ok := LookupRegion(regionID); !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedRegion, regionID)
	}
	return s.store.Delete(ctx, cacheKey(regionID, limit))
}

// InvalidateAll purges every cache entry.
func (s *Service) InvalidateAll(ctx context.Context) error {
	return s.store.DeleteAll(ctx)
}

// Close releases the cache backend. The service must not be used after.
func (s *Service) Close() error {
	return s.store.Close()
}

// lookup returns the cached entry for key if it is still valid.
// Store errors are treated as misses; a flaky cache backend must not fail
// the request.
func (s *Service) lookup(ctx context.Context, key string, now time.Time) *Entry {
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		slog.Warn("trend cache lookup failed", "key", key, "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}
	if now.Sub(entry.FetchedAt) >= s.ttl {
		return nil
	}
	return entry
}

// fetch walks the source chain and returns the first non-empty result,
// falling back to the static list when the chain is exhausted. It never
// fails: the fallback list is validated non-empty at construction.
func (s *Service) fetch(ctx context.Context, region Region, limit int) ([]string, core.TrendSource) {
	for _, src := range s.sources {
		attemptCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
		keywords, err := src.Fetch(attemptCtx, region, limit)
		cancel()
		if err != nil {
			slog.Warn("trend source failed",
				"source", src.Name(),
				"region", region.ID,
				"error", err,
			)
			continue
		}
		if len(keywords) == 0 {
			slog.Warn("trend source returned no keywords", "source", src.Name(), "region", region.ID)
			continue
		}
		if len(keywords) > limit {
			keywords = keywords[:limit]
		}
		slog.Info("trend fetch succeeded",
			"source", src.Name(),
			"region", region.ID,
			"keywords", len(keywords),
		)
		return keywords, src.Name()
	}

	keywords := s.fallback
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return append([]string(nil), keywords...), core.SourceFallback
}

func cacheKey(regionID string, limit int) string {
	return fmt.Sprintf("%s:%d", regionID, limit)
}
