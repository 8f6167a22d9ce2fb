package trends

import (
	"context"

	"trendpress/internal/core"
)

// Source is one provider attempt in the fallback chain. Implementations
// return the fetched keywords or an error; the Service tries sources in
// order and short-circuits on the first success. Results from different
// sources are never merged.
type Source interface {
	// Name tags results produced by this source.
	Name() core.TrendSource

	// Fetch returns up to limit trending keywords for the region.
	// Fetch must respect ctx cancellation so a slow upstream hands control
	// to the next source in the chain instead of blocking the request.
	Fetch(ctx context.Context, region Region, limit int) ([]string, error)
}
