package trends

// Region describes a supported trend region.
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Geo is the two-letter code used by the upstream trend endpoints.
	Geo string `json:"-"`
}

// regions is the fixed supported-region registry. Lookups outside this set
// are rejected before any upstream call is made.
var regions = map[string]Region{
	"south_korea":    {ID: "south_korea", Name: "South Korea", Geo: "KR"},
	"united_states":  {ID: "united_states", Name: "United States", Geo: "US"},
	"japan":          {ID: "japan", Name: "Japan", Geo: "JP"},
	"united_kingdom": {ID: "united_kingdom", Name: "United Kingdom", Geo: "GB"},
}

// regionOrder fixes the listing order for the API.
var regionOrder = []string{"south_korea", "united_states", "japan", "united_kingdom"}

// LookupRegion returns the region for id.
func LookupRegion(id string) (Region, bool) {
	r, ok := regions[id]
	return r, ok
}

// SupportedRegions returns the registry in a stable order.
func SupportedRegions() []Region {
	out := make([]Region, 0, len(regionOrder))
	for _, id := range regionOrder {
		out = append(out, regions[id])
	}
	return out
}
