package ports

import (
	"context"
	"time"

	"meetingindex.app/internal/core/meeting"
)

// PositionLookupValue is the outcome of a geocode lookup. Position is nil for
// queries the geocoding service could not resolve; Cached reports whether the
// value came from the cache.
type PositionLookupValue struct {
	Position *meeting.Position
	Cached   bool
}

// PositionLookup resolves address-shaped query strings into positions
type PositionLookup interface {
	Search(ctx context.Context, query string) (PositionLookupValue, error)
}

// CachedPosition is one geocode cache entry. Nil coordinates record a
// negative lookup so unresolvable queries are not retried before expiry.
type CachedPosition struct {
	Query       string
	Latitude    *float64
	Longitude   *float64
	RequestedAt time.Time
}

// PositionCache is the persistence backend of the geocoder. The entry TTL is
// fixed at construction; Get returns nil when the query is absent or its
// entry has expired.
type PositionCache interface {
	Get(ctx context.Context, query string) (*CachedPosition, error)
	Put(ctx context.Context, entry CachedPosition) error
	Close() error
}
