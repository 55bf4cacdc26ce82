package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

// GeocoderAdapter implements the PositionLookup port against a
// positionstack-style HTTP geocoding API, backed by a persistent cache.
// Upstream requests are serialized and spaced at least rateLimit apart; the
// mutex is held across the wait and the request so concurrent callers queue up
// behind it.
type GeocoderAdapter struct {
	baseURL   string
	client    *http.Client
	cache     ports.PositionCache
	rateLimit time.Duration
	logger    ports.Logger
	metrics   ports.MetricsRecorder

	mu          sync.Mutex
	lastRequest time.Time
}

// GeocoderParams holds parameters for creating the geocoder adapter
type GeocoderParams struct {
	BaseURL   string
	Cache     ports.PositionCache
	RateLimit time.Duration
	Logger    ports.Logger
	Metrics   ports.MetricsRecorder
}

// NewGeocoderAdapter creates a new geocoder adapter
func NewGeocoderAdapter(params GeocoderParams) *GeocoderAdapter {
	return &GeocoderAdapter{
		baseURL:   params.BaseURL,
		client:    &http.Client{Timeout: 60 * time.Second},
		cache:     params.Cache,
		rateLimit: params.RateLimit,
		logger:    params.Logger,
		metrics:   params.Metrics,
	}
}

// Search resolves a query through the cache, falling back to the upstream
// geocoding service on a miss. Unresolvable queries are cached too, so they
// cost one upstream request per cache TTL rather than one per sync.
func (g *GeocoderAdapter) Search(ctx context.Context, query string) (ports.PositionLookupValue, error) {
	entry, err := g.cache.Get(ctx, query)
	if err != nil {
		return ports.PositionLookupValue{}, err
	}
	if entry != nil {
		g.metrics.RecordGeocodeCacheHit()
		return ports.PositionLookupValue{
			Position: positionFromCoordinates(entry.Latitude, entry.Longitude),
			Cached:   true,
		}, nil
	}
	g.metrics.RecordGeocodeCacheMiss()

	position, err := g.fetchPosition(ctx, query)
	if err != nil {
		return ports.PositionLookupValue{}, err
	}

	cacheEntry := ports.CachedPosition{
		Query:       query,
		RequestedAt: time.Now().UTC(),
	}
	if position != nil {
		cacheEntry.Latitude = &position.Latitude
		cacheEntry.Longitude = &position.Longitude
	}
	if err := g.cache.Put(ctx, cacheEntry); err != nil {
		return ports.PositionLookupValue{}, err
	}

	return ports.PositionLookupValue{Position: position}, nil
}

func (g *GeocoderAdapter) fetchPosition(ctx context.Context, query string) (*meeting.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if wait := g.rateLimit - time.Since(g.lastRequest); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, errors.NewHTTPRequestError("geocode request cancelled", ctx.Err())
		}
	}

	g.metrics.RecordGeocodeRequest()
	g.logger.Debug("Geocoding query", ports.F("query", query))

	requestURL := fmt.Sprintf("%s?query=%s", g.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to build geocode request", err)
	}

	resp, err := g.client.Do(req)
	g.lastRequest = time.Now()
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to fetch geocode result", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			g.logger.Warn("Failed to close geocoder response body", ports.F("error", closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUnexpectedResponseError(fmt.Sprintf("geocoding service returned status %d", resp.StatusCode))
	}

	var payload struct {
		Data []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewJSONParseError("failed to decode geocode response", err)
	}

	if len(payload.Data) == 0 {
		return nil, nil
	}

	position := meeting.NewPosition(payload.Data[0].Latitude, payload.Data[0].Longitude)
	if err := position.IsValid(); err != nil {
		return nil, nil
	}
	return &position, nil
}

func positionFromCoordinates(latitude, longitude *float64) *meeting.Position {
	if latitude == nil || longitude == nil {
		return nil
	}
	position := meeting.NewPosition(*latitude, *longitude)
	return &position
}
