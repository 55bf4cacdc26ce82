package external

import (
	"context"
	"sync"
	"time"

	"meetingindex.app/internal/ports"
)

func testNow() time.Time {
	return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
}

// noopLogger discards all log output in tests
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}

// recordingMetrics counts recorder calls for assertions
type recordingMetrics struct {
	mu             sync.Mutex
	batches        int
	fetchErrors    int
	droppedRecords int
	cacheHits      int
	cacheMisses    int
	requests       int
}

func (m *recordingMetrics) RecordBatch(source string, meetings int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
}

func (m *recordingMetrics) RecordFetchError(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErrors++
}

func (m *recordingMetrics) RecordDroppedRecord(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.droppedRecords++
}

func (m *recordingMetrics) RecordGeocodeCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *recordingMetrics) RecordGeocodeCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
}

func (m *recordingMetrics) RecordGeocodeRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
}

func (m *recordingMetrics) dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.droppedRecords
}

// collectResults drains a source into a slice
func collectResults(source ports.MeetingSource) []ports.FetchResult {
	output := make(chan ports.FetchResult, 64)
	done := make(chan struct{})

	var results []ports.FetchResult
	go func() {
		defer close(done)
		for result := range output {
			results = append(results, result)
		}
	}()

	source.FetchMeetings(context.Background(), output)
	close(output)
	<-done

	return results
}

// memoryPositionCache is an in-memory PositionCache for geocoder tests
type memoryPositionCache struct {
	mu      sync.Mutex
	entries map[string]ports.CachedPosition
}

func newMemoryPositionCache() *memoryPositionCache {
	return &memoryPositionCache{entries: make(map[string]ports.CachedPosition)}
}

func (c *memoryPositionCache) Get(ctx context.Context, query string) (*ports.CachedPosition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[query]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (c *memoryPositionCache) Put(ctx context.Context, entry ports.CachedPosition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Query] = entry
	return nil
}

func (c *memoryPositionCache) Close() error {
	return nil
}
