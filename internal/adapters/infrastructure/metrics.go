package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsAdapter implements the MetricsRecorder port on Prometheus
// counters. Registration happens once per process via promauto.
type PrometheusMetricsAdapter struct {
	batches        *prometheus.CounterVec
	batchMeetings  *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	droppedRecords *prometheus.CounterVec

	geocodeCacheHits   prometheus.Counter
	geocodeCacheMisses prometheus.Counter
	geocodeRequests    prometheus.Counter
}

var globalMetrics *PrometheusMetricsAdapter

// NewPrometheusMetricsAdapter returns the process-wide metrics adapter
func NewPrometheusMetricsAdapter() *PrometheusMetricsAdapter {
	if globalMetrics == nil {
		globalMetrics = &PrometheusMetricsAdapter{
			batches: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "meetingindex_fetch_batches_total",
					Help: "The total number of successful fetch batches",
				},
				[]string{"source"},
			),
			batchMeetings: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "meetingindex_fetched_meetings_total",
					Help: "The total number of meetings delivered by fetch batches",
				},
				[]string{"source"},
			),
			fetchErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "meetingindex_fetch_errors_total",
					Help: "The total number of failed fetch batches",
				},
				[]string{"source"},
			),
			droppedRecords: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "meetingindex_dropped_records_total",
					Help: "The total number of upstream records dropped during normalization",
				},
				[]string{"source"},
			),
			geocodeCacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "meetingindex_geocode_cache_hits_total",
				Help: "The total number of geocode cache hits",
			}),
			geocodeCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "meetingindex_geocode_cache_misses_total",
				Help: "The total number of geocode cache misses",
			}),
			geocodeRequests: promauto.NewCounter(prometheus.CounterOpts{
				Name: "meetingindex_geocode_requests_total",
				Help: "The total number of requests sent to the geocoding service",
			}),
		}
	}
	return globalMetrics
}

// RecordBatch records one successful batch and its meeting count
func (m *PrometheusMetricsAdapter) RecordBatch(source string, meetings int) {
	m.batches.WithLabelValues(source).Inc()
	m.batchMeetings.WithLabelValues(source).Add(float64(meetings))
}

// RecordFetchError records one failed batch
func (m *PrometheusMetricsAdapter) RecordFetchError(source string) {
	m.fetchErrors.WithLabelValues(source).Inc()
}

// RecordDroppedRecord records one upstream record dropped during normalization
func (m *PrometheusMetricsAdapter) RecordDroppedRecord(source string) {
	m.droppedRecords.WithLabelValues(source).Inc()
}

// RecordGeocodeCacheHit records one geocode cache hit
func (m *PrometheusMetricsAdapter) RecordGeocodeCacheHit() {
	m.geocodeCacheHits.Inc()
}

// RecordGeocodeCacheMiss records one geocode cache miss
func (m *PrometheusMetricsAdapter) RecordGeocodeCacheMiss() {
	m.geocodeCacheMisses.Inc()
}

// RecordGeocodeRequest records one request to the geocoding service
func (m *PrometheusMetricsAdapter) RecordGeocodeRequest() {
	m.geocodeRequests.Inc()
}
