package ports

// ApplicationPorts aggregates all ports for dependency injection
type ApplicationPorts struct {
	// Ingestion
	Fetcher  MeetingFetcher
	Geocoder PositionLookup

	// Storage
	Index MeetingIndex

	// Infrastructure
	Logger  Logger
	Metrics MetricsRecorder
}
