package ports

// Logger defines the contract for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a log field
type Field struct {
	Key   string
	Value interface{}
}

// F creates a log field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// MetricsRecorder defines the contract for pipeline metrics collection
type MetricsRecorder interface {
	RecordBatch(source string, meetings int)
	RecordFetchError(source string)
	RecordDroppedRecord(source string)

	RecordGeocodeCacheHit()
	RecordGeocodeCacheMiss()
	RecordGeocodeRequest()
}
