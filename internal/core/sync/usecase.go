// Package sync implements the import pipeline: fetch every source, geocode
// what needs it, and atomically swap the meeting index snapshot.
package sync

import (
	"context"

	"github.com/google/uuid"

	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

// Summary reports what one sync run did
type Summary struct {
	RunID         string
	Imported      int
	FailedBatches int
	Geocoded      int
	Committed     bool
}

type UseCase struct {
	fetcher       ports.MeetingFetcher
	geocoder      ports.PositionLookup
	index         ports.MeetingIndex
	logger        ports.Logger
	metrics       ports.MetricsRecorder
	queueCapacity int
}

type UseCaseDependencies struct {
	Fetcher       ports.MeetingFetcher
	Geocoder      ports.PositionLookup
	Index         ports.MeetingIndex
	Logger        ports.Logger
	Metrics       ports.MetricsRecorder
	QueueCapacity int
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.Fetcher == nil {
		return nil, errors.NewValidationError("fetcher is required")
	}
	if deps.Geocoder == nil {
		return nil, errors.NewValidationError("geocoder is required")
	}
	if deps.Index == nil {
		return nil, errors.NewValidationError("index is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}
	if deps.Metrics == nil {
		return nil, errors.NewValidationError("metrics is required")
	}
	if deps.QueueCapacity < 1 {
		return nil, errors.NewValidationError("queue capacity must be at least 1")
	}

	return &UseCase{
		fetcher:       deps.Fetcher,
		geocoder:      deps.Geocoder,
		index:         deps.Index,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		queueCapacity: deps.QueueCapacity,
	}, nil
}

// Run executes one full sync. An import that produces zero meetings is rolled
// back so the previous snapshot keeps serving queries.
func (uc *UseCase) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New().String()
	logger := uc.runLogger(runID)
	logger.Info("Starting sync run")

	imp, err := uc.index.BeginImport(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rollbackErr := imp.Rollback(); rollbackErr != nil {
			logger.Error("Failed to roll back import", ports.F("error", rollbackErr))
		}
	}()

	if err := imp.RemoveOld(ctx); err != nil {
		return nil, err
	}

	results := make(chan ports.FetchResult, uc.queueCapacity)
	go func() {
		defer close(results)
		uc.fetcher.FetchAll(ctx, results)
	}()

	summary := &Summary{RunID: runID}
	for result := range results {
		if result.Err != nil {
			uc.metrics.RecordFetchError(result.Source)
			summary.FailedBatches++
			logger.Error("Source batch failed",
				ports.F("source", result.Source),
				ports.F("error", result.Err))
			continue
		}

		uc.metrics.RecordBatch(result.Source, len(result.Meetings))
		logger.Info("Importing batch",
			ports.F("source", result.Source),
			ports.F("meetings", len(result.Meetings)))

		batch, geocoded := uc.resolvePositions(ctx, logger, result.Meetings)
		summary.Geocoded += geocoded

		if err := imp.Add(ctx, batch); err != nil {
			return nil, err
		}
	}

	summary.Imported = imp.Count()
	if summary.Imported == 0 {
		logger.Error("Refusing to commit an empty import, keeping the previous snapshot",
			ports.F("failed_batches", summary.FailedBatches))
		return summary, nil
	}

	if err := imp.Commit(ctx); err != nil {
		return nil, err
	}
	summary.Committed = true

	logger.Info("Sync run finished",
		ports.F("imported", summary.Imported),
		ports.F("geocoded", summary.Geocoded),
		ports.F("failed_batches", summary.FailedBatches))
	return summary, nil
}

// resolvePositions geocodes the batch members that carry a position query but
// no position. A failed or unresolvable lookup keeps the meeting, without
// coordinates.
func (uc *UseCase) resolvePositions(ctx context.Context, logger ports.Logger, fetched []meeting.FetchMeeting) ([]meeting.Meeting, int) {
	meetings := make([]meeting.Meeting, 0, len(fetched))
	geocoded := 0

	for _, f := range fetched {
		if f.NeedsGeocoding() {
			value, err := uc.geocoder.Search(ctx, *f.PositionQuery)
			if err != nil {
				logger.Warn("Geocoding failed",
					ports.F("query", *f.PositionQuery),
					ports.F("error", err))
			} else if value.Position != nil {
				f.Meeting.Location.Position = value.Position
				geocoded++
			}
		}
		meetings = append(meetings, f.Meeting)
	}

	return meetings, geocoded
}

type runLoggerAdapter struct {
	inner ports.Logger
	runID string
}

func (uc *UseCase) runLogger(runID string) ports.Logger {
	return &runLoggerAdapter{inner: uc.logger, runID: runID}
}

func (l *runLoggerAdapter) with(fields []ports.Field) []ports.Field {
	return append([]ports.Field{ports.F("run_id", l.runID)}, fields...)
}

func (l *runLoggerAdapter) Debug(msg string, fields ...ports.Field) { l.inner.Debug(msg, l.with(fields)...) }
func (l *runLoggerAdapter) Info(msg string, fields ...ports.Field)  { l.inner.Info(msg, l.with(fields)...) }
func (l *runLoggerAdapter) Warn(msg string, fields ...ports.Field)  { l.inner.Warn(msg, l.with(fields)...) }
func (l *runLoggerAdapter) Error(msg string, fields ...ports.Field) { l.inner.Error(msg, l.with(fields)...) }
