package external

import (
	"context"
	"sync"

	"meetingindex.app/internal/ports"
)

// MeetingFetcherAdapter fans a fetch out over every registered source and
// funnels their results into a single channel
type MeetingFetcherAdapter struct {
	sources []ports.MeetingSource
	logger  ports.Logger
}

// NewMeetingFetcherAdapter creates a fetcher over the given sources
func NewMeetingFetcherAdapter(sources []ports.MeetingSource, logger ports.Logger) *MeetingFetcherAdapter {
	return &MeetingFetcherAdapter{
		sources: sources,
		logger:  logger,
	}
}

// FetchAll runs every source concurrently and returns once all of them have
// finished writing to output. The caller owns the channel and closes it.
func (f *MeetingFetcherAdapter) FetchAll(ctx context.Context, output chan<- ports.FetchResult) {
	var wg sync.WaitGroup
	for _, source := range f.sources {
		wg.Add(1)
		go func(source ports.MeetingSource) {
			defer wg.Done()
			f.logger.Debug("Starting source fetch", ports.F("source", source.SourceName()))
			source.FetchMeetings(ctx, output)
			f.logger.Debug("Source fetch finished", ports.F("source", source.SourceName()))
		}(source)
	}
	wg.Wait()
}
