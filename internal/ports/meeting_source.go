package ports

import (
	"context"

	"meetingindex.app/internal/core/meeting"
)

// FetchResult is one batch from a meeting source: either a slice of fetched
// meetings or the error that prevented the batch from being produced.
type FetchResult struct {
	Source   string
	Meetings []meeting.FetchMeeting
	Err      error
}

// MeetingSource is one upstream listing. FetchMeetings must send at least one
// result before returning; partial success is reported as multiple sends.
type MeetingSource interface {
	SourceName() string
	FetchMeetings(ctx context.Context, output chan<- FetchResult)
}

// MeetingFetcher drives all configured sources concurrently. FetchAll returns
// only after every source has completed; it neither aggregates nor reorders
// batches.
type MeetingFetcher interface {
	FetchAll(ctx context.Context, output chan<- FetchResult)
}
