package ports

import (
	"context"

	"meetingindex.app/internal/core/meeting"
)

// DistanceSearch restricts a search to meetings within Distance kilometers
// of the center point
type DistanceSearch struct {
	Latitude  float64
	Longitude float64
	Distance  float64
}

// SearchOptions selects which meetings a search returns
type SearchOptions struct {
	Distance *DistanceSearch
}

// MeetingImport is an open staging transaction on the index. The caller runs
// RemoveOld before Add, checks Count before Commit, and must Rollback instead
// of committing when the import is empty so the previous snapshot survives.
type MeetingImport interface {
	RemoveOld(ctx context.Context) error
	Add(ctx context.Context, meetings []meeting.Meeting) error
	Count() int
	Commit(ctx context.Context) error
	Rollback() error
}

// MeetingIndex is the searchable meeting store. At most one import may be
// open at a time; reads observe the last committed snapshot.
type MeetingIndex interface {
	BeginImport(ctx context.Context) (MeetingImport, error)
	Search(ctx context.Context, opts SearchOptions) ([]meeting.SearchMeeting, error)
	Close() error
}
