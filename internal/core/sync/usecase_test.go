package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}

type noopMetrics struct{}

func (noopMetrics) RecordBatch(source string, meetings int) {}
func (noopMetrics) RecordFetchError(source string)          {}
func (noopMetrics) RecordDroppedRecord(source string)       {}
func (noopMetrics) RecordGeocodeCacheHit()                  {}
func (noopMetrics) RecordGeocodeCacheMiss()                 {}
func (noopMetrics) RecordGeocodeRequest()                   {}

type stubFetcher struct {
	results []ports.FetchResult
}

func (f *stubFetcher) FetchAll(ctx context.Context, output chan<- ports.FetchResult) {
	for _, result := range f.results {
		output <- result
	}
}

type stubGeocoder struct {
	positions map[string]meeting.Position
	failures  map[string]error
	calls     []string
}

func (g *stubGeocoder) Search(ctx context.Context, query string) (ports.PositionLookupValue, error) {
	g.calls = append(g.calls, query)
	if err, ok := g.failures[query]; ok {
		return ports.PositionLookupValue{}, err
	}
	if position, ok := g.positions[query]; ok {
		return ports.PositionLookupValue{Position: &position}, nil
	}
	return ports.PositionLookupValue{}, nil
}

type fakeImport struct {
	removed    bool
	added      []meeting.Meeting
	committed  bool
	rolledBack bool
}

func (i *fakeImport) RemoveOld(ctx context.Context) error {
	i.removed = true
	return nil
}

func (i *fakeImport) Add(ctx context.Context, meetings []meeting.Meeting) error {
	i.added = append(i.added, meetings...)
	return nil
}

func (i *fakeImport) Count() int {
	return len(i.added)
}

func (i *fakeImport) Commit(ctx context.Context) error {
	i.committed = true
	return nil
}

func (i *fakeImport) Rollback() error {
	if !i.committed {
		i.rolledBack = true
	}
	return nil
}

type fakeIndex struct {
	imp *fakeImport
}

func (idx *fakeIndex) BeginImport(ctx context.Context) (ports.MeetingImport, error) {
	return idx.imp, nil
}

func (idx *fakeIndex) Search(ctx context.Context, opts ports.SearchOptions) ([]meeting.SearchMeeting, error) {
	return nil, nil
}

func (idx *fakeIndex) Close() error {
	return nil
}

func namedMeeting(name string) meeting.FetchMeeting {
	return meeting.FetchMeeting{
		Meeting: meeting.Meeting{
			Name:   name,
			Org:    meeting.NarcoticsAnonymous,
			Source: "https://example.org/" + name,
			Time:   meeting.RecurringOn(meeting.Monday, 19, 0),
		},
	}
}

func geocodableMeeting(name, query string) meeting.FetchMeeting {
	fetched := namedMeeting(name)
	fetched.PositionQuery = &query
	return fetched
}

func newUseCase(t *testing.T, fetcher ports.MeetingFetcher, geocoder ports.PositionLookup, index ports.MeetingIndex) *UseCase {
	t.Helper()

	uc, err := NewUseCase(UseCaseDependencies{
		Fetcher:       fetcher,
		Geocoder:      geocoder,
		Index:         index,
		Logger:        noopLogger{},
		Metrics:       noopMetrics{},
		QueueCapacity: 8,
	})
	require.NoError(t, err)
	return uc
}

func TestUseCase_Run_ImportsAllBatches(t *testing.T) {
	fetcher := &stubFetcher{results: []ports.FetchResult{
		{Source: "alpha", Meetings: []meeting.FetchMeeting{namedMeeting("a"), namedMeeting("b")}},
		{Source: "beta", Meetings: []meeting.FetchMeeting{namedMeeting("c")}},
	}}
	imp := &fakeImport{}
	uc := newUseCase(t, fetcher, &stubGeocoder{}, &fakeIndex{imp: imp})

	summary, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, imp.removed)
	assert.True(t, imp.committed)
	assert.False(t, imp.rolledBack)
	assert.Equal(t, 3, summary.Imported)
	assert.Equal(t, 0, summary.FailedBatches)
	assert.True(t, summary.Committed)
	assert.NotEmpty(t, summary.RunID)
}

func TestUseCase_Run_EmptyImportIsRolledBack(t *testing.T) {
	fetcher := &stubFetcher{results: []ports.FetchResult{
		{Source: "alpha", Err: errors.NewHTTPRequestError("upstream down", nil)},
	}}
	imp := &fakeImport{}
	uc := newUseCase(t, fetcher, &stubGeocoder{}, &fakeIndex{imp: imp})

	summary, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, imp.committed)
	assert.True(t, imp.rolledBack)
	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 1, summary.FailedBatches)
	assert.False(t, summary.Committed)
}

func TestUseCase_Run_FailedBatchDoesNotBlockOthers(t *testing.T) {
	fetcher := &stubFetcher{results: []ports.FetchResult{
		{Source: "alpha", Err: errors.NewHTTPRequestError("upstream down", nil)},
		{Source: "beta", Meetings: []meeting.FetchMeeting{namedMeeting("kept")}},
	}}
	imp := &fakeImport{}
	uc := newUseCase(t, fetcher, &stubGeocoder{}, &fakeIndex{imp: imp})

	summary, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, imp.committed)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.FailedBatches)
	require.Len(t, imp.added, 1)
	assert.Equal(t, "kept", imp.added[0].Name)
}

func TestUseCase_Run_GeocodesMeetingsWithoutPositions(t *testing.T) {
	fetcher := &stubFetcher{results: []ports.FetchResult{
		{Source: "na_holland", Meetings: []meeting.FetchMeeting{
			geocodableMeeting("resolved", "Hoofdstraat 12 Utrecht"),
			geocodableMeeting("unresolved", "nergens"),
			namedMeeting("positioned"),
		}},
	}}
	geocoder := &stubGeocoder{positions: map[string]meeting.Position{
		"Hoofdstraat 12 Utrecht": meeting.NewPosition(52.09, 5.12),
	}}
	imp := &fakeImport{}
	uc := newUseCase(t, fetcher, geocoder, &fakeIndex{imp: imp})

	summary, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Hoofdstraat 12 Utrecht", "nergens"}, geocoder.calls)
	assert.Equal(t, 1, summary.Geocoded)
	require.Len(t, imp.added, 3)

	byName := map[string]meeting.Meeting{}
	for _, m := range imp.added {
		byName[m.Name] = m
	}
	require.NotNil(t, byName["resolved"].Location.Position)
	assert.InDelta(t, 52.09, byName["resolved"].Location.Position.Latitude, 1e-9)
	assert.Nil(t, byName["unresolved"].Location.Position)
}

func TestUseCase_Run_GeocoderFailureKeepsMeeting(t *testing.T) {
	fetcher := &stubFetcher{results: []ports.FetchResult{
		{Source: "na_holland", Meetings: []meeting.FetchMeeting{
			geocodableMeeting("flaky", "somewhere"),
		}},
	}}
	geocoder := &stubGeocoder{failures: map[string]error{
		"somewhere": errors.NewHTTPRequestError("geocoder down", nil),
	}}
	imp := &fakeImport{}
	uc := newUseCase(t, fetcher, geocoder, &fakeIndex{imp: imp})

	summary, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 0, summary.Geocoded)
	require.Len(t, imp.added, 1)
	assert.Nil(t, imp.added[0].Location.Position)
}

func TestNewUseCase_MissingDependencies(t *testing.T) {
	_, err := NewUseCase(UseCaseDependencies{})
	assert.Error(t, err)

	_, err = NewUseCase(UseCaseDependencies{
		Fetcher:  &stubFetcher{},
		Geocoder: &stubGeocoder{},
		Index:    &fakeIndex{imp: &fakeImport{}},
		Logger:   noopLogger{},
		Metrics:  noopMetrics{},
	})
	assert.Error(t, err)
}
