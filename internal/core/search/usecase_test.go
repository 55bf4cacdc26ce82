package search

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

type stubIndex struct {
	lastOpts ports.SearchOptions
	results  []meeting.SearchMeeting
	err      error
}

func (s *stubIndex) BeginImport(ctx context.Context) (ports.MeetingImport, error) {
	return nil, errors.NewDatabaseError("not supported", nil)
}

func (s *stubIndex) Search(ctx context.Context, opts ports.SearchOptions) ([]meeting.SearchMeeting, error) {
	s.lastOpts = opts
	return s.results, s.err
}

func (s *stubIndex) Close() error {
	return nil
}

func TestUseCase_Search_PassesOptionsThrough(t *testing.T) {
	index := &stubIndex{results: []meeting.SearchMeeting{{Meeting: meeting.Meeting{Name: "found"}}}}
	uc, err := NewUseCase(UseCaseDependencies{Index: index, Logger: noopLogger{}})
	require.NoError(t, err)

	distance := &ports.DistanceSearch{Latitude: 52.09, Longitude: 5.12, Distance: 25}
	results, err := uc.Search(context.Background(), Request{Distance: distance})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "found", results[0].Meeting.Name)
	assert.Equal(t, distance, index.lastOpts.Distance)
}

func TestUseCase_Search_NoFilter(t *testing.T) {
	index := &stubIndex{}
	uc, err := NewUseCase(UseCaseDependencies{Index: index, Logger: noopLogger{}})
	require.NoError(t, err)

	_, err = uc.Search(context.Background(), Request{})
	require.NoError(t, err)
	assert.Nil(t, index.lastOpts.Distance)
}

func TestRequest_IsValid(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		wantErr bool
	}{
		{name: "NoDistance", request: Request{}},
		{
			name:    "ValidDistance",
			request: Request{Distance: &ports.DistanceSearch{Latitude: 10, Longitude: 20, Distance: 5}},
		},
		{
			name:    "LatitudeOutOfRange",
			request: Request{Distance: &ports.DistanceSearch{Latitude: 91, Longitude: 0, Distance: 5}},
			wantErr: true,
		},
		{
			name:    "LongitudeOutOfRange",
			request: Request{Distance: &ports.DistanceSearch{Latitude: 0, Longitude: -181, Distance: 5}},
			wantErr: true,
		},
		{
			name:    "ZeroDistance",
			request: Request{Distance: &ports.DistanceSearch{Latitude: 0, Longitude: 0, Distance: 0}},
			wantErr: true,
		},
		{
			name:    "NegativeDistance",
			request: Request{Distance: &ports.DistanceSearch{Latitude: 0, Longitude: 0, Distance: -1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.IsValid()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUseCase_Search_IndexError(t *testing.T) {
	index := &stubIndex{err: errors.NewDatabaseError("broken", nil)}
	uc, err := NewUseCase(UseCaseDependencies{Index: index, Logger: noopLogger{}})
	require.NoError(t, err)

	_, err = uc.Search(context.Background(), Request{})
	assert.Error(t, err)
}
