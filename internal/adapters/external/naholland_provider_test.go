package external

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetingindex.app/internal/core/meeting"
)

const naHollandFixture = `{"meetings": [
	{
		"id": 42,
		"province_name": "Utrecht",
		"city_name": "Utrecht",
		"weekday": 2,
		"start": "19:30",
		"finish": "21:00",
		"address": "Hoofdstraat 12, 3511 AB",
		"contact": "06 12345678",
		"details": "Ring the bell twice"
	},
	{
		"id": 43,
		"province_name": "ONLINE",
		"city_name": "Zoom",
		"weekday": 5,
		"start": "20:00",
		"finish": "21:00",
		"address": "geen adres",
		"contact": "",
		"details": ""
	},
	{
		"id": 44,
		"province_name": "Limburg",
		"city_name": "Maastricht",
		"weekday": 1,
		"start": "not-a-time",
		"finish": "21:00",
		"address": "Kerkplein 3,",
		"contact": "",
		"details": ""
	}
]}`

func TestNAHollandSourceAdapter_FetchMeetings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(naHollandFixture))
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	adapter := NewNAHollandSourceAdapter(NAHollandSourceParams{
		APIURL:  server.URL,
		Logger:  noopLogger{},
		Metrics: metrics,
	})

	results := collectResults(adapter)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "na_holland", results[0].Source)

	meetings := results[0].Meetings
	require.Len(t, meetings, 2)
	assert.Equal(t, 1, metrics.dropped())

	first := meetings[0]
	assert.Equal(t, "NA Holland | Utrecht Hoofdstraat 12, 3511 AB", first.Meeting.Name)
	assert.Equal(t, meeting.NarcoticsAnonymous, first.Meeting.Org)
	assert.Equal(t, "https://www.na-holland.nl/#/meetings/42", first.Meeting.Source)
	require.NotNil(t, first.PositionQuery)
	assert.Equal(t, "Hoofdstraat 12 Utrecht", *first.PositionQuery)
	assert.True(t, first.NeedsGeocoding())
	require.NotNil(t, first.Meeting.Time.Recurring)
	assert.Equal(t, meeting.Tuesday, first.Meeting.Time.Recurring.Day)
	assert.Equal(t, 19, first.Meeting.Time.Recurring.Hour)
	assert.Equal(t, 30, first.Meeting.Time.Recurring.Minute)
	require.NotNil(t, first.Meeting.Duration)
	assert.Equal(t, int64(5400), *first.Meeting.Duration)
	require.NotNil(t, first.Meeting.Location.Country)
	assert.Equal(t, "Nederland", *first.Meeting.Location.Country)
	require.NotNil(t, first.Meeting.Location.Region)
	assert.Equal(t, "Utrecht", *first.Meeting.Location.Region)
	assert.Nil(t, first.Meeting.Location.Position)
	assert.False(t, first.Meeting.OnlineOptions.IsOnline)

	second := meetings[1]
	assert.True(t, second.Meeting.OnlineOptions.IsOnline)
	assert.Nil(t, second.PositionQuery)
	assert.False(t, second.NeedsGeocoding())
	require.NotNil(t, second.Meeting.Time.Recurring)
	assert.Equal(t, meeting.Friday, second.Meeting.Time.Recurring.Day)
}

func TestNAHollandSourceAdapter_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewNAHollandSourceAdapter(NAHollandSourceParams{
		APIURL:  server.URL,
		Logger:  noopLogger{},
		Metrics: &recordingMetrics{},
	})

	results := collectResults(adapter)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestStreetPattern(t *testing.T) {
	tests := []struct {
		address  string
		expected string
	}{
		{"Hoofdstraat 12, 3511 AB Utrecht", "Hoofdstraat 12,"},
		{"Kerkplein 3a, achterzaal", "Kerkplein 3a,"},
		{"geen adres", ""},
		{"Dorpsstraat zonder nummer", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, streetPattern.FindString(tt.address), tt.address)
	}
}

func TestNAHollandRecord_NegativeDurationOmitted(t *testing.T) {
	record := naHollandRecord{
		ID:           7,
		ProvinceName: "Drenthe",
		CityName:     "Assen",
		Weekday:      1,
		Start:        "22:00",
		Finish:       "21:00",
		Address:      "Stationsweg 1,",
	}

	fetched, err := record.toFetchMeeting(testNow())
	require.NoError(t, err)
	assert.Nil(t, fetched.Meeting.Duration)
}
