package meeting

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekDay_IndexRoundTrip(t *testing.T) {
	for i := 0; i <= 6; i++ {
		day, err := WeekDayFromIndex(i)
		require.NoError(t, err)
		assert.Equal(t, i, day.Index())
	}
}

func TestWeekDay_FromIndex_OutOfRange(t *testing.T) {
	for _, i := range []int{-1, 7, 100} {
		_, err := WeekDayFromIndex(i)
		assert.Error(t, err)
	}
}

func TestWeekDay_NameRoundTrip(t *testing.T) {
	for i := 0; i <= 6; i++ {
		day, err := WeekDayFromIndex(i)
		require.NoError(t, err)

		parsed, err := ParseWeekDay(day.String())
		require.NoError(t, err)
		assert.Equal(t, day, parsed)
	}

	_, err := ParseWeekDay("Funday")
	assert.Error(t, err)
}

func TestOrganization_StringRoundTrip(t *testing.T) {
	orgs := []Organization{
		AnonymousAlcoholics,
		DebtorsAnonymous,
		CrystalMethAnonymous,
		CodependentsAnonymous,
		NarcoticsAnonymous,
	}

	for _, org := range orgs {
		parsed, err := ParseOrganization(org.String())
		require.NoError(t, err)
		assert.Equal(t, org, parsed)
	}
}

func TestOrganization_ParseUnknown(t *testing.T) {
	_, err := ParseOrganization("OvereatersAnonymous")
	assert.Error(t, err)
}

func TestPosition_IsValid(t *testing.T) {
	assert.NoError(t, NewPosition(52.09, 5.12).IsValid())
	assert.NoError(t, NewPosition(-90, 180).IsValid())
	assert.Error(t, NewPosition(91, 0).IsValid())
	assert.Error(t, NewPosition(0, -181).IsValid())
}

func TestOnlineOptions_IsValid(t *testing.T) {
	url := "https://example.com/zoom"

	assert.NoError(t, OnlineOptions{IsOnline: true, URL: &url}.IsValid())
	assert.NoError(t, OnlineOptions{IsOnline: false}.IsValid())
	assert.Error(t, OnlineOptions{IsOnline: false, URL: &url}.IsValid())
}

func TestMeeting_JSONShape(t *testing.T) {
	notes := "bring your own coffee"
	duration := int64(5400)
	position := NewPosition(52.09, 5.12)

	m := Meeting{
		Name:      "Tuesday Night Group",
		Org:       NarcoticsAnonymous,
		Notes:     &notes,
		Source:    "https://www.na-holland.nl/#/meetings/17",
		UpdatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Location:  Location{Position: &position},
		OnlineOptions: OnlineOptions{
			IsOnline: false,
		},
		Time:     RecurringOn(Tuesday, 19, 30),
		Duration: &duration,
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "NarcoticsAnonymous", decoded["org"])
	assert.Equal(t, "2024-03-01T12:00:00Z", decoded["updated_at"])
	assert.Equal(t, float64(5400), decoded["duration"])

	timeValue, ok := decoded["time"].(map[string]interface{})
	require.True(t, ok)
	recurring, ok := timeValue["recurring"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Tuesday", recurring["day"])
	assert.Equal(t, float64(19), recurring["hour"])
	assert.Equal(t, float64(30), recurring["minute"])

	location, ok := decoded["location"].(map[string]interface{})
	require.True(t, ok)
	pos, ok := location["position"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 52.09, pos["latitude"])
	assert.Equal(t, 5.12, pos["longitude"])
}

func TestFetchMeeting_NeedsGeocoding(t *testing.T) {
	query := "Hoofdstraat 12 Utrecht"
	position := NewPosition(1, 2)

	withQuery := FetchMeeting{PositionQuery: &query}
	assert.True(t, withQuery.NeedsGeocoding())

	withPosition := FetchMeeting{
		PositionQuery: &query,
		Meeting:       Meeting{Location: Location{Position: &position}},
	}
	assert.False(t, withPosition.NeedsGeocoding())

	assert.False(t, (&FetchMeeting{}).NeedsGeocoding())
}
