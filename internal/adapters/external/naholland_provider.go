package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

const naHollandSourceName = "na_holland"

// streetPattern matches a street name followed by a house number inside the
// free-form address field, e.g. "Hoofdstraat 12,"
var streetPattern = regexp.MustCompile(`[a-zA-Z]+ \d+[a-zA-Z]*,`)

// NAHollandSourceAdapter implements the MeetingSource port for the Dutch NA
// meetings API. The upstream supplies no coordinates, so each meeting carries
// a position query synthesized from its address.
type NAHollandSourceAdapter struct {
	apiURL  string
	client  *http.Client
	logger  ports.Logger
	metrics ports.MetricsRecorder
}

// NAHollandSourceParams holds parameters for creating the NA Holland adapter
type NAHollandSourceParams struct {
	APIURL  string
	Logger  ports.Logger
	Metrics ports.MetricsRecorder
}

// NewNAHollandSourceAdapter creates a new NA Holland source adapter
func NewNAHollandSourceAdapter(params NAHollandSourceParams) *NAHollandSourceAdapter {
	return &NAHollandSourceAdapter{
		apiURL:  params.APIURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  params.Logger,
		metrics: params.Metrics,
	}
}

// SourceName returns the name of this meeting source
func (a *NAHollandSourceAdapter) SourceName() string {
	return naHollandSourceName
}

// FetchMeetings fetches the whole listing and sends a single result
func (a *NAHollandSourceAdapter) FetchMeetings(ctx context.Context, output chan<- ports.FetchResult) {
	meetings, err := a.fetchAll(ctx)
	if err != nil {
		output <- ports.FetchResult{Source: naHollandSourceName, Err: err}
		return
	}
	output <- ports.FetchResult{Source: naHollandSourceName, Meetings: meetings}
}

func (a *NAHollandSourceAdapter) fetchAll(ctx context.Context) ([]meeting.FetchMeeting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL, nil)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to build NA Holland request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to fetch NA Holland meetings", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			a.logger.Warn("Failed to close NA Holland response body", ports.F("error", closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUnexpectedResponseError(fmt.Sprintf("NA Holland API returned status %d", resp.StatusCode))
	}

	var data struct {
		Meetings []naHollandRecord `json:"meetings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, errors.NewJSONParseError("failed to decode NA Holland response", err)
	}

	now := time.Now().UTC()
	meetings := make([]meeting.FetchMeeting, 0, len(data.Meetings))
	for _, record := range data.Meetings {
		fetched, err := record.toFetchMeeting(now)
		if err != nil {
			a.metrics.RecordDroppedRecord(naHollandSourceName)
			a.logger.Debug("Dropped NA Holland record",
				ports.F("id", record.ID),
				ports.F("error", err))
			continue
		}
		meetings = append(meetings, fetched)
	}

	return meetings, nil
}

type naHollandRecord struct {
	ID           int64  `json:"id"`
	ProvinceName string `json:"province_name"`
	CityName     string `json:"city_name"`
	Weekday      int    `json:"weekday"`
	Start        string `json:"start"`
	Finish       string `json:"finish"`
	Address      string `json:"address"`
	Contact      string `json:"contact"`
	Details      string `json:"details"`
}

// naHollandOnlineProvince is the synthetic province the upstream files online
// meetings under
const naHollandOnlineProvince = "ONLINE"

func (r naHollandRecord) toFetchMeeting(now time.Time) (meeting.FetchMeeting, error) {
	start, err := parseClockTime(r.Start)
	if err != nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has an unparseable start time")
	}
	finish, err := parseClockTime(r.Finish)
	if err != nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has an unparseable finish time")
	}

	// Upstream weekdays are 1-based starting at Monday.
	day, err := meeting.WeekDayFromIndex(r.Weekday - 1)
	if err != nil {
		return meeting.FetchMeeting{}, err
	}

	var positionQuery *string
	if street := streetPattern.FindString(r.Address); street != "" {
		query := fmt.Sprintf("%s %s", street[:len(street)-1], r.CityName)
		positionQuery = &query
	}

	var duration *int64
	if seconds := int64(finish-start) * 60; seconds >= 0 {
		duration = &seconds
	}

	province := r.ProvinceName

	return meeting.FetchMeeting{
		PositionQuery: positionQuery,
		Meeting: meeting.Meeting{
			Name:      fmt.Sprintf("NA Holland | %s %s", r.CityName, r.Address),
			Org:       meeting.NarcoticsAnonymous,
			Notes:     stringPtr(r.Details),
			Source:    fmt.Sprintf("https://www.na-holland.nl/#/meetings/%d", r.ID),
			UpdatedAt: now,
			Contact:   meeting.Contact{},
			Location: meeting.Location{
				Country: stringPtr("Nederland"),
				Region:  &province,
				Address: stringPtr(r.Address),
			},
			OnlineOptions: meeting.OnlineOptions{
				IsOnline: r.ProvinceName == naHollandOnlineProvince,
			},
			Time:     meeting.RecurringOn(day, start/60, start%60),
			Duration: duration,
		},
	}, nil
}
