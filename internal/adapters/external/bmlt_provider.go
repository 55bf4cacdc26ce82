package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

const bmltSourceName = "bmlt"

// bmltSearchQuery selects the fields the mapper consumes. The callback
// parameter makes the server respond with JSONP, which is stripped textually.
const bmltSearchQuery = "switcher=GetSearchResults&get_used_formats&lang_enum=en&data_field_key=location_postal_code_1,duration_time,start_time,time_zone,weekday_tinyint,service_body_bigint,location_province,location_municipality,location_street,location_info,location_neighborhood,formats,comments,location_sub_province,worldid_mixed,root_server_uri,id_bigint,venue_type,meeting_name,location_text,virtual_meeting_link,phone_meeting_number,latitude,longitude,contact_name_1,contact_phone_1,contact_email_1,contact_name_2,contact_phone_2,contact_email_2&callback=callback"

const (
	bmltCallbackPrefix = "callback("
	bmltCallbackSuffix = ");"
)

// BMLTSourceAdapter implements the MeetingSource port for the BMLT
// federation. The root server list is discovered first, then every server is
// queried concurrently and surfaced as its own result.
type BMLTSourceAdapter struct {
	rootServersURL string
	client         *http.Client
	logger         ports.Logger
	metrics        ports.MetricsRecorder
}

// BMLTSourceParams holds parameters for creating the BMLT adapter
type BMLTSourceParams struct {
	RootServersURL string
	Logger         ports.Logger
	Metrics        ports.MetricsRecorder
}

// NewBMLTSourceAdapter creates a new BMLT source adapter
func NewBMLTSourceAdapter(params BMLTSourceParams) *BMLTSourceAdapter {
	return &BMLTSourceAdapter{
		rootServersURL: params.RootServersURL,
		client:         &http.Client{Timeout: 60 * time.Second},
		logger:         params.Logger,
		metrics:        params.Metrics,
	}
}

// SourceName returns the name of this meeting source
func (a *BMLTSourceAdapter) SourceName() string {
	return bmltSourceName
}

// FetchMeetings discovers the root servers and fetches them all concurrently.
// Root server discovery failure is reported as a single error result.
func (a *BMLTSourceAdapter) FetchMeetings(ctx context.Context, output chan<- ports.FetchResult) {
	servers, err := a.fetchRootServers(ctx)
	if err != nil {
		output <- ports.FetchResult{Source: bmltSourceName, Err: err}
		return
	}

	a.logger.Debug("Discovered BMLT root servers", ports.F("servers", len(servers)))

	var wg sync.WaitGroup
	for _, server := range servers {
		wg.Add(1)
		go func(server bmltServer) {
			defer wg.Done()
			output <- a.fetchServer(ctx, server)
		}(server)
	}
	wg.Wait()
}

type bmltServer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (a *BMLTSourceAdapter) fetchRootServers(ctx context.Context) ([]bmltServer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.rootServersURL, nil)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to build BMLT root server request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to fetch BMLT root servers", err)
	}
	defer a.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUnexpectedResponseError(fmt.Sprintf("BMLT root server list returned status %d", resp.StatusCode))
	}

	var servers []bmltServer
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		return nil, errors.NewJSONParseError("failed to decode BMLT root server list", err)
	}

	return servers, nil
}

func (a *BMLTSourceAdapter) fetchServer(ctx context.Context, server bmltServer) ports.FetchResult {
	records, err := a.fetchServerRecords(ctx, server)
	if err != nil {
		return ports.FetchResult{Source: bmltSourceName, Err: err}
	}

	now := time.Now().UTC()
	meetings := make([]meeting.FetchMeeting, 0, len(records))
	for _, record := range records {
		fetched, err := record.toFetchMeeting(now)
		if err != nil {
			a.metrics.RecordDroppedRecord(bmltSourceName)
			a.logger.Debug("Dropped BMLT record",
				ports.F("server", server.URL),
				ports.F("name", record.MeetingName),
				ports.F("error", err))
			continue
		}
		meetings = append(meetings, fetched)
	}

	return ports.FetchResult{Source: bmltSourceName, Meetings: meetings}
}

func (a *BMLTSourceAdapter) fetchServerRecords(ctx context.Context, server bmltServer) ([]bmltRecord, error) {
	searchURL := fmt.Sprintf("%sclient_interface/jsonp/?%s", server.URL, bmltSearchQuery)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to build BMLT search request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to fetch BMLT meetings", err)
	}
	defer a.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUnexpectedResponseError(fmt.Sprintf("BMLT server %s returned status %d", server.URL, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to read BMLT response", err)
	}

	text := strings.TrimSpace(string(body))
	if !strings.HasPrefix(text, bmltCallbackPrefix) || !strings.HasSuffix(text, bmltCallbackSuffix) {
		return nil, errors.NewUnexpectedResponseError(fmt.Sprintf("BMLT server %s did not answer with JSONP", server.URL))
	}
	jsonText := text[len(bmltCallbackPrefix) : len(text)-len(bmltCallbackSuffix)]

	var data struct {
		Meetings []bmltRecord `json:"meetings"`
	}
	if err := json.Unmarshal([]byte(jsonText), &data); err != nil {
		return nil, errors.NewJSONParseError("failed to decode BMLT search results", err)
	}

	return data.Meetings, nil
}

func (a *BMLTSourceAdapter) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		a.logger.Warn("Failed to close BMLT response body", ports.F("error", err))
	}
}

// bmltRecord is one meeting from a BMLT search result. Every field arrives as
// a string, including the coordinates and the weekday.
type bmltRecord struct {
	WeekdayTinyint     string `json:"weekday_tinyint"`
	StartTime          string `json:"start_time"`
	DurationTime       string `json:"duration_time"`
	Formats            string `json:"formats"`
	Longitude          string `json:"longitude"`
	Latitude           string `json:"latitude"`
	MeetingName        string `json:"meeting_name"`
	LocationText       string `json:"location_text"`
	LocationInfo       string `json:"location_info"`
	LocationStreet     string `json:"location_street"`
	LocationProvince   string `json:"location_province"`
	Comments           string `json:"comments"`
	ContactPhone2      string `json:"contact_phone_2"`
	ContactEmail2      string `json:"contact_email_2"`
	ContactPhone1      string `json:"contact_phone_1"`
	ContactEmail1      string `json:"contact_email_1"`
	PhoneMeetingNumber string `json:"phone_meeting_number"`
	VirtualMeetingLink string `json:"virtual_meeting_link"`
	RootServerURI      string `json:"root_server_uri"`
}

// bmltVirtualFormat marks online meetings in the comma separated formats field
const bmltVirtualFormat = "VM"

func (r bmltRecord) toFetchMeeting(now time.Time) (meeting.FetchMeeting, error) {
	start, err := parseClockTime(r.StartTime[:min(len(r.StartTime), 5)])
	if err != nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has an unparseable start time")
	}

	duration, err := parseDurationTime(r.DurationTime)
	if err != nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has an unparseable duration")
	}

	upstreamDay, err := strconv.Atoi(r.WeekdayTinyint)
	if err != nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has an unparseable weekday")
	}

	// Upstream weekdays are 1-based.
	day, err := meeting.WeekDayFromIndex(upstreamDay - 1)
	if err != nil {
		return meeting.FetchMeeting{}, err
	}

	latitude, err := strconv.ParseFloat(r.Latitude, 64)
	if err != nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has an unparseable latitude")
	}
	longitude, err := strconv.ParseFloat(r.Longitude, 64)
	if err != nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has an unparseable longitude")
	}

	email := optionalString(r.ContactEmail1)
	if email == nil {
		email = optionalString(r.ContactEmail2)
	}
	phone := optionalString(r.ContactPhone1)
	if phone == nil {
		phone = optionalString(r.ContactPhone2)
	}

	isOnline := strings.Contains(r.Formats, bmltVirtualFormat)

	var onlineURL *string
	if isOnline && r.VirtualMeetingLink != "" {
		onlineURL = &r.VirtualMeetingLink
	}

	position := meeting.NewPosition(latitude, longitude)
	province := r.LocationProvince

	return meeting.FetchMeeting{
		Meeting: meeting.Meeting{
			Name:      r.MeetingName,
			Org:       meeting.NarcoticsAnonymous,
			Notes:     optionalString(r.Comments),
			Source:    normalizeRootServerURI(r.RootServerURI),
			UpdatedAt: now,
			Contact: meeting.Contact{
				Email: email,
				Phone: phone,
			},
			Location: meeting.Location{
				Position: &position,
				Name:     optionalString(r.LocationText),
				Notes:    optionalString(r.LocationInfo),
				Country:  stringPtr("United States"),
				Region:   &province,
				Address:  optionalString(r.LocationStreet),
			},
			OnlineOptions: meeting.OnlineOptions{
				URL:      onlineURL,
				Notes:    optionalString(r.PhoneMeetingNumber),
				IsOnline: isOnline,
			},
			Time:     meeting.RecurringOn(day, start/60, start%60),
			Duration: &duration,
		},
	}, nil
}

// parseDurationTime converts an "HH:MM:SS" duration into whole seconds
func parseDurationTime(s string) (int64, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, err
	}
	return int64(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

// normalizeRootServerURI strips trailing slashes and the main_server path so
// the source identifies the federation member, not its API
func normalizeRootServerURI(uri string) string {
	uri = strings.TrimRight(uri, "/")
	for strings.HasSuffix(uri, "/main_server") {
		uri = strings.TrimSuffix(uri, "/main_server")
	}
	return uri
}
