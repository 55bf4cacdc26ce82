// Package external provides adapters for upstream meeting listings and the
// geocoding service.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"meetingindex.app/internal/config"
	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

const tsmlSourceName = "wp_sites"

// tsmlMetadataScriptID marks the inline script TSML pages embed their AJAX
// endpoint and nonce in
const tsmlMetadataScriptID = "tsml_public-js-extra"

// TSMLSourceAdapter implements the MeetingSource port for TSML-family
// WordPress sites. Each configured site is scraped for its AJAX metadata and
// then queried through the TSML meetings endpoint.
type TSMLSourceAdapter struct {
	sites   []config.TSMLSite
	client  *http.Client
	logger  ports.Logger
	metrics ports.MetricsRecorder
}

// TSMLSourceParams holds parameters for creating the TSML source adapter
type TSMLSourceParams struct {
	Sites   []config.TSMLSite
	Logger  ports.Logger
	Metrics ports.MetricsRecorder
}

// NewTSMLSourceAdapter creates a new TSML source adapter
func NewTSMLSourceAdapter(params TSMLSourceParams) *TSMLSourceAdapter {
	return &TSMLSourceAdapter{
		sites:   params.Sites,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  params.Logger,
		metrics: params.Metrics,
	}
}

// SourceName returns the name of this meeting source
func (a *TSMLSourceAdapter) SourceName() string {
	return tsmlSourceName
}

// FetchMeetings fetches every configured site concurrently and sends one
// result per site
func (a *TSMLSourceAdapter) FetchMeetings(ctx context.Context, output chan<- ports.FetchResult) {
	var wg sync.WaitGroup
	for _, site := range a.sites {
		wg.Add(1)
		go func(site config.TSMLSite) {
			defer wg.Done()
			output <- a.fetchSite(ctx, site)
		}(site)
	}
	wg.Wait()
}

type tsmlMetadata struct {
	Nonce    string
	Endpoint string
	Types    map[string]string
}

func (a *TSMLSourceAdapter) fetchMetadata(ctx context.Context, meetingsURL string) (*tsmlMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meetingsURL, nil)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to build TSML page request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to fetch TSML page", err)
	}
	defer a.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUnexpectedResponseError(fmt.Sprintf("TSML page returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to read TSML page", err)
	}

	jsonText, err := extractMetadataJSON(string(body))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Nonce   *string           `json:"nonce"`
		AjaxURL *string           `json:"ajaxurl"`
		Types   map[string]string `json:"types"`
	}
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, errors.NewJSONParseError("failed to parse TSML metadata", err)
	}

	if payload.Nonce == nil {
		return nil, errors.NewUnexpectedResponseError("cannot find 'nonce' in TSML metadata")
	}
	if payload.AjaxURL == nil {
		return nil, errors.NewUnexpectedResponseError("cannot find 'ajaxurl' in TSML metadata")
	}
	if payload.Types == nil {
		return nil, errors.NewUnexpectedResponseError("cannot find 'types' in TSML metadata")
	}

	return &tsmlMetadata{
		Nonce:    *payload.Nonce,
		Endpoint: *payload.AjaxURL,
		Types:    payload.Types,
	}, nil
}

// extractMetadataJSON locates the metadata script by id and takes the first
// '{' through the last '}' of its body
func extractMetadataJSON(page string) (string, error) {
	markerIndex := strings.Index(page, tsmlMetadataScriptID)
	if markerIndex == -1 {
		return "", errors.NewUnexpectedResponseError("cannot find tsml metadata script")
	}

	script := page[markerIndex:]
	if end := strings.Index(script, "</script>"); end != -1 {
		script = script[:end]
	}

	start := strings.Index(script, "{")
	if start == -1 {
		return "", errors.NewUnexpectedResponseError("cannot find the start of the metadata json")
	}
	end := strings.LastIndex(script, "}")
	if end == -1 || end < start {
		return "", errors.NewUnexpectedResponseError("cannot find the end of the metadata json")
	}

	return script[start : end+1], nil
}

func (a *TSMLSourceAdapter) fetchSite(ctx context.Context, site config.TSMLSite) ports.FetchResult {
	metadata, err := a.fetchMetadata(ctx, site.MeetingsURL)
	if err != nil {
		return ports.FetchResult{Source: tsmlSourceName, Err: err}
	}

	a.logger.Debug("Fetched TSML metadata",
		ports.F("site", site.MeetingsURL),
		ports.F("endpoint", metadata.Endpoint),
		ports.F("meeting_types", len(metadata.Types)))

	records, err := a.fetchRecords(ctx, metadata)
	if err != nil {
		return ports.FetchResult{Source: tsmlSourceName, Err: err}
	}

	now := time.Now().UTC()
	meetings := make([]meeting.FetchMeeting, 0, len(records))
	for _, record := range records {
		fetched, err := record.toFetchMeeting(now)
		if err != nil {
			a.metrics.RecordDroppedRecord(tsmlSourceName)
			a.logger.Debug("Dropped TSML record",
				ports.F("site", site.MeetingsURL),
				ports.F("name", record.Name),
				ports.F("error", err))
			continue
		}

		// The mapper assigns a placeholder org; the configured site org wins.
		fetched.Meeting.Org = site.Org
		meetings = append(meetings, fetched)
	}

	return ports.FetchResult{Source: tsmlSourceName, Meetings: meetings}
}

func (a *TSMLSourceAdapter) fetchRecords(ctx context.Context, metadata *tsmlMetadata) ([]tsmlMeeting, error) {
	form := url.Values{
		"action":         {"meetings"},
		"mode":           {"search"},
		"distance":       {"2"},
		"view":           {"list"},
		"distance_units": {"km"},
		"nonce":          {metadata.Nonce},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, metadata.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to build TSML meetings request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.NewHTTPRequestError("failed to fetch TSML meetings", err)
	}
	defer a.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUnexpectedResponseError(fmt.Sprintf("TSML meetings endpoint returned status %d", resp.StatusCode))
	}

	var records []tsmlMeeting
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, errors.NewJSONParseError("failed to decode TSML meetings response", err)
	}

	return records, nil
}

func (a *TSMLSourceAdapter) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		a.logger.Warn("Failed to close TSML response body", ports.F("error", err))
	}
}

// tsmlMeeting is one record from the TSML meetings endpoint. Day and the
// coordinates arrive as either JSON numbers or numeric strings depending on
// the site, so they are decoded permissively in toFetchMeeting.
type tsmlMeeting struct {
	Name               string          `json:"name"`
	Notes              *string         `json:"notes"`
	URL                string          `json:"url"`
	Day                json.RawMessage `json:"day"`
	Location           *string         `json:"location"`
	FormattedAddress   *string         `json:"formatted_address"`
	Latitude           json.RawMessage `json:"latitude"`
	Longitude          json.RawMessage `json:"longitude"`
	Region             *string         `json:"region"`
	SubRegion          *string         `json:"sub_region"`
	Email              *string         `json:"email"`
	Phone              *string         `json:"phone"`
	Time               *string         `json:"time"`
	EndTime            *string         `json:"end_time"`
	ConferenceURL      *string         `json:"conference_url"`
	ConferenceURLNotes *string         `json:"conference_url_notes"`
	LocationNotes      *string         `json:"location_notes"`
}

func flexFloatFromRaw(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.NewValidationError("missing numeric field")
	}
	var value FlexFloat
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, err
	}
	return float64(value), nil
}

func flexIntFromRaw(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.NewValidationError("missing integer field")
	}
	var value FlexInt
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, err
	}
	return int(value), nil
}

// tsmlOnlineRegion is the synthetic region TSML sites use for online meetings
const tsmlOnlineRegion = "--Online--"

func (m tsmlMeeting) toFetchMeeting(now time.Time) (meeting.FetchMeeting, error) {
	if m.Time == nil || m.EndTime == nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has no time")
	}

	start, err := parseClockTime(*m.Time)
	if err != nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has an unparseable time")
	}
	end, err := parseClockTime(*m.EndTime)
	if err != nil {
		return meeting.FetchMeeting{}, errors.NewValidationError("record has an unparseable end time")
	}

	upstreamDay, err := flexIntFromRaw(m.Day)
	if err != nil {
		return meeting.FetchMeeting{}, err
	}

	latitude, err := flexFloatFromRaw(m.Latitude)
	if err != nil {
		return meeting.FetchMeeting{}, err
	}
	longitude, err := flexFloatFromRaw(m.Longitude)
	if err != nil {
		return meeting.FetchMeeting{}, err
	}

	// Upstream encodes Sunday=0 ... Saturday=6; canonical is Monday=0.
	day, err := meeting.WeekDayFromIndex((upstreamDay + 6) % 7)
	if err != nil {
		return meeting.FetchMeeting{}, err
	}

	// TSML pages list end times on the same day; a negative span means the
	// upstream record is inconsistent and gets a token one second duration.
	durationSeconds := int64(end-start) * 60
	if durationSeconds < 0 {
		durationSeconds = 1
	}

	isOnline := m.Region != nil && *m.Region == tsmlOnlineRegion

	var onlineURL *string
	if isOnline && m.ConferenceURL != nil && *m.ConferenceURL != "" {
		onlineURL = m.ConferenceURL
	}

	position := meeting.NewPosition(latitude, longitude)

	return meeting.FetchMeeting{
		Meeting: meeting.Meeting{
			Name:      m.Name,
			Org:       meeting.AnonymousAlcoholics, // placeholder, overridden by the driver
			Notes:     m.Notes,
			Source:    m.URL,
			UpdatedAt: now,
			Contact: meeting.Contact{
				Email: m.Email,
				Phone: m.Phone,
			},
			Location: meeting.Location{
				Position: &position,
				Name:     m.Location,
				Notes:    m.LocationNotes,
				Country:  m.Region,
				Region:   m.SubRegion,
				Address:  m.FormattedAddress,
			},
			OnlineOptions: meeting.OnlineOptions{
				URL:      onlineURL,
				Notes:    m.ConferenceURLNotes,
				IsOnline: isOnline,
			},
			Time:     meeting.RecurringOn(day, start/60, start%60),
			Duration: &durationSeconds,
		},
	}, nil
}
