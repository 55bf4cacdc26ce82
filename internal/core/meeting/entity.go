// Package meeting contains the canonical domain model shared by the
// source adapters, the index and the query API.
package meeting

import (
	"fmt"
	"time"

	"meetingindex.app/pkg/errors"
	"meetingindex.app/pkg/validation"
)

// Position represents a geographic coordinate pair
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPosition creates a position from a coordinate pair
func NewPosition(latitude, longitude float64) Position {
	return Position{Latitude: latitude, Longitude: longitude}
}

// IsValid checks the coordinate invariants
func (p Position) IsValid() error {
	if !validation.IsValidLatitude(p.Latitude) {
		return errors.NewValidationError("latitude must be finite and within [-90, 90]")
	}
	if !validation.IsValidLongitude(p.Longitude) {
		return errors.NewValidationError("longitude must be finite and within [-180, 180]")
	}
	return nil
}

// Location describes where a meeting takes place. A location without a
// position but with a non-empty address is a geocoding candidate.
type Location struct {
	Position *Position `json:"position"`
	Name     *string   `json:"name"`
	Notes    *string   `json:"notes"`
	Country  *string   `json:"country"`
	Region   *string   `json:"region"`
	Address  *string   `json:"address"`
}

// Contact holds optional ways to reach the meeting's organizers
type Contact struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// OnlineOptions describes the remote attendance options of a meeting.
// Invariant: URL may only be set when IsOnline is true.
type OnlineOptions struct {
	URL      *string `json:"url"`
	Notes    *string `json:"notes"`
	IsOnline bool    `json:"is_online"`
}

// IsValid checks the online options invariant
func (o OnlineOptions) IsValid() error {
	if o.URL != nil && !o.IsOnline {
		return errors.NewValidationError("online URL set on a meeting that is not online")
	}
	return nil
}

// WeekDay is a day of the week with the canonical index Monday = 0 ... Sunday = 6
type WeekDay int

const (
	Monday WeekDay = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekDayNames = [...]string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
	"Sunday",
}

// WeekDayFromIndex converts a canonical day index into a WeekDay
func WeekDayFromIndex(day int) (WeekDay, error) {
	if !validation.IsValidDayIndex(day) {
		return 0, errors.NewValidationError(fmt.Sprintf("day index must be between 0 and 6, got %d", day))
	}
	return WeekDay(day), nil
}

// ParseWeekDay converts a day name back into a WeekDay
func ParseWeekDay(s string) (WeekDay, error) {
	for i, name := range weekDayNames {
		if name == s {
			return WeekDay(i), nil
		}
	}
	return 0, errors.NewValidationError(fmt.Sprintf("unknown week day: %s", s))
}

// Index returns the canonical day index
func (d WeekDay) Index() int {
	return int(d)
}

// String returns the day name
func (d WeekDay) String() string {
	if !validation.IsValidDayIndex(int(d)) {
		return "unknown"
	}
	return weekDayNames[d]
}

// MarshalText implements encoding.TextMarshaler so days serialize as names
func (d WeekDay) MarshalText() ([]byte, error) {
	if !validation.IsValidDayIndex(int(d)) {
		return nil, errors.NewValidationError(fmt.Sprintf("day index out of range: %d", int(d)))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *WeekDay) UnmarshalText(text []byte) error {
	day, err := ParseWeekDay(string(text))
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// Organization identifies the 12-step fellowship a meeting belongs to
type Organization int

const (
	OrganizationUnknown Organization = iota
	AnonymousAlcoholics
	DebtorsAnonymous
	CrystalMethAnonymous
	CodependentsAnonymous
	NarcoticsAnonymous
)

// String returns the organization identifier used on the wire and in the index
func (o Organization) String() string {
	switch o {
	case AnonymousAlcoholics:
		return "AnonymousAlcoholics"
	case DebtorsAnonymous:
		return "DebtorsAnonymous"
	case CrystalMethAnonymous:
		return "CrystalMethAnonymous"
	case CodependentsAnonymous:
		return "CodependentsAnonymous"
	case NarcoticsAnonymous:
		return "NarcoticsAnonymous"
	default:
		return "unknown"
	}
}

// ParseOrganization converts an organization identifier back into the enum
func ParseOrganization(s string) (Organization, error) {
	switch s {
	case "AnonymousAlcoholics":
		return AnonymousAlcoholics, nil
	case "DebtorsAnonymous":
		return DebtorsAnonymous, nil
	case "CrystalMethAnonymous":
		return CrystalMethAnonymous, nil
	case "CodependentsAnonymous":
		return CodependentsAnonymous, nil
	case "NarcoticsAnonymous":
		return NarcoticsAnonymous, nil
	default:
		return OrganizationUnknown, errors.NewValidationError(fmt.Sprintf("unknown organization: %s", s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Organization) MarshalText() ([]byte, error) {
	if o == OrganizationUnknown {
		return nil, errors.NewValidationError("cannot serialize unknown organization")
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Organization) UnmarshalText(text []byte) error {
	org, err := ParseOrganization(string(text))
	if err != nil {
		return err
	}
	*o = org
	return nil
}

// RecurringTime is a weekly repeating meeting slot
type RecurringTime struct {
	Day    WeekDay `json:"day"`
	Hour   int     `json:"hour"`
	Minute int     `json:"minute"`
}

// MeetingTime is a tagged sum of schedule shapes. Recurring is the only
// variant today; additional variants become additional optional fields so
// existing serializations stay valid.
type MeetingTime struct {
	Recurring *RecurringTime `json:"recurring,omitempty"`
}

// RecurringOn builds the recurring variant
func RecurringOn(day WeekDay, hour, minute int) MeetingTime {
	return MeetingTime{Recurring: &RecurringTime{Day: day, Hour: hour, Minute: minute}}
}

// Meeting is one recurring meeting listing normalized from an upstream source
type Meeting struct {
	Name      string       `json:"name"`
	Org       Organization `json:"org"`
	Notes     *string      `json:"notes"`
	Source    string       `json:"source"`
	UpdatedAt time.Time    `json:"updated_at"`

	Contact  Contact  `json:"contact"`
	Location Location `json:"location"`

	OnlineOptions OnlineOptions `json:"online_options"`

	Time MeetingTime `json:"time"`

	// Duration is in whole seconds
	Duration *int64 `json:"duration"`
}

// FetchMeeting is the adapter output: a normalized meeting plus an optional
// address-shaped query for the geocoder when the upstream supplied no position.
type FetchMeeting struct {
	Meeting       Meeting
	PositionQuery *string
}

// NeedsGeocoding reports whether the geocoder should resolve this meeting
func (f *FetchMeeting) NeedsGeocoding() bool {
	return f.PositionQuery != nil && f.Meeting.Location.Position == nil
}

// SearchMeeting is the query API response shape. Distance is present iff
// the search specified a center point, expressed in kilometers.
type SearchMeeting struct {
	Meeting  Meeting  `json:"meeting"`
	Distance *float64 `json:"distance"`
}
