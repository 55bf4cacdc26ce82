package external

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"meetingindex.app/pkg/errors"
)

// Some upstreams serialize the same field as a JSON number on one record and
// a numeric string on the next. FlexFloat and FlexInt accept both.

type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return errors.NewJSONParseError(fmt.Sprintf("not a numeric string: %q", s), err)
		}
		*f = FlexFloat(value)
		return nil
	}

	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*f = FlexFloat(value)
	return nil
}

type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		value, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.NewJSONParseError(fmt.Sprintf("not an integer string: %q", s), err)
		}
		*i = FlexInt(value)
		return nil
	}

	var value int
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*i = FlexInt(value)
	return nil
}

// parseClockTime parses "HH:MM" into minutes since midnight
func parseClockTime(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// optionalString maps the upstream convention of empty-means-absent onto a pointer
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringPtr(s string) *string {
	return &s
}
