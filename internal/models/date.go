package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02,15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Date decodes the date layouts accepted from clients and seed files.
type Date struct {
	time.Time
}

// ParseDate parses s with the first matching layout, in UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized date %q", s)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return NewValidationError("date", "dates must be strings")
	}
	t, err := ParseDate(s)
	if err != nil {
		return NewValidationError("date", err.Error())
	}
	d.Time = t
	return nil
}

func toTimes(dates []Date) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Time)
	}
	return out
}
