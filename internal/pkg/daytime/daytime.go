// Package daytime models wall-clock times within a single day and calendar dates
// independent of any time zone.
package daytime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTime = errors.New("invalid time of day")
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

const DateLayout = "2006-01-02"

// Time is a wall-clock time as seconds since midnight.
type Time int

// Midnight is the end of the day, "24:00" as Postgres TIME writes it.
const Midnight = Time(24 * 3600)

var layouts = []string{"15:04:05", "15:04", "3:04 PM", "3 PM", "3:04PM", "3PM"}

// Parse accepts 24-hour "15:04[:05]" and 12-hour "3[:04] PM" forms, plus
// "24:00[:00]" for a slot ending at midnight.
func Parse(s string) (Time, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "24:00" || s == "24:00:00" {
		return Midnight, nil
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Of(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

// MustParse is Parse for constants in tests and defaults.
func MustParse(s string) Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func Of(hour, minute, second int) Time {
	return Time(hour*3600 + minute*60 + second)
}

func (t Time) Hour() int   { return int(t) / 3600 }
func (t Time) Minute() int { return int(t) % 3600 / 60 }
func (t Time) Second() int { return int(t) % 60 }

// String formats as "15:04:05", the Postgres TIME text form.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// Short formats as "15:04".
func (t Time) Short() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Kitchen formats as "3:04 PM".
func (t Time) Kitchen() string {
	h := t.Hour() % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if t.Hour()%24 >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute(), suffix)
}

// At places t on the calendar day of date in loc.
func (t Time) At(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// ParseDate parses "2006-01-02" into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// DateOf returns the calendar day of instant in loc as midnight UTC.
func DateOf(instant time.Time, loc *time.Location) time.Time {
	y, m, d := instant.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats the calendar day of a date value.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}
