package model

import (
	"fmt"
	"strings"
	"time"
)

// LocalTime is a wall-clock time of day in minutes since local midnight.
type LocalTime int

const minutesPerDay = 24 * 60

// ParseLocalTime accepts "HH:mm" (24h). A trailing ":ss" as returned by
// Postgres time columns is accepted and truncated.
func ParseLocalTime(s string) (LocalTime, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: time %q must be HH:mm", ErrValidation, s)
	}
	h, ok := twoDigits(parts[0])
	if !ok || h > 23 {
		return 0, fmt.Errorf("%w: time %q has an invalid hour", ErrValidation, s)
	}
	m, ok := twoDigits(parts[1])
	if !ok || m > 59 {
		return 0, fmt.Errorf("%w: time %q has an invalid minute", ErrValidation, s)
	}
	if len(parts) == 3 {
		if sec, ok := twoDigits(parts[2]); !ok || sec > 59 {
			return 0, fmt.Errorf("%w: time %q has an invalid second", ErrValidation, s)
		}
	}
	return LocalTime(h*60 + m), nil
}

// twoDigits parses exactly two ASCII digits.
func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// ClockOf returns the wall-clock time of t in its own location.
func ClockOf(t time.Time) LocalTime {
	return LocalTime(t.Hour()*60 + t.Minute())
}

func (t LocalTime) Valid() bool { return t >= 0 && t < minutesPerDay }

func (t LocalTime) Hour() int   { return int(t) / 60 }
func (t LocalTime) Minute() int { return int(t) % 60 }

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t LocalTime) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *LocalTime) UnmarshalText(b []byte) error {
	v, err := ParseLocalTime(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Date is a calendar day with no zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD and rejects impossible days such as 2025-02-30.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrValidation, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

// At returns the instant at which clock reads lt on d in loc.
// Clock readings skipped by a DST jump are normalized forward by time.Date.
func (d Date) At(lt LocalTime, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, lt.Hour(), lt.Minute(), 0, 0, loc)
}

func (d Date) Weekday() time.Weekday {
	return d.At(0, time.UTC).Weekday()
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
