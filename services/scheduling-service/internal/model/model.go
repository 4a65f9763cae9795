package model

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Host is the profile the scheduler reads for timezone and notification address.
// ID is the subject issued by the external identity provider.
type Host struct {
	ID        string
	Name      string
	Email     string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (h Host) Location() (*time.Location, error) {
	return LoadTimezone(h.Timezone)
}

// LoadTimezone resolves an IANA zone name. Empty names are rejected rather than read as UTC.
func LoadTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: timezone is required", ErrValidation)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrValidation, name)
	}
	return loc, nil
}

// WeeklyRule is a recurring open window on one weekday, in the host's timezone.
type WeeklyRule struct {
	ID        string
	HostID    string
	DayOfWeek time.Weekday
	Start     LocalTime
	End       LocalTime
}

func (r WeeklyRule) Validate() error {
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: day_of_week must be between 0 and 6", ErrValidation)
	}
	if !r.Start.Valid() || !r.End.Valid() {
		return fmt.Errorf("%w: rule times must be within the day", ErrValidation)
	}
	if r.Start >= r.End {
		return fmt.Errorf("%w: start time must be before end time", ErrValidation)
	}
	return nil
}

// Event durations are bounded to one day.
const (
	MinDurationMinutes = 5
	MaxDurationMinutes = minutesPerDay
)

// Question is one custom prompt shown on the booking form.
type Question struct {
	Prompt      string `json:"question"`
	Kind        string `json:"type"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder,omitempty"`
}

type EventType struct {
	ID              string
	HostID          string
	Name            string
	DurationMinutes int
	Slug            string
	Description     string
	Questions       []Question
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (e EventType) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Booking is a reservation of [Start, End) on Date for one event type.
type Booking struct {
	ID            string
	EventTypeID   string
	HostID        string
	InviteeName   string
	InviteeEmail  string
	Date          Date
	Start         LocalTime
	End           LocalTime
	Timezone      string
	Status        Status
	Answers       map[string]string
	MessageToHost string
	CreatedAt     time.Time
	CancelledAt   *time.Time
}

func (b Booking) Scheduled() bool { return b.Status == StatusScheduled }

// Meeting is a booking joined with the event type it was made for, as listed to hosts.
type Meeting struct {
	Booking
	EventName       string
	EventSlug       string
	DurationMinutes int
}
