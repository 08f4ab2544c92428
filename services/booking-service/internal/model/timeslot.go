package model

import (
	"fmt"
	"strings"
	"time"
)

// Weekday orders Monday first, matching how clinics publish their weekly grid.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

func ParseWeekday(s string) (Weekday, bool) {
	s = strings.TrimSpace(s)
	for i := Monday; i <= Sunday; i++ {
		if strings.EqualFold(weekdayNames[i], s) {
			return i, true
		}
	}
	return 0, false
}

// WeekdayOf maps a calendar date onto the clinic week.
func WeekdayOf(t time.Time) Weekday {
	if t.Weekday() == time.Sunday {
		return Sunday
	}
	return Weekday(t.Weekday())
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	v, ok := ParseWeekday(string(b))
	if !ok {
		return fmt.Errorf("%w: unknown day %q", ErrInvalidInput, string(b))
	}
	*d = v
	return nil
}

type TimeSlot struct {
	ID          string
	ProviderID  string
	Day         Weekday
	StartTime   string // HH:MM
	EndTime     string // HH:MM
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClockLayout is the wall-clock format used for slot boundaries.
const ClockLayout = "15:04"

// ValidateWindow normalizes and checks a slot's day and wall-clock bounds.
func ValidateWindow(day Weekday, start, end string) (string, string, error) {
	if !day.Valid() {
		return "", "", fmt.Errorf("%w: day is required", ErrInvalidInput)
	}
	s, err := time.Parse(ClockLayout, strings.TrimSpace(start))
	if err != nil {
		return "", "", fmt.Errorf("%w: start_time must be HH:MM", ErrInvalidInput)
	}
	e, err := time.Parse(ClockLayout, strings.TrimSpace(end))
	if err != nil {
		return "", "", fmt.Errorf("%w: end_time must be HH:MM", ErrInvalidInput)
	}
	if !e.After(s) {
		return "", "", fmt.Errorf("%w: end_time must be after start_time", ErrInvalidInput)
	}
	return s.Format(ClockLayout), e.Format(ClockLayout), nil
}

// SlotLess orders slots by day, then start time.
func SlotLess(a, b TimeSlot) bool {
	if a.Day != b.Day {
		return a.Day < b.Day
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.ID < b.ID
}
