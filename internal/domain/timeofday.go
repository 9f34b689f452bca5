package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a wall-clock time as seconds since midnight (0..86399).
// It carries no date and no zone; callers place it on a day in the user's location.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from its components.
func NewTimeOfDay(h, m, s int) (TimeOfDay, error) {
	if h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: hour %d", ErrInvalidInput, h)
	}
	if m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: minute %d", ErrInvalidInput, m)
	}
	if s < 0 || s > 59 {
		return 0, fmt.Errorf("%w: second %d", ErrInvalidInput, s)
	}
	return TimeOfDay(h*3600 + m*60 + s), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals known to be valid.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyTime
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: expected HH:MM or HH:MM:SS, got %q", ErrInvalidInput, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidInput, s)
		}
		nums[i] = n
	}
	return NewTimeOfDay(nums[0], nums[1], nums[2])
}

// TimeOfDayOf returns the wall-clock part of t in t's own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// String formats as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// On places t on the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location())
}

// NextOccurrence returns the first instant strictly after now at which the wall
// clock in now's location reads at: today if still ahead, otherwise tomorrow.
func NextOccurrence(now time.Time, at TimeOfDay) time.Time {
	next := at.On(now)
	if !next.After(now) {
		next = at.On(now.AddDate(0, 0, 1))
	}
	return next
}

// LoadLocation resolves an IANA zone name, falling back to def when the name
// is empty or unknown.
func LoadLocation(name string, def *time.Location) *time.Location {
	if def == nil {
		def = time.UTC
	}
	if strings.TrimSpace(name) == "" {
		return def
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return def
	}
	return loc
}
