package domain

import (
	"errors"
	"strings"
	"time"
)

// DayBucket is the fixed length of a day window. It is anchored at the
// caller-supplied instant, not at a calendar-day boundary.
const DayBucket = 24 * time.Hour

var ErrWindowStartRequired = errors.New("startAt is required for the day window")

type WindowMode string

const (
	WindowAll      WindowMode = ""
	WindowDay      WindowMode = "day"
	WindowUpcoming WindowMode = "upcoming"
	WindowPast     WindowMode = "past"
)

// ParseWindowMode is case-insensitive. Anything unrecognised falls back to
// WindowAll instead of failing.
func ParseWindowMode(s string) WindowMode {
	switch WindowMode(strings.ToLower(strings.TrimSpace(s))) {
	case WindowDay:
		return WindowDay
	case WindowUpcoming:
		return WindowUpcoming
	case WindowPast:
		return WindowPast
	default:
		return WindowAll
	}
}

func (m WindowMode) String() string {
	if m == WindowAll {
		return "all"
	}
	return string(m)
}

// Window selects events by time. StartAt anchors WindowDay; Now is the
// reference instant for WindowUpcoming and WindowPast.
type Window struct {
	Mode    WindowMode
	StartAt time.Time
	Now     time.Time
}

func (w Window) Validate() error {
	if w.Mode == WindowDay && w.StartAt.IsZero() {
		return ErrWindowStartRequired
	}
	return nil
}

// Bounds returns the half-open start-time range of a day window.
func (w Window) Bounds() (time.Time, time.Time) {
	return w.StartAt, w.StartAt.Add(DayBucket)
}

func (w Window) Contains(e Event) bool {
	switch w.Mode {
	case WindowDay:
		from, to := w.Bounds()
		return !e.StartTime.Before(from) && e.StartTime.Before(to)
	case WindowUpcoming:
		return !IsPast(e, w.Now)
	case WindowPast:
		return IsPast(e, w.Now)
	default:
		return true
	}
}

// IsPast reports whether e has concluded at now. An event ending exactly at
// now is past.
func IsPast(e Event, now time.Time) bool {
	return !e.EndTime().After(now)
}
