package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conflicts reports whether existing collides with the half-open candidate
// interval [start, end). An event ending exactly at start does not conflict,
// and neither does one starting exactly at end.
func Conflicts(existing Event, start, end time.Time) bool {
	es := existing.StartTime
	ee := existing.EndTime()

	// existing straddles the candidate start
	if es.Before(start) && ee.After(start) {
		return true
	}
	// existing starts inside the candidate
	return !es.Before(start) && es.Before(end)
}

// FindConflicts returns the events of categoryID that collide with
// [start, end). exclude, when non-nil, is skipped so an event being moved is
// not checked against its own previous slot.
func FindConflicts(events []Event, categoryID int64, start, end time.Time, exclude uuid.UUID) []Event {
	var out []Event
	for _, e := range events {
		if e.CategoryID != categoryID {
			continue
		}
		if exclude != uuid.Nil && e.ID == exclude {
			continue
		}
		if Conflicts(e, start, end) {
			out = append(out, e)
		}
	}
	return out
}
