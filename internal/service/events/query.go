package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"slotbook/backend/internal/auth"
	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/service"
	"slotbook/backend/internal/store"
)

// ListOptions filters ListEvents. A nil CategoryIDs means no category
// filter; StartAt is required for the day window only.
type ListOptions struct {
	CategoryIDs []int64
	Mode        domain.WindowMode
	StartAt     *time.Time
}

// ListEvents scopes the query by role: admins see everything, lecturers see
// only categories they own, students see only their own bookings and guests
// are refused.
func (s *Service) ListEvents(ctx context.Context, caller auth.Status, opts ListOptions) ([]domain.Event, error) {
	if caller.IsGuest() {
		return nil, service.Forbidden("sign in to list events")
	}

	w, err := s.window(opts.Mode, opts.StartAt)
	if err != nil {
		return nil, err
	}
	q := store.WindowQuery{Window: w}
	if opts.CategoryIDs != nil {
		q.CategoryIDs = append([]int64{}, opts.CategoryIDs...)
	}

	switch {
	case caller.IsAdmin():
	case caller.IsLecturer():
		owned, err := s.owners.CategoriesOwnedBy(ctx, caller.Email)
		if err != nil {
			return nil, err
		}
		q.CategoryIDs = Intersect(q.CategoryIDs, owned)
	default:
		q.BookingEmail = caller.Email
	}

	return s.repo.FindByWindow(ctx, q)
}

// Intersect narrows requested to owned. A nil requested means everything
// owned. The result is never nil, so an empty intersection matches nothing
// instead of everything.
func Intersect(requested, owned []int64) []int64 {
	if requested == nil {
		return append(make([]int64, 0, len(owned)), owned...)
	}
	allowed := make(map[int64]bool, len(owned))
	for _, id := range owned {
		allowed[id] = true
	}
	out := make([]int64, 0, len(requested))
	seen := make(map[int64]bool, len(requested))
	for _, id := range requested {
		if allowed[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Slot is a booked interval with the booking identity left out.
type Slot struct {
	StartTime       time.Time
	DurationMinutes int
	EndTime         time.Time
}

// AllocatedTimeSlots lists the taken slots of one category in the day
// window at startAt. Any caller may ask, including guests.
func (s *Service) AllocatedTimeSlots(ctx context.Context, categoryID int64, startAt time.Time, excludeID uuid.UUID) ([]Slot, error) {
	if startAt.IsZero() {
		return nil, service.Invalid("startAt", domain.ErrWindowStartRequired.Error())
	}
	if _, err := s.categories.Get(ctx, categoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, service.NotFound("category", categoryID)
		}
		return nil, err
	}

	rows, err := s.repo.FindByWindow(ctx, store.WindowQuery{
		Window:      domain.Window{Mode: domain.WindowDay, StartAt: startAt},
		CategoryIDs: []int64{categoryID},
	})
	if err != nil {
		return nil, err
	}

	out := make([]Slot, 0, len(rows))
	for _, e := range rows {
		if excludeID != uuid.Nil && e.ID == excludeID {
			continue
		}
		out = append(out, Slot{StartTime: e.StartTime, DurationMinutes: e.DurationMinutes, EndTime: e.EndTime()})
	}
	return out, nil
}

func (s *Service) window(mode domain.WindowMode, startAt *time.Time) (domain.Window, error) {
	w := domain.Window{Mode: mode, Now: s.now()}
	if startAt != nil {
		w.StartAt = *startAt
	}
	if err := w.Validate(); err != nil {
		return domain.Window{}, service.Invalid("startAt", err.Error())
	}
	return w, nil
}
