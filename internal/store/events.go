package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"slotbook/backend/internal/domain"
)

// WindowQuery narrows FindByWindow. A nil CategoryIDs means every category;
// a non-nil empty slice matches nothing. An empty BookingEmail applies no
// identity filter; a set one matches case-insensitively.
type WindowQuery struct {
	Window       domain.Window
	CategoryIDs  []int64
	BookingEmail string
}

// Matches reports whether e satisfies every filter of q.
func (q WindowQuery) Matches(e domain.Event) bool {
	if q.CategoryIDs != nil && !containsID(q.CategoryIDs, e.CategoryID) {
		return false
	}
	if q.BookingEmail != "" && !strings.EqualFold(e.BookingEmail, q.BookingEmail) {
		return false
	}
	return q.Window.Contains(e)
}

// MatchesNothing is true when the category scope is explicitly empty.
func (q WindowQuery) MatchesNothing() bool {
	return q.CategoryIDs != nil && len(q.CategoryIDs) == 0
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type EventRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Event, error)
	FindByWindow(ctx context.Context, q WindowQuery) ([]domain.Event, error)
	FindOverlapping(ctx context.Context, categoryID int64, start, end time.Time, excludeID uuid.UUID) ([]domain.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// InCategoryTransaction runs fn while holding the booking lock of
	// categoryID. Writes made through tx are discarded if fn returns an error.
	InCategoryTransaction(ctx context.Context, categoryID int64, fn func(ctx context.Context, tx EventTx) error) error
}

type EventTx interface {
	FindOverlapping(ctx context.Context, categoryID int64, start, end time.Time, excludeID uuid.UUID) ([]domain.Event, error)
	CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error)
	UpdateEvent(ctx context.Context, e domain.Event) (domain.Event, error)
}
