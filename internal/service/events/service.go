package events

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"slotbook/backend/internal/auth"
	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/service"
	"slotbook/backend/internal/store"
)

// OwnershipIndex answers which categories a lecturer owns.
type OwnershipIndex interface {
	CategoriesOwnedBy(ctx context.Context, email string) ([]int64, error)
}

type CategoryLookup interface {
	Get(ctx context.Context, id int64) (domain.Category, error)
}

type Service struct {
	repo       store.EventRepository
	categories CategoryLookup
	owners     OwnershipIndex
	now        func() time.Time
}

// NewService uses the wall clock when now is nil.
func NewService(repo store.EventRepository, categories CategoryLookup, owners OwnershipIndex, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, categories: categories, owners: owners, now: now}
}

type CreateInput struct {
	CategoryID   int64
	BookingName  string
	BookingEmail string
	StartTime    time.Time
	Notes        string
}

// UpdateInput fields left nil are not changed.
type UpdateInput struct {
	StartTime *time.Time
	Notes     *string
}

func (s *Service) CreateEvent(ctx context.Context, caller auth.Status, in CreateInput) (domain.Event, error) {
	if caller.IsLecturer() {
		return domain.Event{}, service.Forbidden("lecturers cannot book events")
	}

	name := strings.TrimSpace(in.BookingName)
	if name == "" {
		return domain.Event{}, service.Invalid("bookingName", "bookingName is required")
	}
	if utf8.RuneCountInString(name) > domain.MaxBookingNameLength {
		return domain.Event{}, service.Invalid("bookingName", "bookingName is too long")
	}

	email, err := validateBookingEmail(in.BookingEmail)
	if err != nil {
		return domain.Event{}, err
	}
	if caller.IsStudent() {
		if !caller.Owns(email) {
			return domain.Event{}, service.Invalid("bookingEmail", "bookingEmail must be the same as the student's email")
		}
	}

	notes, err := validateNotes(in.Notes)
	if err != nil {
		return domain.Event{}, err
	}
	start, err := s.futureStart(in.StartTime)
	if err != nil {
		return domain.Event{}, err
	}

	category, err := s.categories.Get(ctx, in.CategoryID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Event{}, service.NotFound("category", in.CategoryID)
	}
	if err != nil {
		return domain.Event{}, err
	}

	e := domain.Event{
		CategoryID:      category.ID,
		BookingName:     name,
		BookingEmail:    email,
		StartTime:       start,
		DurationMinutes: category.DurationMinutes,
		Notes:           notes,
	}

	var created domain.Event
	err = s.repo.InCategoryTransaction(ctx, category.ID, func(ctx context.Context, tx store.EventTx) error {
		if err := checkFree(ctx, tx, e.CategoryID, e.StartTime, e.EndTime(), uuid.Nil); err != nil {
			return err
		}
		out, err := tx.CreateEvent(ctx, e)
		if err != nil {
			return err
		}
		created = out
		return nil
	})
	if err != nil {
		return domain.Event{}, s.bookingError(err, e.CategoryID, e.StartTime, e.EndTime())
	}
	return created, nil
}

func (s *Service) UpdateEvent(ctx context.Context, caller auth.Status, id uuid.UUID, in UpdateInput) (domain.Event, error) {
	if in.StartTime == nil && in.Notes == nil {
		return domain.Event{}, service.Invalid("", "at least one of startTime or notes is required")
	}
	if caller.IsLecturer() {
		return domain.Event{}, service.Forbidden("lecturers cannot edit events")
	}

	e, err := s.get(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if !CanAccess(caller, e) {
		return domain.Event{}, service.Forbidden("you can only edit your own events")
	}

	next := e
	if in.StartTime != nil {
		start, err := s.futureStart(*in.StartTime)
		if err != nil {
			return domain.Event{}, err
		}
		next.StartTime = start
	}
	if in.Notes != nil {
		notes, err := validateNotes(*in.Notes)
		if err != nil {
			return domain.Event{}, err
		}
		next.Notes = notes
	}
	return s.save(ctx, next)
}

// UpdateEventTime moves an event without any caller check. The duration
// stays the one copied from the category at creation.
func (s *Service) UpdateEventTime(ctx context.Context, id uuid.UUID, newStart time.Time) (domain.Event, error) {
	start, err := s.futureStart(newStart)
	if err != nil {
		return domain.Event{}, err
	}
	e, err := s.get(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	e.StartTime = start
	return s.save(ctx, e)
}

func (s *Service) save(ctx context.Context, e domain.Event) (domain.Event, error) {
	var updated domain.Event
	err := s.repo.InCategoryTransaction(ctx, e.CategoryID, func(ctx context.Context, tx store.EventTx) error {
		if err := checkFree(ctx, tx, e.CategoryID, e.StartTime, e.EndTime(), e.ID); err != nil {
			return err
		}
		out, err := tx.UpdateEvent(ctx, e)
		if err != nil {
			return err
		}
		updated = out
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.Event{}, service.NotFound("event", e.ID)
	}
	if err != nil {
		return domain.Event{}, s.bookingError(err, e.CategoryID, e.StartTime, e.EndTime())
	}
	return updated, nil
}

func (s *Service) DeleteEvent(ctx context.Context, caller auth.Status, id uuid.UUID) error {
	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if caller.IsLecturer() {
		return service.Forbidden("lecturers cannot delete events")
	}
	if !CanAccess(caller, e) {
		return service.Forbidden("you can only delete your own events")
	}
	err = s.repo.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return service.NotFound("event", id)
	}
	return err
}

func (s *Service) GetEvent(ctx context.Context, caller auth.Status, id uuid.UUID) (domain.Event, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if !CanAccess(caller, e) {
		return domain.Event{}, service.Forbidden("you can only view your own events")
	}
	return e, nil
}

// CanAccess is the single-event rule: admins reach every event, everyone
// else only events booked under their own email. Lecturers get no category
// carve-out here.
func CanAccess(caller auth.Status, e domain.Event) bool {
	return caller.IsAdmin() || caller.Owns(e.BookingEmail)
}

// HasOverlap reports whether [start, start+durationMinutes) collides with
// an event of categoryID other than excludeID.
func (s *Service) HasOverlap(ctx context.Context, categoryID int64, start time.Time, durationMinutes int, excludeID uuid.UUID) (bool, error) {
	if durationMinutes < domain.MinCategoryDurationMinutes || durationMinutes > domain.MaxCategoryDurationMinutes {
		return false, service.Invalid("durationMinutes", "durationMinutes must be between 1 and 480")
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	found, err := s.repo.FindOverlapping(ctx, categoryID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	e, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Event{}, service.NotFound("event", id)
	}
	return e, err
}

func (s *Service) futureStart(start time.Time) (time.Time, error) {
	if start.IsZero() {
		return time.Time{}, service.Invalid("startTime", "startTime is required")
	}
	if !start.After(s.now()) {
		return time.Time{}, service.Invalid("startTime", "startTime must be in the future")
	}
	return start.UTC(), nil
}

// bookingError turns a store conflict, including one raised by the
// database exclusion constraint, into an OverlapError.
func (s *Service) bookingError(err error, categoryID int64, start, end time.Time) error {
	var overlap *service.OverlapError
	if errors.As(err, &overlap) {
		return err
	}
	if errors.Is(err, store.ErrConflict) {
		return &service.OverlapError{CategoryID: categoryID, Start: start, End: end}
	}
	if errors.Is(err, store.ErrNotFound) {
		return service.NotFound("category", categoryID)
	}
	return err
}

func checkFree(ctx context.Context, tx store.EventTx, categoryID int64, start, end time.Time, excludeID uuid.UUID) error {
	found, err := tx.FindOverlapping(ctx, categoryID, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(found) > 0 {
		return &service.OverlapError{CategoryID: categoryID, Start: start, End: end}
	}
	return nil
}

func validateBookingEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", service.Invalid("bookingEmail", "bookingEmail is required")
	}
	if utf8.RuneCountInString(email) > domain.MaxBookingEmailLength {
		return "", service.Invalid("bookingEmail", "bookingEmail is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", service.Invalid("bookingEmail", "bookingEmail is not a valid address")
	}
	return strings.ToLower(email), nil
}

func validateNotes(raw string) (string, error) {
	notes := strings.TrimSpace(raw)
	if utf8.RuneCountInString(notes) > domain.MaxNotesLength {
		return "", service.Invalid("notes", "notes is too long")
	}
	return notes, nil
}
