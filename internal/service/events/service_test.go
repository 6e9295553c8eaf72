package events

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"slotbook/backend/internal/auth"
	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/service"
	"slotbook/backend/internal/store"
	"slotbook/backend/internal/store/memory"
)

// fakeRepo panics on any call that the test did not configure.
type fakeRepo struct {
	getFn           func(ctx context.Context, id uuid.UUID) (domain.Event, error)
	findByWindowFn  func(ctx context.Context, q store.WindowQuery) ([]domain.Event, error)
	findOverlapFn   func(ctx context.Context, categoryID int64, start, end time.Time, excludeID uuid.UUID) ([]domain.Event, error)
	deleteFn        func(ctx context.Context, id uuid.UUID) error
	inTransactionFn func(ctx context.Context, categoryID int64, fn func(ctx context.Context, tx store.EventTx) error) error
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeRepo) FindByWindow(ctx context.Context, q store.WindowQuery) ([]domain.Event, error) {
	if f.findByWindowFn == nil {
		panic("FindByWindow not configured")
	}
	return f.findByWindowFn(ctx, q)
}

func (f *fakeRepo) FindOverlapping(ctx context.Context, categoryID int64, start, end time.Time, excludeID uuid.UUID) ([]domain.Event, error) {
	if f.findOverlapFn == nil {
		panic("FindOverlapping not configured")
	}
	return f.findOverlapFn(ctx, categoryID, start, end, excludeID)
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeRepo) InCategoryTransaction(ctx context.Context, categoryID int64, fn func(ctx context.Context, tx store.EventTx) error) error {
	if f.inTransactionFn == nil {
		panic("InCategoryTransaction not configured")
	}
	return f.inTransactionFn(ctx, categoryID, fn)
}

type fakeOwners map[string][]int64

func (f fakeOwners) CategoriesOwnedBy(ctx context.Context, email string) ([]int64, error) {
	return f[email], nil
}

var (
	admin    = auth.Status{Role: auth.RoleAdmin, Email: "admin@example.com"}
	lecturer = auth.Status{Role: auth.RoleLecturer, Email: "lee@example.com"}
	student  = auth.Status{Role: auth.RoleStudent, Email: "sam@example.com"}
	student2 = auth.Status{Role: auth.RoleStudent, Email: "kim@example.com"}
	guest    = auth.Guest()
)

type fixture struct {
	svc  *Service
	mem  *memory.Store
	now  time.Time
	cats map[string]domain.Category
}

func newFixture(t *testing.T, now time.Time, owners fakeOwners) *fixture {
	t.Helper()
	mem := memory.New()
	cats := map[string]domain.Category{}
	for _, c := range []domain.Category{
		{Name: "15-min A", DurationMinutes: 15},
		{Name: "30-min B", DurationMinutes: 30},
		{Name: "60-min C", DurationMinutes: 60},
	} {
		created, err := mem.Categories().Create(context.Background(), c)
		if err != nil {
			t.Fatalf("Create category error: %v", err)
		}
		cats[c.Name] = created
	}
	if owners == nil {
		owners = fakeOwners{}
	}
	f := &fixture{mem: mem, now: now, cats: cats}
	f.svc = NewService(mem.Events(), mem.Categories(), owners, func() time.Time { return f.now })
	return f
}

func (f *fixture) book(t *testing.T, caller auth.Status, category string, email string, start time.Time) domain.Event {
	t.Helper()
	e, err := f.svc.CreateEvent(context.Background(), caller, CreateInput{
		CategoryID:   f.cats[category].ID,
		BookingName:  "Booker",
		BookingEmail: email,
		StartTime:    start,
	})
	if err != nil {
		t.Fatalf("CreateEvent error: %v", err)
	}
	return e
}

func ids(events []domain.Event) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestCreateEvent_OverlapScenario(t *testing.T) {
	f := newFixture(t, time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()
	first := time.Date(2022, 5, 5, 8, 0, 0, 0, time.UTC)

	f.book(t, admin, "15-min A", "sam@example.com", first)

	_, err := f.svc.CreateEvent(ctx, admin, CreateInput{
		CategoryID:   f.cats["15-min A"].ID,
		BookingName:  "Other",
		BookingEmail: "kim@example.com",
		StartTime:    first.Add(10 * time.Minute),
	})
	var overlap *service.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("err = %v, want *OverlapError", err)
	}
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("OverlapError must match store.ErrConflict")
	}

	e := f.book(t, admin, "15-min A", "kim@example.com", first.Add(15*time.Minute))
	if e.DurationMinutes != 15 {
		t.Fatalf("DurationMinutes = %d, want 15", e.DurationMinutes)
	}
}

func TestCreateEvent_Rules(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now, nil)
	ctx := context.Background()
	cat := f.cats["30-min B"].ID
	future := now.Add(time.Hour)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}

	cases := []struct {
		name      string
		caller    auth.Status
		in        CreateInput
		wantField string
		wantErr   any
	}{
		{"lecturer forbidden", lecturer, CreateInput{CategoryID: cat, BookingName: "n", BookingEmail: "lee@example.com", StartTime: future}, "", &service.ForbiddenError{}},
		{"student books for someone else", student, CreateInput{CategoryID: cat, BookingName: "n", BookingEmail: "kim@example.com", StartTime: future}, "bookingEmail", &service.ValidationError{}},
		{"missing name", guest, CreateInput{CategoryID: cat, BookingName: "  ", BookingEmail: "g@example.com", StartTime: future}, "bookingName", &service.ValidationError{}},
		{"name too long", guest, CreateInput{CategoryID: cat, BookingName: string(long), BookingEmail: "g@example.com", StartTime: future}, "bookingName", &service.ValidationError{}},
		{"bad email", guest, CreateInput{CategoryID: cat, BookingName: "n", BookingEmail: "not-an-email", StartTime: future}, "bookingEmail", &service.ValidationError{}},
		{"start in the past", guest, CreateInput{CategoryID: cat, BookingName: "n", BookingEmail: "g@example.com", StartTime: now.Add(-time.Minute)}, "startTime", &service.ValidationError{}},
		{"start exactly now", guest, CreateInput{CategoryID: cat, BookingName: "n", BookingEmail: "g@example.com", StartTime: now}, "startTime", &service.ValidationError{}},
		{"unknown category", guest, CreateInput{CategoryID: 999, BookingName: "n", BookingEmail: "g@example.com", StartTime: future}, "", &service.NotFoundError{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateEvent(ctx, tc.caller, tc.in)
			switch tc.wantErr.(type) {
			case *service.ForbiddenError:
				var e *service.ForbiddenError
				if !errors.As(err, &e) {
					t.Fatalf("err = %v, want *ForbiddenError", err)
				}
			case *service.NotFoundError:
				var e *service.NotFoundError
				if !errors.As(err, &e) {
					t.Fatalf("err = %v, want *NotFoundError", err)
				}
			case *service.ValidationError:
				var e *service.ValidationError
				if !errors.As(err, &e) {
					t.Fatalf("err = %v, want *ValidationError", err)
				}
				if e.Field != tc.wantField {
					t.Fatalf("field = %q, want %q", e.Field, tc.wantField)
				}
			}
		})
	}
}

func TestCreateEvent_StudentAndGuestBookings(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now, nil)

	e := f.book(t, student, "30-min B", "  SAM@example.com ", now.Add(time.Hour))
	if e.BookingEmail != student.Email {
		t.Fatalf("BookingEmail = %q, want %q", e.BookingEmail, student.Email)
	}

	g := f.book(t, guest, "30-min B", "walkin@example.com", now.Add(2*time.Hour))
	if g.BookingEmail != "walkin@example.com" {
		t.Fatalf("BookingEmail = %q", g.BookingEmail)
	}
}

func TestMixedCaseBookingEmailReachesStudent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now, nil)
	ctx := context.Background()

	e := f.book(t, admin, "30-min B", "Sam@Example.com", now.Add(time.Hour))
	if e.BookingEmail != "sam@example.com" {
		t.Fatalf("BookingEmail = %q, want %q", e.BookingEmail, "sam@example.com")
	}

	// a caller whose token carries a differently cased address
	shouty := auth.Status{Role: auth.RoleStudent, Email: "SAM@example.com"}
	for _, caller := range []auth.Status{student, shouty} {
		got, err := f.svc.ListEvents(ctx, caller, ListOptions{})
		if err != nil {
			t.Fatalf("ListEvents error: %v", err)
		}
		if len(got) != 1 || got[0].ID != e.ID {
			t.Fatalf("ListEvents(%s) = %v, want [%s]", caller.Email, ids(got), e.ID)
		}
		if _, err := f.svc.GetEvent(ctx, caller, e.ID); err != nil {
			t.Fatalf("GetEvent(%s) error: %v", caller.Email, err)
		}
	}

	if _, err := f.svc.GetEvent(ctx, student2, e.ID); err == nil {
		t.Fatalf("GetEvent by another student succeeded")
	}
}

func TestCreateEvent_DurationFixedAtCreation(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now, nil)
	ctx := context.Background()

	e := f.book(t, admin, "30-min B", "sam@example.com", now.Add(time.Hour))

	cat := f.cats["30-min B"]
	cat.DurationMinutes = 120
	if _, err := f.mem.Categories().Update(ctx, cat); err != nil {
		t.Fatalf("Update category error: %v", err)
	}

	got, err := f.svc.GetEvent(ctx, admin, e.ID)
	if err != nil {
		t.Fatalf("GetEvent error: %v", err)
	}
	if got.DurationMinutes != 30 || !got.EndTime().Equal(e.StartTime.Add(30*time.Minute)) {
		t.Fatalf("event = %+v, want 30 minute duration", got)
	}

	// a new booking right after the old one uses the new duration
	next := f.book(t, admin, "30-min B", "kim@example.com", e.EndTime())
	if next.DurationMinutes != 120 {
		t.Fatalf("DurationMinutes = %d, want 120", next.DurationMinutes)
	}
}

func TestUpdateEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now, fakeOwners{lecturer.Email: {1, 2, 3}})
	ctx := context.Background()

	mine := f.book(t, student, "30-min B", student.Email, now.Add(time.Hour))
	other := f.book(t, student2, "30-min B", student2.Email, now.Add(2*time.Hour))

	t.Run("requires a field", func(t *testing.T) {
		_, err := f.svc.UpdateEvent(ctx, student, mine.ID, UpdateInput{})
		var vErr *service.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("err = %v, want *ValidationError", err)
		}
	})

	t.Run("lecturer forbidden", func(t *testing.T) {
		notes := "x"
		_, err := f.svc.UpdateEvent(ctx, lecturer, mine.ID, UpdateInput{Notes: &notes})
		var fErr *service.ForbiddenError
		if !errors.As(err, &fErr) {
			t.Fatalf("err = %v, want *ForbiddenError", err)
		}
	})

	t.Run("other student's event forbidden", func(t *testing.T) {
		notes := "x"
		_, err := f.svc.UpdateEvent(ctx, student, other.ID, UpdateInput{Notes: &notes})
		var fErr *service.ForbiddenError
		if !errors.As(err, &fErr) {
			t.Fatalf("err = %v, want *ForbiddenError", err)
		}
	})

	t.Run("moving onto a sibling overlaps", func(t *testing.T) {
		start := other.StartTime.Add(10 * time.Minute)
		_, err := f.svc.UpdateEvent(ctx, student, mine.ID, UpdateInput{StartTime: &start})
		var overlap *service.OverlapError
		if !errors.As(err, &overlap) {
			t.Fatalf("err = %v, want *OverlapError", err)
		}
	})

	t.Run("small shift does not collide with itself", func(t *testing.T) {
		start := mine.StartTime.Add(10 * time.Minute)
		notes := "  bring laptop  "
		got, err := f.svc.UpdateEvent(ctx, student, mine.ID, UpdateInput{StartTime: &start, Notes: &notes})
		if err != nil {
			t.Fatalf("UpdateEvent error: %v", err)
		}
		if !got.StartTime.Equal(start) || got.Notes != "bring laptop" || got.DurationMinutes != 30 {
			t.Fatalf("updated = %+v", got)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		notes := "x"
		_, err := f.svc.UpdateEvent(ctx, admin, uuid.New(), UpdateInput{Notes: &notes})
		var nErr *service.NotFoundError
		if !errors.As(err, &nErr) {
			t.Fatalf("err = %v, want *NotFoundError", err)
		}
	})
}

func TestUpdateEventTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now, nil)
	ctx := context.Background()

	a := f.book(t, admin, "15-min A", "sam@example.com", now.Add(time.Hour))
	b := f.book(t, admin, "15-min A", "kim@example.com", now.Add(2*time.Hour))

	if _, err := f.svc.UpdateEventTime(ctx, a.ID, b.StartTime.Add(-5*time.Minute)); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want overlap", err)
	}
	moved, err := f.svc.UpdateEventTime(ctx, a.ID, b.EndTime())
	if err != nil {
		t.Fatalf("UpdateEventTime error: %v", err)
	}
	if !moved.StartTime.Equal(b.EndTime()) {
		t.Fatalf("StartTime = %v, want %v", moved.StartTime, b.EndTime())
	}
	if _, err := f.svc.UpdateEventTime(ctx, uuid.New(), now.Add(5*time.Hour)); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestDeleteEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now, nil)
	ctx := context.Background()

	e := f.book(t, student, "30-min B", student.Email, now.Add(time.Hour))

	var nErr *service.NotFoundError
	if err := f.svc.DeleteEvent(ctx, admin, uuid.New()); !errors.As(err, &nErr) {
		t.Fatalf("err = %v, want *NotFoundError", err)
	}
	var fErr *service.ForbiddenError
	if err := f.svc.DeleteEvent(ctx, lecturer, e.ID); !errors.As(err, &fErr) {
		t.Fatalf("lecturer err = %v, want *ForbiddenError", err)
	}
	if err := f.svc.DeleteEvent(ctx, student2, e.ID); !errors.As(err, &fErr) {
		t.Fatalf("other student err = %v, want *ForbiddenError", err)
	}
	if err := f.svc.DeleteEvent(ctx, student, e.ID); err != nil {
		t.Fatalf("DeleteEvent error: %v", err)
	}
	if _, err := f.svc.GetEvent(ctx, admin, e.ID); !errors.As(err, &nErr) {
		t.Fatalf("GetEvent after delete err = %v, want *NotFoundError", err)
	}
}

func TestGetEvent_AccessRule(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now, fakeOwners{lecturer.Email: {1, 2, 3}})
	ctx := context.Background()

	e := f.book(t, student, "15-min A", student.Email, now.Add(time.Hour))

	cases := []struct {
		name   string
		caller auth.Status
		allow  bool
	}{
		{"admin", admin, true},
		{"owner", student, true},
		{"other student", student2, false},
		{"owning lecturer has no carve-out", lecturer, false},
		{"guest", guest, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.GetEvent(ctx, tc.caller, e.ID)
			if tc.allow && err != nil {
				t.Fatalf("GetEvent error: %v", err)
			}
			if !tc.allow {
				var fErr *service.ForbiddenError
				if !errors.As(err, &fErr) {
					t.Fatalf("err = %v, want *ForbiddenError", err)
				}
			}
			if CanAccess(tc.caller, e) != tc.allow {
				t.Fatalf("CanAccess = %v, want %v", !tc.allow, tc.allow)
			}
		})
	}
}

func TestListEvents_RoleScoping(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now.Add(-48*time.Hour), nil)

	a1 := f.book(t, admin, "15-min A", student.Email, now.Add(time.Hour))
	b1 := f.book(t, admin, "30-min B", student2.Email, now.Add(time.Hour))
	c1 := f.book(t, admin, "60-min C", student.Email, now.Add(time.Hour))
	f.now = now

	owners := fakeOwners{lecturer.Email: {f.cats["15-min A"].ID, f.cats["30-min B"].ID}}
	f.svc.owners = owners
	ctx := context.Background()

	cases := []struct {
		name   string
		caller auth.Status
		opts   ListOptions
		want   []uuid.UUID
	}{
		{"admin sees all", admin, ListOptions{}, []uuid.UUID{a1.ID, b1.ID, c1.ID}},
		{"admin category filter", admin, ListOptions{CategoryIDs: []int64{f.cats["60-min C"].ID}}, []uuid.UUID{c1.ID}},
		{"lecturer defaults to owned", lecturer, ListOptions{}, []uuid.UUID{a1.ID, b1.ID}},
		{"lecturer intersection drops unowned", lecturer, ListOptions{CategoryIDs: []int64{f.cats["30-min B"].ID, f.cats["60-min C"].ID}}, []uuid.UUID{b1.ID}},
		{"lecturer only unowned yields empty", lecturer, ListOptions{CategoryIDs: []int64{f.cats["60-min C"].ID}}, []uuid.UUID{}},
		{"student sees own", student, ListOptions{}, []uuid.UUID{a1.ID, c1.ID}},
		{"student with category filter", student, ListOptions{CategoryIDs: []int64{f.cats["30-min B"].ID}}, []uuid.UUID{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.ListEvents(ctx, tc.caller, tc.opts)
			if err != nil {
				t.Fatalf("ListEvents error: %v", err)
			}
			gotIDs := ids(got)
			if !sameSet(gotIDs, tc.want) {
				t.Fatalf("ids = %v, want %v", gotIDs, tc.want)
			}

			again, err := f.svc.ListEvents(ctx, tc.caller, tc.opts)
			if err != nil {
				t.Fatalf("second ListEvents error: %v", err)
			}
			if !reflect.DeepEqual(ids(again), gotIDs) {
				t.Fatalf("second listing = %v, want %v", ids(again), gotIDs)
			}
		})
	}
}

func TestListEvents_LecturerWithoutCategoriesSeesNothing(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now, nil)
	f.book(t, admin, "15-min A", student.Email, now.Add(time.Hour))

	got, err := f.svc.ListEvents(context.Background(), lecturer, ListOptions{})
	if err != nil {
		t.Fatalf("ListEvents error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(events) = %d, want 0", len(got))
	}
}

func TestListEvents_GuestForbiddenWithoutTouchingStore(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, fakeOwners{}, nil)
	start := time.Now()
	for _, opts := range []ListOptions{
		{},
		{CategoryIDs: []int64{1}},
		{Mode: domain.WindowDay, StartAt: &start},
		{Mode: domain.WindowPast},
	} {
		_, err := svc.ListEvents(context.Background(), guest, opts)
		var fErr *service.ForbiddenError
		if !errors.As(err, &fErr) {
			t.Fatalf("err = %v, want *ForbiddenError", err)
		}
	}
}

func TestListEvents_DayWindowRequiresStart(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, fakeOwners{}, nil)
	_, err := svc.ListEvents(context.Background(), admin, ListOptions{Mode: domain.WindowDay})
	var vErr *service.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "startAt" {
		t.Fatalf("err = %v, want *ValidationError on startAt", err)
	}
}

func TestListEvents_PastUpcomingScenario(t *testing.T) {
	ref := time.Date(2022, 5, 5, 8, 0, 0, 0, time.UTC)
	var seen []store.WindowQuery
	repo := &fakeRepo{
		findByWindowFn: func(ctx context.Context, q store.WindowQuery) ([]domain.Event, error) {
			seen = append(seen, q)
			return []domain.Event{}, nil
		},
	}
	svc := NewService(repo, nil, fakeOwners{}, func() time.Time { return ref })

	if _, err := svc.ListEvents(context.Background(), admin, ListOptions{Mode: domain.WindowPast}); err != nil {
		t.Fatalf("ListEvents error: %v", err)
	}
	if len(seen) != 1 || seen[0].Window.Mode != domain.WindowPast || !seen[0].Window.Now.Equal(ref) {
		t.Fatalf("query = %+v", seen)
	}
	if seen[0].CategoryIDs != nil || seen[0].BookingEmail != "" {
		t.Fatalf("admin query must not be scoped: %+v", seen[0])
	}

	// the store side of the boundary is covered by the memory store and domain tests
	mem := memory.New()
	var a, b, c domain.Event
	for i, end := range []time.Time{ref.Add(-time.Second), ref, ref.Add(time.Second)} {
		// separate categories so the one-minute events may share time
		cat, err := mem.Categories().Create(context.Background(), domain.Category{Name: "c" + string(rune('a'+i)), DurationMinutes: 1})
		if err != nil {
			t.Fatalf("Create category error: %v", err)
		}
		e := domain.Event{CategoryID: cat.ID, StartTime: end.Add(-time.Minute), DurationMinutes: 1, BookingEmail: "x@example.com"}
		var created domain.Event
		err = mem.Events().InCategoryTransaction(context.Background(), cat.ID, func(ctx context.Context, tx store.EventTx) error {
			out, err := tx.CreateEvent(ctx, e)
			created = out
			return err
		})
		if err != nil {
			t.Fatalf("seed error: %v", err)
		}
		switch i {
		case 0:
			a = created
		case 1:
			b = created
		case 2:
			c = created
		}
	}

	withStore := NewService(mem.Events(), mem.Categories(), fakeOwners{}, func() time.Time { return ref })
	past, err := withStore.ListEvents(context.Background(), admin, ListOptions{Mode: domain.WindowPast})
	if err != nil {
		t.Fatalf("ListEvents error: %v", err)
	}
	if !sameSet(ids(past), []uuid.UUID{a.ID, b.ID}) {
		t.Fatalf("past = %v, want {A, B}", ids(past))
	}
	upcoming, err := withStore.ListEvents(context.Background(), admin, ListOptions{Mode: domain.WindowUpcoming})
	if err != nil {
		t.Fatalf("ListEvents error: %v", err)
	}
	if !sameSet(ids(upcoming), []uuid.UUID{c.ID}) {
		t.Fatalf("upcoming = %v, want {C}", ids(upcoming))
	}
}

func TestIntersect(t *testing.T) {
	if got := Intersect([]int64{2, 3}, []int64{1, 2}); !reflect.DeepEqual(got, []int64{2}) {
		t.Fatalf("Intersect = %v, want [2]", got)
	}
	if got := Intersect(nil, []int64{1, 2}); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("Intersect(nil) = %v, want [1 2]", got)
	}
	if got := Intersect(nil, nil); got == nil || len(got) != 0 {
		t.Fatalf("Intersect(nil, nil) = %#v, want empty non-nil", got)
	}
	if got := Intersect([]int64{3, 3}, []int64{3}); !reflect.DeepEqual(got, []int64{3}) {
		t.Fatalf("Intersect with duplicates = %v, want [3]", got)
	}
}

func TestAllocatedTimeSlots(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now, nil)
	ctx := context.Background()
	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	a := f.book(t, admin, "30-min B", "sam@example.com", day.Add(9*time.Hour))
	f.book(t, admin, "30-min B", "kim@example.com", day.Add(10*time.Hour))
	f.book(t, admin, "30-min B", "kim@example.com", day.Add(24*time.Hour))
	f.book(t, admin, "15-min A", "kim@example.com", day.Add(9*time.Hour))

	slots, err := f.svc.AllocatedTimeSlots(ctx, f.cats["30-min B"].ID, day, uuid.Nil)
	if err != nil {
		t.Fatalf("AllocatedTimeSlots error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	if !slots[0].EndTime.Equal(day.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("slot[0] = %+v", slots[0])
	}

	slots, err = f.svc.AllocatedTimeSlots(ctx, f.cats["30-min B"].ID, day, a.ID)
	if err != nil {
		t.Fatalf("AllocatedTimeSlots error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("len(slots) excluding edited event = %d, want 1", len(slots))
	}

	var nErr *service.NotFoundError
	if _, err := f.svc.AllocatedTimeSlots(ctx, 999, day, uuid.Nil); !errors.As(err, &nErr) {
		t.Fatalf("err = %v, want *NotFoundError", err)
	}
}

func TestHasOverlap(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now, nil)
	ctx := context.Background()
	start := now.Add(time.Hour)
	e := f.book(t, admin, "15-min A", "sam@example.com", start)
	cat := f.cats["15-min A"].ID

	got, err := f.svc.HasOverlap(ctx, cat, start.Add(10*time.Minute), 15, uuid.Nil)
	if err != nil || !got {
		t.Fatalf("HasOverlap = (%v, %v), want (true, nil)", got, err)
	}
	got, err = f.svc.HasOverlap(ctx, cat, start.Add(10*time.Minute), 15, e.ID)
	if err != nil || got {
		t.Fatalf("HasOverlap excluding self = (%v, %v), want (false, nil)", got, err)
	}
	got, err = f.svc.HasOverlap(ctx, cat, start.Add(-15*time.Minute), 15, uuid.Nil)
	if err != nil || got {
		t.Fatalf("HasOverlap back-to-back = (%v, %v), want (false, nil)", got, err)
	}

	// a duration that would wrap time.Duration must not turn into an
	// inverted interval that reports no overlap
	for _, minutes := range []int{0, -15, 481, 200000000} {
		got, err := f.svc.HasOverlap(ctx, cat, start.Add(-time.Hour), minutes, uuid.Nil)
		var vErr *service.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "durationMinutes" {
			t.Fatalf("HasOverlap(%d) = (%v, %v), want durationMinutes ValidationError", minutes, got, err)
		}
	}
	got, err = f.svc.HasOverlap(ctx, cat, start.Add(-time.Hour), domain.MaxCategoryDurationMinutes, uuid.Nil)
	if err != nil || !got {
		t.Fatalf("HasOverlap at max duration = (%v, %v), want (true, nil)", got, err)
	}
}

func sameSet(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	m := make(map[uuid.UUID]int, len(a))
	for _, id := range a {
		m[id]++
	}
	for _, id := range b {
		m[id]--
	}
	for _, n := range m {
		if n != 0 {
			return false
		}
	}
	return true
}
