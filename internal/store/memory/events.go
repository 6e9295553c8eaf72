package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/store"
)

type EventRepo struct {
	s *Store
}

func (r *EventRepo) Get(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok {
		return domain.Event{}, store.ErrNotFound
	}
	return e, nil
}

func (r *EventRepo) FindByWindow(ctx context.Context, q store.WindowQuery) ([]domain.Event, error) {
	if q.MatchesNothing() {
		return []domain.Event{}, nil
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Event, 0)
	for _, e := range r.s.events {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

func (r *EventRepo) FindOverlapping(ctx context.Context, categoryID int64, start, end time.Time, excludeID uuid.UUID) ([]domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return findOverlapping(r.s.events, nil, categoryID, start, end, excludeID), nil
}

func (r *EventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.events, id)
	return nil
}

// InCategoryTransaction holds the store write lock for the duration of fn,
// so fn must only use tx. Staged writes are applied when fn returns nil.
func (r *EventRepo) InCategoryTransaction(ctx context.Context, categoryID int64, fn func(ctx context.Context, tx store.EventTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &eventTx{s: r.s, staged: make(map[uuid.UUID]domain.Event)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, e := range tx.staged {
		r.s.events[id] = e
	}
	return nil
}

type eventTx struct {
	s      *Store
	staged map[uuid.UUID]domain.Event
}

func (t *eventTx) FindOverlapping(ctx context.Context, categoryID int64, start, end time.Time, excludeID uuid.UUID) ([]domain.Event, error) {
	return findOverlapping(t.s.events, t.staged, categoryID, start, end, excludeID), nil
}

func (t *eventTx) CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	if _, ok := t.s.categories[e.CategoryID]; !ok {
		return domain.Event{}, store.ErrNotFound
	}
	if e.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Event{}, err
		}
		e.ID = id
	}
	if _, exists := t.lookup(e.ID); exists {
		return domain.Event{}, store.ErrConflict
	}
	if len(findOverlapping(t.s.events, t.staged, e.CategoryID, e.StartTime, e.EndTime(), e.ID)) > 0 {
		return domain.Event{}, store.ErrConflict
	}

	now := t.s.now()
	e.CreatedAt = now
	e.UpdatedAt = now
	t.staged[e.ID] = e
	return e, nil
}

func (t *eventTx) UpdateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	current, ok := t.lookup(e.ID)
	if !ok {
		return domain.Event{}, store.ErrNotFound
	}
	if len(findOverlapping(t.s.events, t.staged, current.CategoryID, e.StartTime, e.StartTime.Add(current.Duration()), e.ID)) > 0 {
		return domain.Event{}, store.ErrConflict
	}

	// category and duration are fixed at creation
	current.StartTime = e.StartTime
	current.Notes = e.Notes
	current.UpdatedAt = t.s.now()
	t.staged[current.ID] = current
	return current, nil
}

func (t *eventTx) lookup(id uuid.UUID) (domain.Event, bool) {
	if e, ok := t.staged[id]; ok {
		return e, true
	}
	e, ok := t.s.events[id]
	return e, ok
}

func findOverlapping(base, staged map[uuid.UUID]domain.Event, categoryID int64, start, end time.Time, excludeID uuid.UUID) []domain.Event {
	candidates := make([]domain.Event, 0, len(base)+len(staged))
	for id, e := range base {
		if _, shadowed := staged[id]; shadowed {
			continue
		}
		candidates = append(candidates, e)
	}
	for _, e := range staged {
		candidates = append(candidates, e)
	}
	out := domain.FindConflicts(candidates, categoryID, start, end, excludeID)
	sortEvents(out)
	return out
}
