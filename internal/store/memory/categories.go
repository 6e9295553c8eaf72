package memory

import (
	"context"
	"sort"
	"strings"

	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/store"
)

type CategoryRepo struct {
	s *Store
}

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CategoryRepo) Get(ctx context.Context, id int64) (domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return domain.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (r *CategoryRepo) Create(ctx context.Context, c domain.Category) (domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.nameTaken(c.Name, 0) {
		return domain.Category{}, store.ErrDuplicateName
	}
	r.s.nextCategoryID++
	now := r.s.now()
	c.ID = r.s.nextCategoryID
	c.CreatedAt = now
	c.UpdatedAt = now
	r.s.categories[c.ID] = c
	return c, nil
}

func (r *CategoryRepo) Update(ctx context.Context, c domain.Category) (domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.categories[c.ID]
	if !ok {
		return domain.Category{}, store.ErrNotFound
	}
	if r.s.nameTaken(c.Name, c.ID) {
		return domain.Category{}, store.ErrDuplicateName
	}
	current.Name = c.Name
	current.DurationMinutes = c.DurationMinutes
	current.Description = c.Description
	current.UpdatedAt = r.s.now()
	r.s.categories[c.ID] = current
	return current, nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.categories, id)
	for eid, e := range r.s.events {
		if e.CategoryID == id {
			delete(r.s.events, eid)
		}
	}
	kept := r.s.owners[:0]
	for _, o := range r.s.owners {
		if o.CategoryID != id {
			kept = append(kept, o)
		}
	}
	r.s.owners = kept
	return nil
}

// nameTaken compares names the way the unique index on lower(btrim(name))
// does. Callers hold the lock.
func (s *Store) nameTaken(name string, excludeID int64) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	for id, c := range s.categories {
		if id == excludeID {
			continue
		}
		if strings.ToLower(strings.TrimSpace(c.Name)) == key {
			return true
		}
	}
	return false
}
