package memory

import (
	"context"
	"sort"

	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/store"
)

type OwnershipRepo struct {
	s *Store
}

func (r *OwnershipRepo) ListOwners(ctx context.Context) ([]domain.CategoryOwner, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.CategoryOwner, len(r.s.owners))
	copy(out, r.s.owners)
	return out, nil
}

func (r *OwnershipRepo) CategoriesOwnedBy(ctx context.Context, email string) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]int64, 0)
	for _, o := range r.s.owners {
		if o.OwnerEmail == email {
			out = append(out, o.CategoryID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *OwnershipRepo) AddOwner(ctx context.Context, categoryID int64, email string) (domain.CategoryOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[categoryID]; !ok {
		return domain.CategoryOwner{}, store.ErrNotFound
	}
	for _, o := range r.s.owners {
		if o.CategoryID == categoryID && o.OwnerEmail == email {
			return o, nil
		}
	}
	r.s.nextOwnerID++
	o := domain.CategoryOwner{
		ID:         r.s.nextOwnerID,
		CategoryID: categoryID,
		OwnerEmail: email,
		CreatedAt:  r.s.now(),
	}
	r.s.owners = append(r.s.owners, o)
	return o, nil
}

func (r *OwnershipRepo) RemoveOwner(ctx context.Context, categoryID int64, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := -1
	for i, o := range r.s.owners {
		if o.CategoryID == categoryID && o.OwnerEmail == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}
	if r.s.ownerCount(categoryID) <= 1 {
		return store.ErrLastOwner
	}
	r.s.owners = append(r.s.owners[:idx], r.s.owners[idx+1:]...)
	return nil
}

func (r *OwnershipRepo) RemoveLecturer(ctx context.Context, email string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.owners {
		if o.OwnerEmail == email && r.s.ownerCount(o.CategoryID) <= 1 {
			return 0, store.ErrLastOwner
		}
	}

	kept := make([]domain.CategoryOwner, 0, len(r.s.owners))
	removed := 0
	for _, o := range r.s.owners {
		if o.OwnerEmail == email {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	r.s.owners = kept
	return removed, nil
}

func (s *Store) ownerCount(categoryID int64) int {
	n := 0
	for _, o := range s.owners {
		if o.CategoryID == categoryID {
			n++
		}
	}
	return n
}
