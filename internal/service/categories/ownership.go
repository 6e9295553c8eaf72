package categories

import (
	"context"
	"errors"
	"strings"

	"slotbook/backend/internal/auth"
	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/service"
	"slotbook/backend/internal/store"
)

// CategoriesOwnedBy answers which categories a lecturer owns. It reads the
// store on every call so ownership edits apply to the next request.
func (s *Service) CategoriesOwnedBy(ctx context.Context, email string) ([]int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return []int64{}, nil
	}
	return s.owners.CategoriesOwnedBy(ctx, email)
}

func (s *Service) LecturerCategories(ctx context.Context, caller auth.Status) ([]domain.Category, error) {
	if !caller.IsLecturer() {
		return nil, service.Forbidden("only lecturers have owned categories")
	}
	ids, err := s.CategoriesOwnedBy(ctx, caller.Email)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	owned := make(map[int64]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	out := make([]domain.Category, 0, len(ids))
	for _, c := range all {
		if owned[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) ListOwners(ctx context.Context, caller auth.Status) ([]domain.CategoryOwner, error) {
	if !caller.IsAdmin() {
		return nil, service.Forbidden("only admins can list category owners")
	}
	return s.owners.ListOwners(ctx)
}

// AddOwner is idempotent.
func (s *Service) AddOwner(ctx context.Context, caller auth.Status, categoryID int64, email string) (domain.CategoryOwner, error) {
	if !caller.IsAdmin() {
		return domain.CategoryOwner{}, service.Forbidden("only admins can assign category owners")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.CategoryOwner{}, err
	}
	o, err := s.owners.AddOwner(ctx, categoryID, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.CategoryOwner{}, service.NotFound("category", categoryID)
	}
	return o, err
}

func (s *Service) RemoveOwner(ctx context.Context, caller auth.Status, categoryID int64, email string) error {
	if !caller.IsAdmin() {
		return service.Forbidden("only admins can remove category owners")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	err = s.owners.RemoveOwner(ctx, categoryID, email)
	switch {
	case errors.Is(err, store.ErrLastOwner):
		return service.Invalid("email", "lecturer is the only owner of this category")
	case errors.Is(err, store.ErrNotFound):
		return service.NotFound("category owner", email)
	}
	return err
}

// RemoveLecturer drops every ownership edge of email, or none of them.
func (s *Service) RemoveLecturer(ctx context.Context, caller auth.Status, email string) (int, error) {
	if !caller.IsAdmin() {
		return 0, service.Forbidden("only admins can remove lecturers")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return 0, err
	}
	n, err := s.owners.RemoveLecturer(ctx, email)
	if errors.Is(err, store.ErrLastOwner) {
		return 0, service.Invalid("email", "lecturer is the only owner of at least one category")
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, service.NotFound("lecturer", email)
	}
	return n, nil
}
