package categories

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"slotbook/backend/internal/auth"
	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/service"
	"slotbook/backend/internal/store"
)

type Service struct {
	repo   store.CategoryRepository
	owners store.OwnershipRepository
}

func NewService(repo store.CategoryRepository, owners store.OwnershipRepository) *Service {
	return &Service{repo: repo, owners: owners}
}

type CreateInput struct {
	Name            string
	DurationMinutes int
	Description     string
}

// UpdateInput fields left nil are not changed.
type UpdateInput struct {
	Name            *string
	DurationMinutes *int
	Description     *string
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Category, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Category{}, service.NotFound("category", id)
	}
	return c, err
}

func (s *Service) Create(ctx context.Context, caller auth.Status, in CreateInput) (domain.Category, error) {
	if !caller.IsAdmin() {
		return domain.Category{}, service.Forbidden("only admins can create categories")
	}

	c := domain.Category{
		Name:            strings.TrimSpace(in.Name),
		DurationMinutes: in.DurationMinutes,
		Description:     strings.TrimSpace(in.Description),
	}
	if err := validateCategory(c); err != nil {
		return domain.Category{}, err
	}

	created, err := s.repo.Create(ctx, c)
	if errors.Is(err, store.ErrDuplicateName) {
		return domain.Category{}, service.Invalid("name", "category name must be unique")
	}
	return created, err
}

// Update never touches the events already booked in the category; their
// duration was fixed when they were created.
func (s *Service) Update(ctx context.Context, caller auth.Status, id int64, in UpdateInput) (domain.Category, error) {
	if !caller.IsAdmin() {
		return domain.Category{}, service.Forbidden("only admins can edit categories")
	}
	if in.Name == nil && in.DurationMinutes == nil && in.Description == nil {
		return domain.Category{}, service.Invalid("", "at least one field is required")
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.DurationMinutes != nil {
		c.DurationMinutes = *in.DurationMinutes
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if err := validateCategory(c); err != nil {
		return domain.Category{}, err
	}

	updated, err := s.repo.Update(ctx, c)
	switch {
	case errors.Is(err, store.ErrDuplicateName):
		return domain.Category{}, service.Invalid("name", "category name must be unique")
	case errors.Is(err, store.ErrNotFound):
		return domain.Category{}, service.NotFound("category", id)
	}
	return updated, err
}

func (s *Service) Delete(ctx context.Context, caller auth.Status, id int64) error {
	if !caller.IsAdmin() {
		return service.Forbidden("only admins can delete categories")
	}
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return service.NotFound("category", id)
	}
	return err
}

func validateCategory(c domain.Category) error {
	if c.Name == "" {
		return service.Invalid("name", "name is required")
	}
	if utf8.RuneCountInString(c.Name) > domain.MaxCategoryNameLength {
		return service.Invalid("name", "name is too long")
	}
	if c.DurationMinutes < domain.MinCategoryDurationMinutes || c.DurationMinutes > domain.MaxCategoryDurationMinutes {
		return service.Invalid("durationMinutes", "durationMinutes must be between 1 and 480")
	}
	if utf8.RuneCountInString(c.Description) > domain.MaxCategoryDescLength {
		return service.Invalid("description", "description is too long")
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", service.Invalid("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", service.Invalid("email", "email is not a valid address")
	}
	return email, nil
}
