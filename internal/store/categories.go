package store

import (
	"context"

	"slotbook/backend/internal/domain"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, id int64) (domain.Category, error)
	Create(ctx context.Context, c domain.Category) (domain.Category, error)
	Update(ctx context.Context, c domain.Category) (domain.Category, error)
	// Delete removes the category together with its events and owner edges.
	Delete(ctx context.Context, id int64) error
}

type OwnershipRepository interface {
	ListOwners(ctx context.Context) ([]domain.CategoryOwner, error)
	CategoriesOwnedBy(ctx context.Context, email string) ([]int64, error)
	AddOwner(ctx context.Context, categoryID int64, email string) (domain.CategoryOwner, error)
	// RemoveOwner fails with ErrLastOwner when email is the only owner left.
	RemoveOwner(ctx context.Context, categoryID int64, email string) error
	// RemoveLecturer drops every edge of email atomically and returns how
	// many were removed. Nothing is removed if any category would end up
	// without an owner.
	RemoveLecturer(ctx context.Context, email string) (int, error)
}
