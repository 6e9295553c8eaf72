package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/store"
)

type CategoryRepo struct {
	db *bun.DB
}

func NewCategoryRepo(db *bun.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows := []domain.Category{}
	if err := r.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CategoryRepo) Get(ctx context.Context, id int64) (domain.Category, error) {
	var c domain.Category
	if err := r.db.NewSelect().Model(&c).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Category{}, mapError(err)
	}
	return c, nil
}

func (r *CategoryRepo) Create(ctx context.Context, c domain.Category) (domain.Category, error) {
	m := domain.Category{
		Name:            c.Name,
		DurationMinutes: c.DurationMinutes,
		Description:     c.Description,
	}
	if _, err := r.db.NewInsert().Model(&m).Returning("*").Exec(ctx); err != nil {
		return domain.Category{}, mapError(err)
	}
	return m, nil
}

func (r *CategoryRepo) Update(ctx context.Context, c domain.Category) (domain.Category, error) {
	m := domain.Category{
		ID:              c.ID,
		Name:            c.Name,
		DurationMinutes: c.DurationMinutes,
		Description:     c.Description,
	}
	err := r.db.NewUpdate().
		Model(&m).
		Column("name", "duration_minutes", "description", "updated_at").
		WherePK().
		Returning("*").
		Scan(ctx)
	if err != nil {
		return domain.Category{}, mapError(err)
	}
	return m, nil
}

// Delete relies on ON DELETE CASCADE for events and owner edges.
func (r *CategoryRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*domain.Category)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
