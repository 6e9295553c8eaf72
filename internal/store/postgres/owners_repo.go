package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/store"
)

const ownersLockKey = "category-owners"

type OwnershipRepo struct {
	db *bun.DB
}

func NewOwnershipRepo(db *bun.DB) *OwnershipRepo {
	return &OwnershipRepo{db: db}
}

func (r *OwnershipRepo) ListOwners(ctx context.Context) ([]domain.CategoryOwner, error) {
	rows := []domain.CategoryOwner{}
	if err := r.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *OwnershipRepo) CategoriesOwnedBy(ctx context.Context, email string) ([]int64, error) {
	ids := []int64{}
	err := r.db.NewSelect().
		Model((*domain.CategoryOwner)(nil)).
		Column("category_id").
		Where("owner_email = ?", email).
		OrderExpr("category_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *OwnershipRepo) AddOwner(ctx context.Context, categoryID int64, email string) (domain.CategoryOwner, error) {
	var out domain.CategoryOwner
	err := r.inOwnersTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		m := domain.CategoryOwner{CategoryID: categoryID, OwnerEmail: email}
		_, err := tx.NewInsert().
			Model(&m).
			On("CONFLICT (category_id, owner_email) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return mapError(err)
		}
		return tx.NewSelect().
			Model(&out).
			Where("category_id = ?", categoryID).
			Where("owner_email = ?", email).
			Limit(1).
			Scan(ctx)
	})
	if err != nil {
		return domain.CategoryOwner{}, mapError(err)
	}
	return out, nil
}

func (r *OwnershipRepo) RemoveOwner(ctx context.Context, categoryID int64, email string) error {
	return r.inOwnersTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		owners, err := tx.NewSelect().
			Model((*domain.CategoryOwner)(nil)).
			Where("category_id = ?", categoryID).
			Count(ctx)
		if err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*domain.CategoryOwner)(nil)).
			Where("category_id = ?", categoryID).
			Where("owner_email = ?", email).
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
		if owners <= 1 {
			return store.ErrLastOwner
		}
		return nil
	})
}

func (r *OwnershipRepo) RemoveLecturer(ctx context.Context, email string) (int, error) {
	var removed int
	err := r.inOwnersTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		var soleOwned int
		err := tx.NewRaw(`SELECT count(*) FROM category_owners o
			WHERE o.owner_email = ?
			AND NOT EXISTS (
				SELECT 1 FROM category_owners x
				WHERE x.category_id = o.category_id AND x.owner_email <> o.owner_email
			)`, email).Scan(ctx, &soleOwned)
		if err != nil {
			return err
		}
		if soleOwned > 0 {
			return store.ErrLastOwner
		}

		res, err := tx.NewDelete().
			Model((*domain.CategoryOwner)(nil)).
			Where("owner_email = ?", email).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// inOwnersTransaction serializes ownership edits so the last-owner checks
// cannot interleave.
func (r *OwnershipRepo) inOwnersTransaction(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", ownersLockKey).Exec(ctx); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}
