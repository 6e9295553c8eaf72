package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"slotbook/backend/internal/store"
)

const (
	pgExclusionViolation  = "23P01"
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	constraintNoOverlap    = "events_no_overlap"
	constraintCategoryName = "event_categories_name_key"
)

// mapError translates driver errors into store sentinels. Unknown errors are
// returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgExclusionViolation:
		if pgErr.ConstraintName == constraintNoOverlap {
			return store.ErrConflict
		}
	case pgUniqueViolation:
		if pgErr.ConstraintName == constraintCategoryName {
			return store.ErrDuplicateName
		}
		return store.ErrConflict
	case pgForeignKeyViolation:
		return store.ErrNotFound
	}
	return err
}
