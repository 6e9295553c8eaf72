package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/store"
)

const eventEndExpr = "(start_time + make_interval(mins => duration_minutes))"

type EventRepo struct {
	db *bun.DB
}

func NewEventRepo(db *bun.DB) *EventRepo {
	return &EventRepo{db: db}
}

type eventTx struct {
	tx bun.Tx
}

func (r *EventRepo) Get(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	var e domain.Event
	err := r.db.NewSelect().Model(&e).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return domain.Event{}, mapError(err)
	}
	return e, nil
}

func (r *EventRepo) FindByWindow(ctx context.Context, q store.WindowQuery) ([]domain.Event, error) {
	if q.MatchesNothing() {
		return []domain.Event{}, nil
	}

	var rows []domain.Event
	sel := r.db.NewSelect().Model(&rows)
	if q.CategoryIDs != nil {
		sel = sel.Where("category_id IN (?)", bun.In(q.CategoryIDs))
	}
	if q.BookingEmail != "" {
		sel = sel.Where("lower(booking_email) = lower(?)", q.BookingEmail)
	}
	switch q.Window.Mode {
	case domain.WindowDay:
		from, to := q.Window.Bounds()
		sel = sel.Where("start_time >= ?", from).Where("start_time < ?", to)
	case domain.WindowUpcoming:
		sel = sel.Where(eventEndExpr+" > ?", q.Window.Now)
	case domain.WindowPast:
		sel = sel.Where(eventEndExpr+" <= ?", q.Window.Now)
	}

	if err := sel.OrderExpr("start_time ASC, id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.Event{}
	}
	return rows, nil
}

func (r *EventRepo) FindOverlapping(ctx context.Context, categoryID int64, start, end time.Time, excludeID uuid.UUID) ([]domain.Event, error) {
	return findOverlapping(ctx, r.db, categoryID, start, end, excludeID)
}

func (r *EventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Event)(nil)).
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

func (r *EventRepo) InCategoryTransaction(ctx context.Context, categoryID int64, fn func(ctx context.Context, tx store.EventTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCategory(ctx, tx, categoryID); err != nil {
			return err
		}
		return fn(ctx, eventTx{tx: tx})
	})
}

func lockCategory(ctx context.Context, tx bun.Tx, categoryID int64) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "category:"+strconv.FormatInt(categoryID, 10)).Exec(ctx)
	return err
}

// findOverlapping expresses the two conflict clauses of domain.Conflicts in
// SQL so the check runs against the rows visible to db.
func findOverlapping(ctx context.Context, db bun.IDB, categoryID int64, start, end time.Time, excludeID uuid.UUID) ([]domain.Event, error) {
	var rows []domain.Event
	sel := db.NewSelect().
		Model(&rows).
		Where("category_id = ?", categoryID).
		Where("((start_time < ? AND "+eventEndExpr+" > ?) OR (start_time >= ? AND start_time < ?))", start, start, start, end)
	if excludeID != uuid.Nil {
		sel = sel.Where("id <> ?", excludeID)
	}
	if err := sel.OrderExpr("start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t eventTx) FindOverlapping(ctx context.Context, categoryID int64, start, end time.Time, excludeID uuid.UUID) ([]domain.Event, error) {
	return findOverlapping(ctx, t.tx, categoryID, start, end, excludeID)
}

func (t eventTx) CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	m := domain.Event{
		ID:              e.ID,
		CategoryID:      e.CategoryID,
		BookingName:     e.BookingName,
		BookingEmail:    e.BookingEmail,
		StartTime:       e.StartTime,
		DurationMinutes: e.DurationMinutes,
		Notes:           e.Notes,
	}
	if _, err := t.tx.NewInsert().Model(&m).Returning("*").Exec(ctx); err != nil {
		return domain.Event{}, mapError(err)
	}
	return m, nil
}

// UpdateEvent rewrites start time and notes only. Category and duration are
// fixed at creation.
func (t eventTx) UpdateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	m := domain.Event{
		ID:        e.ID,
		StartTime: e.StartTime,
		Notes:     e.Notes,
	}
	err := t.tx.NewUpdate().
		Model(&m).
		Column("start_time", "notes", "updated_at").
		WherePK().
		Returning("*").
		Scan(ctx)
	if err != nil {
		return domain.Event{}, mapError(err)
	}
	return m, nil
}
