package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

const (
	MinCategoryDurationMinutes = 1
	MaxCategoryDurationMinutes = 480
	MaxCategoryNameLength      = 100
	MaxCategoryDescLength      = 500
)

type Category struct {
	bun.BaseModel `bun:"table:event_categories"`

	ID              int64     `bun:"id,pk,autoincrement"`
	Name            string    `bun:"name,notnull"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	Description     string    `bun:"description"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

func (c *Category) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		c.UpdatedAt = now
	}
	return nil
}

// CategoryOwner is one (lecturer, category) ownership edge.
type CategoryOwner struct {
	bun.BaseModel `bun:"table:category_owners"`

	ID         int64     `bun:"id,pk,autoincrement"`
	CategoryID int64     `bun:"category_id,notnull"`
	OwnerEmail string    `bun:"owner_email,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (o *CategoryOwner) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	return nil
}
