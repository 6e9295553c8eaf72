package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	MaxBookingNameLength  = 100
	MaxBookingEmailLength = 50
	MaxNotesLength        = 500
)

// Event is a booked slot in a category. DurationMinutes is copied from the
// category when the event is created and never follows later category edits.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	CategoryID      int64     `bun:"category_id,notnull"`
	BookingName     string    `bun:"booking_name,notnull"`
	BookingEmail    string    `bun:"booking_email,notnull"`
	StartTime       time.Time `bun:"start_time,notnull"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	Notes           string    `bun:"notes"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

func (e Event) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// EndTime is always derived from StartTime and DurationMinutes.
func (e Event) EndTime() time.Time {
	return e.StartTime.Add(e.Duration())
}

func (e *Event) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}
