package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"slotbook/backend/internal/domain"
)

// Store keeps events, categories and ownership edges in process memory. It
// backs local runs (store.driver=memory) and the service tests.
type Store struct {
	mu sync.RWMutex

	events     map[uuid.UUID]domain.Event
	categories map[int64]domain.Category
	owners     []domain.CategoryOwner

	nextCategoryID int64
	nextOwnerID    int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		events:     make(map[uuid.UUID]domain.Event),
		categories: make(map[int64]domain.Category),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Events() *EventRepo {
	return &EventRepo{s: s}
}

func (s *Store) Categories() *CategoryRepo {
	return &CategoryRepo{s: s}
}

func (s *Store) Owners() *OwnershipRepo {
	return &OwnershipRepo{s: s}
}

func sortEvents(events []domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID.String() < events[j].ID.String()
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})
}
