package repository

import (
	"context"
	"sort"
	"sync"

	"bioadaptive/backend/internal/checkin/domain"
)

type dayKey struct {
	userID string
	date   string
}

// MemoryRepository is an in-memory Repository for local single-user runs and tests.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[dayKey]*domain.DailyCheckin
}

// NewMemoryRepository returns an empty in-memory check-in repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[dayKey]*domain.DailyCheckin)}
}

// Get returns a copy of the stored check-in, or nil.
func (r *MemoryRepository) Get(ctx context.Context, userID, date string) (*domain.DailyCheckin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.m[dayKey{userID, date}].Clone(), nil
}

// ListBefore returns copies of up to limit check-ins before date, newest first.
func (r *MemoryRepository) ListBefore(ctx context.Context, userID, date string, limit int) ([]*domain.DailyCheckin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.DailyCheckin
	for k, c := range r.m {
		if k.userID == userID && k.date < date {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Upsert stores a copy of c, replacing any same-day record.
func (r *MemoryRepository) Upsert(ctx context.Context, c *domain.DailyCheckin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[dayKey{c.UserID, c.Date}] = c.Clone()
	return nil
}
