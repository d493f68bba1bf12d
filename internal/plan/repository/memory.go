package repository

import (
	"context"
	"sort"
	"sync"

	"bioadaptive/backend/internal/plan/domain"
)

type dayKey struct {
	userID string
	date   string
}

// MemoryRepository is an in-memory Repository for local single-user runs and tests.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[dayKey]*domain.DailyPlan
}

// NewMemoryRepository returns an empty in-memory plan repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[dayKey]*domain.DailyPlan)}
}

func (r *MemoryRepository) Get(ctx context.Context, userID, date string) (*domain.DailyPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.m[dayKey{userID, date}].Clone(), nil
}

func (r *MemoryRepository) ListBefore(ctx context.Context, userID, date string, limit int) ([]*domain.DailyPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.DailyPlan
	for k, p := range r.m {
		if k.userID == userID && k.date < date {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, p *domain.DailyPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[dayKey{p.UserID, p.Date}] = p.Clone()
	return nil
}
