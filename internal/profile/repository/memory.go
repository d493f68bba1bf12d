package repository

import (
	"context"
	"sync"

	"bioadaptive/backend/internal/profile/domain"
)

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.UserProfile
}

// NewMemoryRepository returns an empty in-memory profile repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.UserProfile)}
}

func (r *MemoryRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.m[userID].Clone(), nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, p *domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[p.ID] = p.Clone()
	return nil
}
