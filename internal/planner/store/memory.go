package store

import (
	"context"
	"sync"

	checkindomain "bioadaptive/backend/internal/checkin/domain"
	checkinrepo "bioadaptive/backend/internal/checkin/repository"
	plandomain "bioadaptive/backend/internal/plan/domain"
	planrepo "bioadaptive/backend/internal/plan/repository"
	profiledomain "bioadaptive/backend/internal/profile/domain"
	profilerepo "bioadaptive/backend/internal/profile/repository"
)

// MemoryStore is a Store kept in process memory. Readers never observe a
// check-in without its plan.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles *profilerepo.MemoryRepository
	checkins *checkinrepo.MemoryRepository
	plans    *planrepo.MemoryRepository
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: profilerepo.NewMemoryRepository(),
		checkins: checkinrepo.NewMemoryRepository(),
		plans:    planrepo.NewMemoryRepository(),
	}
}

func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*profiledomain.UserProfile, error) {
	return s.profiles.Get(ctx, userID)
}

func (s *MemoryStore) SaveProfile(ctx context.Context, p *profiledomain.UserProfile) error {
	return s.profiles.Upsert(ctx, p)
}

func (s *MemoryStore) CheckinHistory(ctx context.Context, userID, date string, maxDays int) ([]*checkindomain.DailyCheckin, error) {
	if maxDays <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkins.ListBefore(ctx, userID, date, maxDays)
}

func (s *MemoryStore) PlanHistory(ctx context.Context, userID, date string, maxDays int) ([]*plandomain.DailyPlan, error) {
	if maxDays <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plans.ListBefore(ctx, userID, date, maxDays)
}

func (s *MemoryStore) GetPlan(ctx context.Context, userID, date string) (*plandomain.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plans.Get(ctx, userID, date)
}

// GetCheckin returns the stored check-in for (userID, date), or nil.
func (s *MemoryStore) GetCheckin(ctx context.Context, userID, date string) (*checkindomain.DailyCheckin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkins.Get(ctx, userID, date)
}

func (s *MemoryStore) SaveDay(ctx context.Context, c *checkindomain.DailyCheckin, p *plandomain.DailyPlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkins.Upsert(ctx, c); err != nil {
		return err
	}
	return s.plans.Upsert(ctx, p)
}
