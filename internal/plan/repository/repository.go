package repository

import (
	"context"

	"bioadaptive/backend/internal/plan/domain"
)

// Repository defines persistence for daily plans. At most one live plan per (user, date);
// recomputing a day overwrites that day's record.
type Repository interface {
	// Get returns the plan for userID on date, or nil if none exists.
	Get(ctx context.Context, userID, date string) (*domain.DailyPlan, error)
	// ListBefore returns up to limit plans dated strictly before date, most recent first.
	ListBefore(ctx context.Context, userID, date string, limit int) ([]*domain.DailyPlan, error)
	// Upsert inserts p or replaces the existing record for (p.UserID, p.Date).
	Upsert(ctx context.Context, p *domain.DailyPlan) error
}
