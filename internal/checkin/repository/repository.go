package repository

import (
	"context"

	"bioadaptive/backend/internal/checkin/domain"
)

// Repository defines persistence for daily check-ins. One record per (user, date).
type Repository interface {
	// Get returns the check-in for userID on date, or nil if none exists.
	Get(ctx context.Context, userID, date string) (*domain.DailyCheckin, error)
	// ListBefore returns up to limit check-ins dated strictly before date, most recent first.
	ListBefore(ctx context.Context, userID, date string, limit int) ([]*domain.DailyCheckin, error)
	// Upsert inserts c or replaces the existing record for (c.UserID, c.Date).
	Upsert(ctx context.Context, c *domain.DailyCheckin) error
}
