package repository

import (
	"context"

	"bioadaptive/backend/internal/profile/domain"
)

// Repository defines persistence for user profiles. Single record per user, no history.
type Repository interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	Upsert(ctx context.Context, p *domain.UserProfile) error
}
