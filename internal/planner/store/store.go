// Package store groups the profile, check-in and plan repositories behind the
// read/write surface the planner needs, including the atomic end-of-day write.
package store

import (
	"context"

	checkindomain "bioadaptive/backend/internal/checkin/domain"
	plandomain "bioadaptive/backend/internal/plan/domain"
	profiledomain "bioadaptive/backend/internal/profile/domain"
)

// Store is the persistence surface of the planner service.
type Store interface {
	// GetProfile returns the profile for userID, or nil if none exists.
	GetProfile(ctx context.Context, userID string) (*profiledomain.UserProfile, error)
	SaveProfile(ctx context.Context, p *profiledomain.UserProfile) error
	// CheckinHistory returns up to maxDays check-ins dated strictly before date, newest first.
	CheckinHistory(ctx context.Context, userID, date string, maxDays int) ([]*checkindomain.DailyCheckin, error)
	// PlanHistory returns up to maxDays plans dated strictly before date, newest first.
	PlanHistory(ctx context.Context, userID, date string, maxDays int) ([]*plandomain.DailyPlan, error)
	// GetPlan returns the plan for (userID, date), or nil if none exists.
	GetPlan(ctx context.Context, userID, date string) (*plandomain.DailyPlan, error)
	// SaveDay upserts the check-in and its plan together; either both are written or neither.
	SaveDay(ctx context.Context, c *checkindomain.DailyCheckin, p *plandomain.DailyPlan) error
}
