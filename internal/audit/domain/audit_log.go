package domain

import "time"

// Audit actions recorded by the planner.
const (
	ActionBaselineUpdated = "baseline.updated"
	ActionDailyPlanBuilt  = "daily_plan.built"
)

// AuditLog represents one audit event about a user's records.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string // e.g. "profile" or "plan:2024-06-01"
	Metadata  string // JSON, may be empty
	CreatedAt time.Time
}
