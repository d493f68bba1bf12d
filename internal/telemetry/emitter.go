// Package telemetry defines planner events exported to the observability backend.
package telemetry

import (
	"context"
	"time"
)

// EventPlanBuilt is emitted once per persisted daily plan.
const EventPlanBuilt = "daily_plan.built"

// PlanEvent describes one built plan. Metadata is an optional JSON body.
type PlanEvent struct {
	EventType string
	UserID    string
	PlanID    string
	Date      string
	Phenotype string
	Items     int
	Removed   int
	Metadata  []byte
	CreatedAt time.Time
}

// EventEmitter emits planner events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *PlanEvent) error
}
