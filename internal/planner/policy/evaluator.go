// Package policy evaluates site-specific supplementary guardrails written in Rego.
// Policies may only block SKUs and append notes; they can never add plan items.
package policy

import (
	"context"

	checkindomain "bioadaptive/backend/internal/checkin/domain"
	plandomain "bioadaptive/backend/internal/plan/domain"
	profiledomain "bioadaptive/backend/internal/profile/domain"
)

// Input is the document exposed to policies as `input`.
type Input struct {
	Profile *profiledomain.UserProfile
	Checkin *checkindomain.DailyCheckin
	Scores  plandomain.Scores
	Items   []plandomain.PlanItem
}

// Decision is what the supplementary policies asked for.
type Decision struct {
	BlockedSKUs []plandomain.SKU
	Notes       []string
}

// Evaluator evaluates supplementary guardrail policies.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (Decision, error)
}

// Apply removes items whose SKU is blocked and returns the kept items and how many were dropped.
// Unknown SKUs in the decision are ignored.
func Apply(items []plandomain.PlanItem, d Decision) ([]plandomain.PlanItem, int) {
	if len(d.BlockedSKUs) == 0 {
		return items, 0
	}
	blocked := make(map[plandomain.SKU]bool, len(d.BlockedSKUs))
	for _, s := range d.BlockedSKUs {
		blocked[s] = true
	}
	kept := make([]plandomain.PlanItem, 0, len(items))
	for _, it := range items {
		if !blocked[it.SKU] {
			kept = append(kept, it)
		}
	}
	return kept, len(items) - len(kept)
}
