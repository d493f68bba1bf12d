package engine

import (
	checkindomain "bioadaptive/backend/internal/checkin/domain"
	plandomain "bioadaptive/backend/internal/plan/domain"
	profiledomain "bioadaptive/backend/internal/profile/domain"
)

// Input is everything the pipeline reads for one day.
// Histories are strictly prior to Checkin.Date and sorted by date descending.
type Input struct {
	Profile        *profiledomain.UserProfile
	Checkin        *checkindomain.DailyCheckin
	CheckinHistory []*checkindomain.DailyCheckin
	PlanHistory    []*plandomain.DailyPlan
}

// Result is an ordered item list plus the notes produced alongside it.
type Result struct {
	Items []plandomain.PlanItem
	Notes []string
}

// Outcome is the full pipeline output for one day.
type Outcome struct {
	Scores    plandomain.Scores
	Phenotype plandomain.Phenotype
	Items     []plandomain.PlanItem
	Notes     []string
	// Removed counts candidate items dropped by guardrails.
	Removed int
}

// Engine runs the planning pipeline with a fixed configuration. It is stateless and safe
// for concurrent use.
type Engine struct {
	cfg  Config
	rank map[plandomain.SKU]int
}

// New returns an Engine for cfg. cfg is expected to have passed Validate.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, rank: cfg.skuRank()}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate runs scores → phenotype → candidate plan → guardrails.
func (e *Engine) Evaluate(in Input) Outcome {
	scores := e.Scores(in)
	phenotype := e.Phenotype(in.PlanHistory)
	candidate := e.CandidatePlan(scores, in)
	guarded := e.Guard(candidate.Items, in)

	notes := make([]string, 0, len(candidate.Notes)+len(guarded.Notes))
	notes = append(notes, candidate.Notes...)
	notes = append(notes, guarded.Notes...)
	return Outcome{
		Scores:    scores,
		Phenotype: phenotype,
		Items:     guarded.Items,
		Notes:     notes,
		Removed:   len(candidate.Items) - len(guarded.Items),
	}
}

// capCheckins returns at most n non-nil entries from the head of list.
func capCheckins(list []*checkindomain.DailyCheckin, n int) []*checkindomain.DailyCheckin {
	out := make([]*checkindomain.DailyCheckin, 0, n)
	for _, c := range list {
		if len(out) == n {
			break
		}
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func capPlans(list []*plandomain.DailyPlan, n int) []*plandomain.DailyPlan {
	out := make([]*plandomain.DailyPlan, 0, n)
	for _, p := range list {
		if len(out) == n {
			break
		}
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
