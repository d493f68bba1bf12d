package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"bioadaptive/backend/internal/audit"
	auditdomain "bioadaptive/backend/internal/audit/domain"
	checkindomain "bioadaptive/backend/internal/checkin/domain"
	plandomain "bioadaptive/backend/internal/plan/domain"
	"bioadaptive/backend/internal/planner/engine"
	"bioadaptive/backend/internal/planner/policy"
	"bioadaptive/backend/internal/planner/store"
	profiledomain "bioadaptive/backend/internal/profile/domain"
	"bioadaptive/backend/internal/telemetry"
)

const instrumentationName = "bioadaptive/planner"

// latestDate bounds "all plans so far" queries; dates compare as YYYY-MM-DD.
const latestDate = "9999-12-31"

// Sentinel errors for the planner service.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrPlanNotFound    = errors.New("plan not found")
	// ErrPersist wraps any failure to write the day's check-in and plan. Nothing was written.
	ErrPersist = errors.New("persist daily plan")
)

// PlannerService builds, persists and reads daily plans.
type PlannerService struct {
	store       store.Store
	engine      *engine.Engine
	guardrails  policy.Evaluator
	audit       audit.AuditLogger
	emitter     telemetry.EventEmitter
	logger      *zap.Logger
	historyDays int

	newID func() string
	nowF  func() time.Time

	tracer          trace.Tracer
	plansBuilt      metric.Int64Counter
	guardrailDrops  metric.Int64Counter
	historyFailures metric.Int64Counter
}

// NewPlannerService returns a PlannerService. guardrails, auditLogger, emitter and logger may be nil.
// History windows follow the engine's HistoryDays threshold.
func NewPlannerService(
	st store.Store,
	eng *engine.Engine,
	guardrails policy.Evaluator,
	auditLogger audit.AuditLogger,
	emitter telemetry.EventEmitter,
	logger *zap.Logger,
) *PlannerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PlannerService{
		store:       st,
		engine:      eng,
		guardrails:  guardrails,
		audit:       auditLogger,
		emitter:     emitter,
		logger:      logger,
		historyDays: eng.Config().Thresholds.HistoryDays,
		newID:       uuid.NewString,
		nowF:        func() time.Time { return time.Now().UTC() },
		tracer:      otel.Tracer(instrumentationName),
	}
	meter := otel.Meter(instrumentationName)
	s.plansBuilt = counter(meter, logger, "planner.plans_built", "Daily plans built and persisted.")
	s.guardrailDrops = counter(meter, logger, "planner.guardrail_removals", "Plan items removed by guardrails.")
	s.historyFailures = counter(meter, logger, "planner.history_read_failures", "History reads that degraded to empty.")
	return s
}

func counter(meter metric.Meter, logger *zap.Logger, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		logger.Warn("planner: create counter", zap.String("name", name), zap.Error(err))
	}
	return c
}

// BuildDailyPlan computes the plan for profile's check-in and persists the check-in and plan
// together, replacing any earlier record for the same day. checkin.UserID defaults to profile.ID.
// Invalid input fails fast; history read failures degrade to empty history; write failures
// return an error wrapping ErrPersist and leave no partial state.
func (s *PlannerService) BuildDailyPlan(ctx context.Context, profile *profiledomain.UserProfile, checkin *checkindomain.DailyCheckin) (*plandomain.DailyPlan, error) {
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	if checkin == nil {
		return nil, fmt.Errorf("%w: missing check-in", checkindomain.ErrInvalidCheckin)
	}
	profile = profile.Clone()
	checkin = checkin.Clone()
	if checkin.UserID == "" {
		checkin.UserID = profile.ID
	}
	if checkin.UserID != profile.ID {
		return nil, &checkindomain.ValidationError{Field: "user_id", Value: checkin.UserID}
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := checkin.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "planner.BuildDailyPlan", trace.WithAttributes(
		attribute.String("user_id", profile.ID),
		attribute.String("date", checkin.Date),
	))
	defer span.End()

	in := engine.Input{
		Profile:        profile,
		Checkin:        checkin,
		CheckinHistory: s.checkinHistory(ctx, profile.ID, checkin.Date),
		PlanHistory:    s.planHistory(ctx, profile.ID, checkin.Date),
	}
	out := s.engine.Evaluate(in)
	items, notes, removed := s.applyPolicy(ctx, in, out)

	plan := &plandomain.DailyPlan{
		ID:        s.newID(),
		UserID:    profile.ID,
		Date:      checkin.Date,
		Phenotype: out.Phenotype,
		Scores:    out.Scores,
		Plan:      items,
		Notes:     notes,
		CreatedAt: s.nowF(),
	}

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled before persist")
		return nil, err
	}
	if err := s.store.SaveDay(ctx, checkin, plan); err != nil {
		s.logger.Error("planner: save day failed",
			zap.String("user_id", profile.ID), zap.String("date", checkin.Date), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	span.SetAttributes(
		attribute.String("phenotype", string(plan.Phenotype.Primary)),
		attribute.Int("items", len(plan.Plan)),
		attribute.Int("removed", removed),
	)
	s.record(ctx, plan, removed)
	return plan.Clone(), nil
}

// BuildDailyPlanForUser loads userID's stored profile and builds the plan for checkin.
func (s *PlannerService) BuildDailyPlanForUser(ctx context.Context, userID string, checkin *checkindomain.DailyCheckin) (*plandomain.DailyPlan, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.BuildDailyPlan(ctx, profile, checkin)
}

// SaveProfile validates and stores profile, replacing any existing record.
func (s *PlannerService) SaveProfile(ctx context.Context, profile *profiledomain.UserProfile) (*profiledomain.UserProfile, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: missing profile", profiledomain.ErrInvalidProfile)
	}
	p := profile.Clone()
	if p.ID == "" {
		return nil, &profiledomain.ValidationError{Field: "id", Value: ""}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.nowF()
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.logEvent(ctx, p.ID, auditdomain.ActionBaselineUpdated, "profile", nil)
	return p, nil
}

// UpdateBaseline replaces the baseline of an existing profile.
func (s *PlannerService) UpdateBaseline(ctx context.Context, userID string, baseline profiledomain.Baseline) (*profiledomain.UserProfile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Baseline = baseline
	return s.SaveProfile(ctx, p)
}

// GetProfile returns userID's profile or ErrProfileNotFound.
func (s *PlannerService) GetProfile(ctx context.Context, userID string) (*profiledomain.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// GetPlan returns userID's plan for date or ErrPlanNotFound.
func (s *PlannerService) GetPlan(ctx context.Context, userID, date string) (*plandomain.DailyPlan, error) {
	if !checkindomain.ValidDate(date) {
		return nil, &checkindomain.ValidationError{Field: "date", Value: date}
	}
	p, err := s.store.GetPlan(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if p == nil {
		return nil, ErrPlanNotFound
	}
	return p, nil
}

// PlanHistory returns up to maxDays of userID's most recent plans, newest first.
func (s *PlannerService) PlanHistory(ctx context.Context, userID string, maxDays int) ([]*plandomain.DailyPlan, error) {
	if maxDays <= 0 {
		return []*plandomain.DailyPlan{}, nil
	}
	plans, err := s.store.PlanHistory(ctx, userID, latestDate, maxDays)
	if err != nil {
		return nil, fmt.Errorf("plan history: %w", err)
	}
	if plans == nil {
		plans = []*plandomain.DailyPlan{}
	}
	return plans, nil
}

func (s *PlannerService) checkinHistory(ctx context.Context, userID, date string) []*checkindomain.DailyCheckin {
	h, err := s.store.CheckinHistory(ctx, userID, date, s.historyDays)
	if err != nil {
		s.historyReadFailed(ctx, "checkin", userID, err)
		return nil
	}
	return h
}

func (s *PlannerService) planHistory(ctx context.Context, userID, date string) []*plandomain.DailyPlan {
	h, err := s.store.PlanHistory(ctx, userID, date, s.historyDays)
	if err != nil {
		s.historyReadFailed(ctx, "plan", userID, err)
		return nil
	}
	return h
}

func (s *PlannerService) historyReadFailed(ctx context.Context, kind, userID string, err error) {
	s.logger.Warn("planner: history read failed, using empty history",
		zap.String("history", kind), zap.String("user_id", userID), zap.Error(err))
	if s.historyFailures != nil {
		s.historyFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("history", kind)))
	}
}

// applyPolicy runs the supplementary guardrail policies over the engine outcome.
// Evaluation errors keep the engine result unchanged.
func (s *PlannerService) applyPolicy(ctx context.Context, in engine.Input, out engine.Outcome) ([]plandomain.PlanItem, []string, int) {
	items, notes, removed := out.Items, out.Notes, out.Removed
	if s.guardrails == nil {
		return items, notes, removed
	}
	decision, err := s.guardrails.Evaluate(ctx, policy.Input{
		Profile: in.Profile,
		Checkin: in.Checkin,
		Scores:  out.Scores,
		Items:   items,
	})
	if err != nil {
		s.logger.Warn("planner: guardrail policy evaluation failed", zap.Error(err))
		return items, notes, removed
	}
	kept, dropped := policy.Apply(items, decision)
	merged := make([]string, 0, len(notes)+len(decision.Notes))
	merged = append(merged, notes...)
	merged = append(merged, decision.Notes...)
	return kept, merged, removed + dropped
}

// record emits the post-persist side channels. None of them can fail the build.
func (s *PlannerService) record(ctx context.Context, plan *plandomain.DailyPlan, removed int) {
	s.logger.Info("planner: daily plan built",
		zap.String("user_id", plan.UserID),
		zap.String("date", plan.Date),
		zap.String("plan_id", plan.ID),
		zap.String("phenotype", string(plan.Phenotype.Primary)),
		zap.Int("items", len(plan.Plan)),
		zap.Int("removed", removed),
	)
	if s.plansBuilt != nil {
		s.plansBuilt.Add(ctx, 1)
	}
	if s.guardrailDrops != nil && removed > 0 {
		s.guardrailDrops.Add(ctx, int64(removed))
	}

	meta := planMetadata{
		PlanID:    plan.ID,
		Phenotype: plan.Phenotype,
		Scores:    plan.Scores,
		Items:     len(plan.Plan),
		Removed:   removed,
	}
	body := s.logEvent(ctx, plan.UserID, auditdomain.ActionDailyPlanBuilt, "plan:"+plan.Date, meta)
	if s.emitter != nil {
		err := s.emitter.Emit(ctx, &telemetry.PlanEvent{
			EventType: telemetry.EventPlanBuilt,
			UserID:    plan.UserID,
			PlanID:    plan.ID,
			Date:      plan.Date,
			Phenotype: string(plan.Phenotype.Primary),
			Items:     len(plan.Plan),
			Removed:   removed,
			Metadata:  body,
			CreatedAt: plan.CreatedAt,
		})
		if err != nil {
			s.logger.Warn("planner: emit plan event", zap.Error(err))
		}
	}
}

type planMetadata struct {
	PlanID    string               `json:"plan_id"`
	Phenotype plandomain.Phenotype `json:"phenotype"`
	Scores    plandomain.Scores    `json:"scores"`
	Items     int                  `json:"items"`
	Removed   int                  `json:"removed"`
}

// logEvent writes an audit entry with meta encoded as JSON and returns the encoded body.
func (s *PlannerService) logEvent(ctx context.Context, userID, action, resource string, meta any) []byte {
	var body []byte
	if meta != nil {
		b, err := json.Marshal(meta)
		if err != nil {
			s.logger.Warn("planner: encode audit metadata", zap.String("action", action), zap.Error(err))
		} else {
			body = b
		}
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, userID, action, resource, string(body))
	}
	return body
}
