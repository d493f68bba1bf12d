package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"bioadaptive/backend/internal/audit"
	auditdomain "bioadaptive/backend/internal/audit/domain"
	auditrepo "bioadaptive/backend/internal/audit/repository"
	checkindomain "bioadaptive/backend/internal/checkin/domain"
	plandomain "bioadaptive/backend/internal/plan/domain"
	"bioadaptive/backend/internal/planner/engine"
	"bioadaptive/backend/internal/planner/policy"
	"bioadaptive/backend/internal/planner/store"
	profiledomain "bioadaptive/backend/internal/profile/domain"
	"bioadaptive/backend/internal/telemetry"
)

// faultyStore wraps a MemoryStore and injects failures.
type faultyStore struct {
	*store.MemoryStore
	historyErr error
	saveErr    error
	saves      int
}

var _ store.Store = (*faultyStore)(nil)

func (f *faultyStore) CheckinHistory(ctx context.Context, userID, date string, maxDays int) ([]*checkindomain.DailyCheckin, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.MemoryStore.CheckinHistory(ctx, userID, date, maxDays)
}

func (f *faultyStore) PlanHistory(ctx context.Context, userID, date string, maxDays int) ([]*plandomain.DailyPlan, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.MemoryStore.PlanHistory(ctx, userID, date, maxDays)
}

func (f *faultyStore) SaveDay(ctx context.Context, c *checkindomain.DailyCheckin, p *plandomain.DailyPlan) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.SaveDay(ctx, c, p)
}

type stubEvaluator struct {
	decision policy.Decision
	err      error
	calls    int
}

func (s *stubEvaluator) Evaluate(ctx context.Context, in policy.Input) (policy.Decision, error) {
	s.calls++
	return s.decision, s.err
}

type captureEmitter struct {
	events []*telemetry.PlanEvent
}

func (c *captureEmitter) Emit(ctx context.Context, e *telemetry.PlanEvent) error {
	c.events = append(c.events, e)
	return nil
}

func testProfile() *profiledomain.UserProfile {
	return &profiledomain.UserProfile{
		ID:       "user-1",
		Age:      35,
		Sex:      profiledomain.SexFemale,
		HeightCm: 165,
		Baseline: profiledomain.Baseline{
			WeightKg:            80,
			DietPattern:         profiledomain.DietVegetarian,
			CaffeineSensitivity: profiledomain.CaffeineLow,
			Conditions:          profiledomain.Conditions{Thyroid: profiledomain.ThyroidNone},
		},
	}
}

func testCheckin(date string) *checkindomain.DailyCheckin {
	return &checkindomain.DailyCheckin{
		UserID:       "user-1",
		Date:         date,
		SleepHours:   8,
		SleepQuality: 7,
		Stress:       2,
		Hunger:       3,
		Bloating:     7,
		Energy:       8,
		Focus:        8,
		Cravings:     checkindomain.CravingsNone,
		Bowel:        checkindomain.BowelRegular,
		Activity:     checkindomain.Activity30To60,
		Compliance:   checkindomain.ComplianceYes,
	}
}

func newTestService(st store.Store, guardrails policy.Evaluator) *PlannerService {
	s := NewPlannerService(st, engine.New(engine.DefaultConfig()), guardrails, nil, nil, nil)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("plan-%d", n)
	}
	s.nowF = func() time.Time { return time.Date(2024, 6, 8, 7, 0, 0, 0, time.UTC) }
	return s
}

func countSKU(p *plandomain.DailyPlan, sku plandomain.SKU) int {
	n := 0
	for _, it := range p.Plan {
		if it.SKU == sku {
			n++
		}
	}
	return n
}

func TestBuildDailyPlan_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	s := newTestService(st, nil)

	plan, err := s.BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08"))
	if err != nil {
		t.Fatalf("BuildDailyPlan: %v", err)
	}
	if plan.ID != "plan-1" || plan.UserID != "user-1" || plan.Date != "2024-06-08" {
		t.Errorf("identity fields = %q %q %q", plan.ID, plan.UserID, plan.Date)
	}
	if plan.Phenotype.Primary != plandomain.Balanced {
		t.Errorf("phenotype = %q, want Balanced with no history", plan.Phenotype.Primary)
	}
	if countSKU(plan, plandomain.Gutrify) == 0 || plan.Plan[0].Time != engine.TimePostLunch {
		t.Errorf("bloating 7 should add post-lunch Gutrify first, got %+v", plan.Plan)
	}

	stored, err := s.GetPlan(ctx, "user-1", "2024-06-08")
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if diff := cmp.Diff(plan, stored); diff != "" {
		t.Errorf("stored plan mismatch (-built +stored):\n%s", diff)
	}
	c, err := st.GetCheckin(ctx, "user-1", "2024-06-08")
	if err != nil || c == nil {
		t.Fatalf("GetCheckin = %v, %v", c, err)
	}
}

func TestBuildDailyPlan_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := newTestService(store.NewMemoryStore(), nil).BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08"))
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	b, err := NewPlannerService(store.NewMemoryStore(), engine.New(engine.DefaultConfig()), nil, nil, nil, nil).
		BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08"))
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if diff := cmp.Diff(a, b, cmpopts.IgnoreFields(plandomain.DailyPlan{}, "ID", "CreatedAt")); diff != "" {
		t.Errorf("plans differ (-a +b):\n%s", diff)
	}
}

func TestBuildDailyPlan_UpsertsSameDay(t *testing.T) {
	ctx := context.Background()
	s := newTestService(store.NewMemoryStore(), nil)
	if _, err := s.BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08")); err != nil {
		t.Fatalf("first build: %v", err)
	}
	c := testCheckin("2024-06-08")
	c.Bloating = 2
	second, err := s.BuildDailyPlan(ctx, testProfile(), c)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	history, err := s.PlanHistory(ctx, "user-1", 7)
	if err != nil {
		t.Fatalf("PlanHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history len = %d, want 1", len(history))
	}
	if history[0].ID != second.ID {
		t.Errorf("stored id = %q, want %q", history[0].ID, second.ID)
	}
}

func TestBuildDailyPlan_PersistentHighMSS(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	for day := 1; day <= 7; day++ {
		date := fmt.Sprintf("2024-06-%02d", day)
		w := 80.0
		c := testCheckin(date)
		c.WeightKg = &w
		p := &plandomain.DailyPlan{
			ID: "seed-" + date, UserID: "user-1", Date: date,
			Phenotype: plandomain.Phenotype{Primary: plandomain.MetabolicSluggish},
			Scores:    plandomain.Scores{MSS: 72},
			Plan:      []plandomain.PlanItem{},
			Notes:     []string{},
		}
		if err := st.SaveDay(ctx, c, p); err != nil {
			t.Fatalf("seed %s: %v", date, err)
		}
	}
	s := newTestService(st, nil)
	w := 82.0
	c := testCheckin("2024-06-08")
	c.WeightKg = &w
	c.Energy = 4

	plan, err := s.BuildDailyPlan(ctx, testProfile(), c)
	if err != nil {
		t.Fatalf("BuildDailyPlan: %v", err)
	}
	if plan.Scores.MSS != 75 {
		t.Fatalf("MSS = %d, want 75", plan.Scores.MSS)
	}
	var times []string
	for _, it := range plan.Plan {
		if it.SKU == plandomain.MetaboFix {
			times = append(times, it.Time)
		}
	}
	if diff := cmp.Diff([]string{engine.TimeBreakfast, engine.TimeLunch}, times); diff != "" {
		t.Errorf("MetaboFix slots (-want +got):\n%s", diff)
	}
	if plan.Phenotype.Primary != plandomain.MetabolicSluggish {
		t.Errorf("phenotype = %q", plan.Phenotype.Primary)
	}
}

func TestBuildDailyPlan_PersistFailure(t *testing.T) {
	ctx := context.Background()
	st := &faultyStore{MemoryStore: store.NewMemoryStore(), saveErr: errors.New("disk full")}
	s := newTestService(st, nil)

	_, err := s.BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08"))
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("err = %v, want ErrPersist", err)
	}
	if got, _ := st.GetPlan(ctx, "user-1", "2024-06-08"); got != nil {
		t.Error("no plan should be stored after a failed save")
	}
}

func TestBuildDailyPlan_HistoryFailureDegrades(t *testing.T) {
	ctx := context.Background()
	st := &faultyStore{MemoryStore: store.NewMemoryStore(), historyErr: errors.New("timeout")}
	s := newTestService(st, nil)

	plan, err := s.BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08"))
	if err != nil {
		t.Fatalf("BuildDailyPlan: %v", err)
	}
	if plan.Phenotype.Primary != plandomain.Balanced {
		t.Errorf("phenotype = %q, want Balanced", plan.Phenotype.Primary)
	}
	if st.saves != 1 {
		t.Errorf("saves = %d, want 1", st.saves)
	}
}

func TestBuildDailyPlan_CancelledBeforePersist(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := &faultyStore{MemoryStore: store.NewMemoryStore()}
	s := newTestService(st, nil)

	if _, err := s.BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if st.saves != 0 {
		t.Errorf("saves = %d, want 0", st.saves)
	}
}

func TestBuildDailyPlan_InvalidInput(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name    string
		mutate  func(p *profiledomain.UserProfile, c *checkindomain.DailyCheckin)
		wantErr error
	}{
		{"unknown bowel", func(p *profiledomain.UserProfile, c *checkindomain.DailyCheckin) { c.Bowel = "watery" }, checkindomain.ErrInvalidCheckin},
		{"bad date", func(p *profiledomain.UserProfile, c *checkindomain.DailyCheckin) { c.Date = "08/06/2024" }, checkindomain.ErrInvalidCheckin},
		{"other user", func(p *profiledomain.UserProfile, c *checkindomain.DailyCheckin) { c.UserID = "user-2" }, checkindomain.ErrInvalidCheckin},
		{"bad diet", func(p *profiledomain.UserProfile, c *checkindomain.DailyCheckin) { p.Baseline.DietPattern = "keto" }, profiledomain.ErrInvalidProfile},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := &faultyStore{MemoryStore: store.NewMemoryStore()}
			s := newTestService(st, nil)
			p, c := testProfile(), testCheckin("2024-06-08")
			tc.mutate(p, c)
			if _, err := s.BuildDailyPlan(ctx, p, c); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if st.saves != 0 {
				t.Errorf("saves = %d, want 0", st.saves)
			}
		})
	}
}

func TestBuildDailyPlan_DefaultsCheckinUser(t *testing.T) {
	s := newTestService(store.NewMemoryStore(), nil)
	c := testCheckin("2024-06-08")
	c.UserID = ""
	plan, err := s.BuildDailyPlan(context.Background(), testProfile(), c)
	if err != nil {
		t.Fatalf("BuildDailyPlan: %v", err)
	}
	if plan.UserID != "user-1" {
		t.Errorf("user = %q", plan.UserID)
	}
	if c.UserID != "" {
		t.Error("caller's check-in should not be mutated")
	}
}

func TestBuildDailyPlan_SupplementaryPolicy(t *testing.T) {
	ctx := context.Background()
	base, err := newTestService(store.NewMemoryStore(), nil).BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08"))
	if err != nil {
		t.Fatalf("baseline build: %v", err)
	}

	eval := &stubEvaluator{decision: policy.Decision{
		BlockedSKUs: []plandomain.SKU{plandomain.Gutrify},
		Notes:       []string{"Clinic policy: Gutrify paused."},
	}}
	plan, err := newTestService(store.NewMemoryStore(), eval).BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08"))
	if err != nil {
		t.Fatalf("BuildDailyPlan: %v", err)
	}
	if eval.calls != 1 {
		t.Errorf("evaluator calls = %d, want 1", eval.calls)
	}
	if countSKU(plan, plandomain.Gutrify) != 0 {
		t.Error("blocked SKU should be removed")
	}
	if len(plan.Plan) != len(base.Plan)-countSKU(base, plandomain.Gutrify) {
		t.Errorf("plan len = %d, base %d", len(plan.Plan), len(base.Plan))
	}
	if got := plan.Notes[len(plan.Notes)-1]; got != "Clinic policy: Gutrify paused." {
		t.Errorf("last note = %q", got)
	}

	failing := &stubEvaluator{err: errors.New("undefined ref")}
	kept, err := newTestService(store.NewMemoryStore(), failing).BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08"))
	if err != nil {
		t.Fatalf("BuildDailyPlan with failing policy: %v", err)
	}
	if diff := cmp.Diff(base.Plan, kept.Plan); diff != "" {
		t.Errorf("policy failure should keep the engine plan (-want +got):\n%s", diff)
	}
}

func TestBuildDailyPlan_AuditAndEvents(t *testing.T) {
	ctx := context.Background()
	repo := auditrepo.NewMemoryRepository()
	emitter := &captureEmitter{}
	s := NewPlannerService(store.NewMemoryStore(), engine.New(engine.DefaultConfig()), nil,
		audit.NewLogger(repo, nil), emitter, nil)

	plan, err := s.BuildDailyPlan(ctx, testProfile(), testCheckin("2024-06-08"))
	if err != nil {
		t.Fatalf("BuildDailyPlan: %v", err)
	}
	entries, _ := repo.ListByUser(ctx, "user-1", 10)
	if len(entries) != 1 || entries[0].Action != auditdomain.ActionDailyPlanBuilt || entries[0].Resource != "plan:2024-06-08" {
		t.Fatalf("audit entries = %+v", entries)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("events = %d, want 1", len(emitter.events))
	}
	ev := emitter.events[0]
	if ev.PlanID != plan.ID || ev.Items != len(plan.Plan) || ev.EventType != telemetry.EventPlanBuilt {
		t.Errorf("event = %+v", ev)
	}
	if len(ev.Metadata) == 0 {
		t.Error("event metadata should carry the audit body")
	}
}

func TestProfileOperations(t *testing.T) {
	ctx := context.Background()
	repo := auditrepo.NewMemoryRepository()
	s := NewPlannerService(store.NewMemoryStore(), engine.New(engine.DefaultConfig()), nil,
		audit.NewLogger(repo, nil), nil, nil)

	if _, err := s.GetProfile(ctx, "user-1"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("GetProfile on empty store: %v", err)
	}
	if _, err := s.BuildDailyPlanForUser(ctx, "user-1", testCheckin("2024-06-08")); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("BuildDailyPlanForUser without profile: %v", err)
	}
	if _, err := s.UpdateBaseline(ctx, "user-1", testProfile().Baseline); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("UpdateBaseline without profile: %v", err)
	}

	if _, err := s.SaveProfile(ctx, testProfile()); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	b := testProfile().Baseline
	b.WeightKg = 76
	b.DietPattern = profiledomain.DietMixed
	updated, err := s.UpdateBaseline(ctx, "user-1", b)
	if err != nil {
		t.Fatalf("UpdateBaseline: %v", err)
	}
	if updated.Baseline.WeightKg != 76 || updated.Age != 35 {
		t.Errorf("updated = %+v", updated)
	}

	b.CaffeineSensitivity = "extreme"
	if _, err := s.UpdateBaseline(ctx, "user-1", b); !errors.Is(err, profiledomain.ErrInvalidProfile) {
		t.Errorf("invalid baseline: err = %v", err)
	}
	got, _ := s.GetProfile(ctx, "user-1")
	if got.Baseline.CaffeineSensitivity != profiledomain.CaffeineLow {
		t.Error("rejected baseline should not be stored")
	}

	plan, err := s.BuildDailyPlanForUser(ctx, "user-1", testCheckin("2024-06-08"))
	if err != nil {
		t.Fatalf("BuildDailyPlanForUser: %v", err)
	}
	if countSKU(plan, plandomain.FiberFuel) == 0 {
		t.Error("mixed diet from the updated baseline should add FiberFuel")
	}

	entries, _ := repo.ListByUser(ctx, "user-1", 10)
	if len(entries) != 3 {
		t.Errorf("audit entries = %d, want 3", len(entries))
	}
}

func TestReadOperations(t *testing.T) {
	ctx := context.Background()
	s := newTestService(store.NewMemoryStore(), nil)

	if _, err := s.GetPlan(ctx, "user-1", "June 8"); !errors.Is(err, checkindomain.ErrInvalidCheckin) {
		t.Errorf("GetPlan bad date: %v", err)
	}
	if _, err := s.GetPlan(ctx, "user-1", "2024-06-08"); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("GetPlan missing: %v", err)
	}
	empty, err := s.PlanHistory(ctx, "user-1", 0)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("PlanHistory(0) = %v, %v", empty, err)
	}

	for _, d := range []string{"2024-06-06", "2024-06-07", "2024-06-08"} {
		if _, err := s.BuildDailyPlan(ctx, testProfile(), testCheckin(d)); err != nil {
			t.Fatalf("build %s: %v", d, err)
		}
	}
	history, err := s.PlanHistory(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("PlanHistory: %v", err)
	}
	var dates []string
	for _, p := range history {
		dates = append(dates, p.Date)
	}
	if diff := cmp.Diff([]string{"2024-06-08", "2024-06-07"}, dates); diff != "" {
		t.Errorf("history dates (-want +got):\n%s", diff)
	}
}
