package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bioadaptive/backend/internal/plan/domain"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for _, d := range []string{"2024-06-05", "2024-06-07", "2024-06-06", "2024-06-08"} {
		if err := repo.Upsert(ctx, &domain.DailyPlan{ID: "p-" + d, UserID: "u1", Date: d}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	_ = repo.Upsert(ctx, &domain.DailyPlan{ID: "other", UserID: "u2", Date: "2024-06-07"})

	got, err := repo.ListBefore(ctx, "u1", "2024-06-08", 2)
	if err != nil {
		t.Fatalf("ListBefore: %v", err)
	}
	var dates []string
	for _, p := range got {
		dates = append(dates, p.Date)
	}
	if diff := cmp.Diff([]string{"2024-06-07", "2024-06-06"}, dates); diff != "" {
		t.Errorf("dates (-want +got):\n%s", diff)
	}

	if err := repo.Upsert(ctx, &domain.DailyPlan{ID: "replaced", UserID: "u1", Date: "2024-06-08"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	p, _ := repo.Get(ctx, "u1", "2024-06-08")
	if p == nil || p.ID != "replaced" {
		t.Errorf("Get after re-upsert = %+v", p)
	}
	p.ID = "mutated"
	if again, _ := repo.Get(ctx, "u1", "2024-06-08"); again.ID != "replaced" {
		t.Error("Get returned shared state")
	}
	if missing, err := repo.Get(ctx, "u1", "2020-01-01"); missing != nil || err != nil {
		t.Errorf("Get missing = %v, %v", missing, err)
	}
}

func TestPlanBodyCodec(t *testing.T) {
	p := &domain.DailyPlan{
		Plan: []domain.PlanItem{
			{SKU: domain.LeanPulse, Dose: "1 tablet", Time: "AM / pre-workout", Reason: "energy deficit", Caution: "with food"},
		},
	}
	items, notes, err := encodePlanBody(p)
	if err != nil {
		t.Fatalf("encodePlanBody: %v", err)
	}
	if string(notes) != "[]" {
		t.Errorf("nil notes encoded as %s, want []", notes)
	}

	var out domain.DailyPlan
	if err := decodePlanBody(&out, items, notes); err != nil {
		t.Fatalf("decodePlanBody: %v", err)
	}
	if diff := cmp.Diff(p.Plan, out.Plan); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
	if out.Notes == nil || len(out.Notes) != 0 {
		t.Errorf("notes = %#v, want empty", out.Notes)
	}

	err = decodePlanBody(&out, []byte(`[{"sku":"Placebo","dose":"1"}]`), []byte(`[]`))
	if err == nil || !strings.Contains(err.Error(), "unknown sku") {
		t.Errorf("decode unknown sku: %v", err)
	}
	if err := decodePlanBody(&out, []byte(`{`), []byte(`[]`)); err == nil {
		t.Error("expected error for malformed items")
	}
}
