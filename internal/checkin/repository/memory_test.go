package repository

import (
	"context"
	"testing"

	"bioadaptive/backend/internal/checkin/domain"
)

func TestMemoryRepository_ListBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for _, d := range []string{"2024-06-01", "2024-06-03", "2024-06-02", "2024-06-04"} {
		if err := repo.Upsert(ctx, &domain.DailyCheckin{UserID: "u1", Date: d}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	testCases := []struct {
		name  string
		date  string
		limit int
		want  []string
	}{
		{"strictly before", "2024-06-04", 10, []string{"2024-06-03", "2024-06-02", "2024-06-01"}},
		{"limited", "2024-06-05", 2, []string{"2024-06-04", "2024-06-03"}},
		{"none before", "2024-06-01", 5, nil},
		{"zero limit", "2024-06-05", 0, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.ListBefore(ctx, "u1", tc.date, tc.limit)
			if err != nil {
				t.Fatalf("ListBefore: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i].Date != tc.want[i] {
					t.Errorf("[%d] = %s, want %s", i, got[i].Date, tc.want[i])
				}
			}
		})
	}
}

func TestMemoryRepository_UpsertReplacesDay(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	c := &domain.DailyCheckin{UserID: "u1", Date: "2024-06-04", Stress: 3}
	_ = repo.Upsert(ctx, c)
	c.Stress = 9
	if got, _ := repo.Get(ctx, "u1", "2024-06-04"); got.Stress != 3 {
		t.Errorf("stored check-in aliased caller value: stress = %d", got.Stress)
	}
	_ = repo.Upsert(ctx, c)
	if got, _ := repo.Get(ctx, "u1", "2024-06-04"); got.Stress != 9 {
		t.Errorf("stress = %d, want 9 after re-upsert", got.Stress)
	}
	if got, err := repo.Get(ctx, "u2", "2024-06-04"); got != nil || err != nil {
		t.Errorf("Get other user = %v, %v", got, err)
	}
}
