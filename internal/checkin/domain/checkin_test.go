package domain

import (
	"errors"
	"math"
	"testing"
)

func validCheckin() *DailyCheckin {
	return &DailyCheckin{
		UserID:       "user-1",
		Date:         "2024-06-08",
		SleepHours:   7.5,
		SleepQuality: 6,
		Stress:       4,
		Hunger:       5,
		Bloating:     2,
		Energy:       6,
		Focus:        7,
		Cravings:     CravingsNone,
		Bowel:        BowelRegular,
		Activity:     ActivityUnder30,
		Compliance:   ComplianceYes,
	}
}

func TestDailyCheckin_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(c *DailyCheckin)
		wantField string
	}{
		{"valid", func(*DailyCheckin) {}, ""},
		{"bad date", func(c *DailyCheckin) { c.Date = "2024-13-01" }, "date"},
		{"timestamp date", func(c *DailyCheckin) { c.Date = "2024-06-08T10:00:00Z" }, "date"},
		{"sleep over 24", func(c *DailyCheckin) { c.SleepHours = 25 }, "sleep_hours"},
		{"negative sleep", func(c *DailyCheckin) { c.SleepHours = -1 }, "sleep_hours"},
		{"NaN sleep", func(c *DailyCheckin) { c.SleepHours = math.NaN() }, "sleep_hours"},
		{"stress scale", func(c *DailyCheckin) { c.Stress = 11 }, "stress"},
		{"focus scale", func(c *DailyCheckin) { c.Focus = -1 }, "focus"},
		{"cravings", func(c *DailyCheckin) { c.Cravings = "sour" }, "cravings"},
		{"bowel", func(c *DailyCheckin) { c.Bowel = "" }, "bowel"},
		{"activity", func(c *DailyCheckin) { c.Activity = "lots" }, "activity"},
		{"compliance", func(c *DailyCheckin) { c.Compliance = "maybe" }, "compliance"},
		{"weight", func(c *DailyCheckin) { w := 1.0; c.WeightKg = &w }, "weight_kg"},
		{"NaN weight", func(c *DailyCheckin) { w := math.NaN(); c.WeightKg = &w }, "weight_kg"},
		{"steps", func(c *DailyCheckin) { s := -5; c.Steps = &s }, "steps"},
		{"boundary scales", func(c *DailyCheckin) {
			c.SleepHours, c.Stress, c.Hunger, c.Energy = 0, 10, 0, 10
		}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := validCheckin()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.wantField {
				t.Fatalf("Validate() = %v, want field %q", err, tc.wantField)
			}
			if !errors.Is(err, ErrInvalidCheckin) {
				t.Errorf("error does not wrap ErrInvalidCheckin: %v", err)
			}
		})
	}
}

func TestDailyCheckin_OptionalFields(t *testing.T) {
	c := validCheckin()
	if _, ok := c.LoggedWeight(); ok {
		t.Error("weight reported without a logged value")
	}
	if c.StepCount() != 0 {
		t.Errorf("StepCount() = %d, want 0 when absent", c.StepCount())
	}
	w, s := 71.2, 8400
	c.WeightKg, c.Steps = &w, &s
	if got, ok := c.LoggedWeight(); !ok || got != 71.2 {
		t.Errorf("LoggedWeight() = %v, %v", got, ok)
	}
	if c.StepCount() != 8400 {
		t.Errorf("StepCount() = %d", c.StepCount())
	}

	clone := c.Clone()
	*clone.WeightKg = 90
	*clone.Steps = 1
	if *c.WeightKg != 71.2 || *c.Steps != 8400 {
		t.Error("clone shares optional fields with its source")
	}
}

func TestCompliance_Missed(t *testing.T) {
	for c, want := range map[Compliance]bool{ComplianceYes: false, ComplianceNo: true, CompliancePartial: true} {
		if got := c.Missed(); got != want {
			t.Errorf("%q.Missed() = %v, want %v", c, got, want)
		}
	}
}
