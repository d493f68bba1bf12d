package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateLayout is the calendar-day key format used for check-ins and plans.
const DateLayout = "2006-01-02"

// ErrInvalidCheckin is wrapped by every check-in validation failure.
var ErrInvalidCheckin = errors.New("invalid daily check-in")

// ValidationError names the offending field of a rejected check-in.
type ValidationError struct {
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s=%v", ErrInvalidCheckin, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidCheckin }

// Cravings is the dominant craving reported for the day.
type Cravings string

const (
	CravingsNone  Cravings = "none"
	CravingsSweet Cravings = "sweet"
	CravingsSalty Cravings = "salty"
	CravingsFried Cravings = "fried"
)

// Bowel is the reported bowel pattern.
type Bowel string

const (
	BowelRegular     Bowel = "regular"
	BowelConstipated Bowel = "constipated"
	BowelLoose       Bowel = "loose"
	BowelIrregular   Bowel = "irregular"
)

// Activity is the exercise volume bucket for the day.
type Activity string

const (
	ActivityNone    Activity = "none"
	ActivityUnder30 Activity = "<30"
	Activity30To60  Activity = "30_60"
	ActivityOver60  Activity = ">60"
)

// Compliance is how closely yesterday's plan was followed.
type Compliance string

const (
	ComplianceYes     Compliance = "yes"
	ComplianceNo      Compliance = "no"
	CompliancePartial Compliance = "partial"
)

// Missed reports whether the plan was not fully followed.
func (c Compliance) Missed() bool {
	return c == ComplianceNo || c == CompliancePartial
}

// SideEffects are the adverse effects reported today.
type SideEffects struct {
	Palpitations bool `json:"palpitations"`
	Nausea       bool `json:"nausea"`
	Insomnia     bool `json:"insomnia"`
	LooseStools  bool `json:"loose_stools"`
}

// DailyCheckin is one user's inputs for one calendar day. Upserted by (UserID, Date).
type DailyCheckin struct {
	UserID       string      `json:"user_id"`
	Date         string      `json:"date"` // YYYY-MM-DD, supplied by the caller
	SleepHours   float64     `json:"sleep_hours"`
	SleepQuality int         `json:"sleep_quality"`
	Stress       int         `json:"stress"`
	Hunger       int         `json:"hunger"`
	Bloating     int         `json:"bloating"`
	Energy       int         `json:"energy"`
	Focus        int         `json:"focus"`
	Cravings     Cravings    `json:"cravings"`
	Bowel        Bowel       `json:"bowel"`
	Activity     Activity    `json:"activity"`
	SideEffects  SideEffects `json:"side_effects"`
	WeightKg     *float64    `json:"weight_kg,omitempty"`
	Steps        *int        `json:"steps,omitempty"`
	Compliance   Compliance  `json:"compliance"`
}

// LoggedWeight returns today's weight and whether one was logged.
func (c *DailyCheckin) LoggedWeight() (float64, bool) {
	if c == nil || c.WeightKg == nil {
		return 0, false
	}
	return *c.WeightKg, true
}

// StepCount returns the logged step count, or 0 when absent.
func (c *DailyCheckin) StepCount() int {
	if c == nil || c.Steps == nil {
		return 0
	}
	return *c.Steps
}

// Clone returns a deep copy of c.
func (c *DailyCheckin) Clone() *DailyCheckin {
	if c == nil {
		return nil
	}
	out := *c
	if c.WeightKg != nil {
		w := *c.WeightKg
		out.WeightKg = &w
	}
	if c.Steps != nil {
		s := *c.Steps
		out.Steps = &s
	}
	return &out
}

// ValidDate reports whether s is a YYYY-MM-DD calendar day.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Validate rejects out-of-range scales and unknown enumerated values.
func (c *DailyCheckin) Validate() error {
	if c == nil {
		return &ValidationError{Field: "checkin", Value: nil}
	}
	if !ValidDate(c.Date) {
		return &ValidationError{Field: "date", Value: c.Date}
	}
	if math.IsNaN(c.SleepHours) || c.SleepHours < 0 || c.SleepHours > 24 {
		return &ValidationError{Field: "sleep_hours", Value: c.SleepHours}
	}
	scales := []struct {
		name string
		v    int
	}{
		{"sleep_quality", c.SleepQuality},
		{"stress", c.Stress},
		{"hunger", c.Hunger},
		{"bloating", c.Bloating},
		{"energy", c.Energy},
		{"focus", c.Focus},
	}
	for _, s := range scales {
		if s.v < 0 || s.v > 10 {
			return &ValidationError{Field: s.name, Value: s.v}
		}
	}
	switch c.Cravings {
	case CravingsNone, CravingsSweet, CravingsSalty, CravingsFried:
	default:
		return &ValidationError{Field: "cravings", Value: c.Cravings}
	}
	switch c.Bowel {
	case BowelRegular, BowelConstipated, BowelLoose, BowelIrregular:
	default:
		return &ValidationError{Field: "bowel", Value: c.Bowel}
	}
	switch c.Activity {
	case ActivityNone, ActivityUnder30, Activity30To60, ActivityOver60:
	default:
		return &ValidationError{Field: "activity", Value: c.Activity}
	}
	switch c.Compliance {
	case ComplianceYes, ComplianceNo, CompliancePartial:
	default:
		return &ValidationError{Field: "compliance", Value: c.Compliance}
	}
	if c.WeightKg != nil && (math.IsNaN(*c.WeightKg) || *c.WeightKg < 10 || *c.WeightKg > 400) {
		return &ValidationError{Field: "weight_kg", Value: *c.WeightKg}
	}
	if c.Steps != nil && *c.Steps < 0 {
		return &ValidationError{Field: "steps", Value: *c.Steps}
	}
	return nil
}
