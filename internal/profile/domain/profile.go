package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidProfile is wrapped by every profile validation failure.
var ErrInvalidProfile = errors.New("invalid user profile")

// ValidationError names the offending field of a rejected profile.
type ValidationError struct {
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s=%v", ErrInvalidProfile, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidProfile }

// Sex is the biological sex recorded at onboarding.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

// DietPattern is the user's habitual diet.
type DietPattern string

const (
	DietVegetarian DietPattern = "vegetarian"
	DietMixed      DietPattern = "mixed"
)

// CaffeineSensitivity gates stimulant recommendations.
type CaffeineSensitivity string

const (
	CaffeineLow    CaffeineSensitivity = "low"
	CaffeineMedium CaffeineSensitivity = "medium"
	CaffeineHigh   CaffeineSensitivity = "high"
)

// Thyroid is the user's thyroid condition.
type Thyroid string

const (
	ThyroidNone  Thyroid = "none"
	ThyroidHypo  Thyroid = "hypo"
	ThyroidHyper Thyroid = "hyper"
)

// Conditions holds the medical conditions that change guardrail behaviour.
type Conditions struct {
	GERD     bool    `json:"gerd"`
	IBS      bool    `json:"ibs"`
	Thyroid  Thyroid `json:"thyroid"`
	Diabetes bool    `json:"diabetes"`
}

// Contraindications are hard stops for stimulant and metabolic SKUs.
type Contraindications struct {
	Pregnant      bool `json:"pregnant"`
	Breastfeeding bool `json:"breastfeeding"`
	Under18       bool `json:"under18"`
}

// Any reports whether at least one contraindication is set.
func (c Contraindications) Any() bool {
	return c.Pregnant || c.Breastfeeding || c.Under18
}

// Baseline is the static part of the profile, replaced only by an explicit baseline edit.
type Baseline struct {
	WeightKg            float64             `json:"weight_kg"`
	WaistCm             *float64            `json:"waist_cm,omitempty"` // nil when never measured
	DietPattern         DietPattern         `json:"diet_pattern"`
	CaffeineSensitivity CaffeineSensitivity `json:"caffeine_sensitivity"`
	Conditions          Conditions          `json:"conditions"`
	Contraindications   Contraindications   `json:"contraindications"`
}

// UserProfile is the single-record profile of a user.
type UserProfile struct {
	ID        string    `json:"id"`
	Age       int       `json:"age"`
	Sex       Sex       `json:"sex"`
	HeightCm  float64   `json:"height_cm"`
	Baseline  Baseline  `json:"baseline"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BMI returns weightKg / height_m². Returns 0 when height is not set.
func (p *UserProfile) BMI(weightKg float64) float64 {
	h := p.HeightCm / 100.0
	if h <= 0 {
		return 0
	}
	return weightKg / (h * h)
}

// Clone returns a deep copy of p.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	out := *p
	if p.Baseline.WaistCm != nil {
		w := *p.Baseline.WaistCm
		out.Baseline.WaistCm = &w
	}
	return &out
}

// Validate checks identity, anthropometrics, and every enumerated baseline field.
func (p *UserProfile) Validate() error {
	if p == nil {
		return &ValidationError{Field: "profile", Value: nil}
	}
	if p.ID == "" {
		return &ValidationError{Field: "id", Value: p.ID}
	}
	if p.Age < 0 || p.Age > 130 {
		return &ValidationError{Field: "age", Value: p.Age}
	}
	switch p.Sex {
	case SexMale, SexFemale, SexOther:
	default:
		return &ValidationError{Field: "sex", Value: p.Sex}
	}
	if math.IsNaN(p.HeightCm) || p.HeightCm < 50 || p.HeightCm > 250 {
		return &ValidationError{Field: "height_cm", Value: p.HeightCm}
	}
	return p.Baseline.Validate()
}

// Validate checks the baseline on its own; used by the baseline-edit action.
func (b *Baseline) Validate() error {
	if math.IsNaN(b.WeightKg) || b.WeightKg < 10 || b.WeightKg > 400 {
		return &ValidationError{Field: "baseline.weight_kg", Value: b.WeightKg}
	}
	if b.WaistCm != nil && (math.IsNaN(*b.WaistCm) || *b.WaistCm <= 0 || *b.WaistCm > 300) {
		return &ValidationError{Field: "baseline.waist_cm", Value: *b.WaistCm}
	}
	switch b.DietPattern {
	case DietVegetarian, DietMixed:
	default:
		return &ValidationError{Field: "baseline.diet_pattern", Value: b.DietPattern}
	}
	switch b.CaffeineSensitivity {
	case CaffeineLow, CaffeineMedium, CaffeineHigh:
	default:
		return &ValidationError{Field: "baseline.caffeine_sensitivity", Value: b.CaffeineSensitivity}
	}
	switch b.Conditions.Thyroid {
	case ThyroidNone, ThyroidHypo, ThyroidHyper:
	default:
		return &ValidationError{Field: "baseline.conditions.thyroid", Value: b.Conditions.Thyroid}
	}
	return nil
}
