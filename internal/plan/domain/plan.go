package domain

import "time"

// SKU is one of the five supplement products the planner may prescribe.
type SKU string

const (
	Gutrify   SKU = "Gutrify"
	FiberFuel SKU = "FiberFuel"
	ObeCalm   SKU = "ObeCalm"
	LeanPulse SKU = "LeanPulse"
	MetaboFix SKU = "MetaboFix"
)

// Catalog returns the fixed SKU catalog in its default priority order.
func Catalog() []SKU {
	return []SKU{Gutrify, FiberFuel, ObeCalm, LeanPulse, MetaboFix}
}

// Valid reports whether s belongs to the catalog.
func (s SKU) Valid() bool {
	switch s {
	case Gutrify, FiberFuel, ObeCalm, LeanPulse, MetaboFix:
		return true
	}
	return false
}

// Dimension identifies one of the five sub-scores.
type Dimension string

const (
	GLS Dimension = "GLS" // gut load
	ACS Dimension = "ACS" // appetite
	SCS Dimension = "SCS" // stress
	EDS Dimension = "EDS" // energy deficit
	MSS Dimension = "MSS" // metabolic sluggishness
)

// Dimensions returns the score dimensions in tie-break priority order.
func Dimensions() []Dimension {
	return []Dimension{GLS, ACS, SCS, EDS, MSS}
}

// Scores holds the five sub-scores, each an integer in [0,100].
type Scores struct {
	GLS int `json:"gls"`
	ACS int `json:"acs"`
	SCS int `json:"scs"`
	EDS int `json:"eds"`
	MSS int `json:"mss"`
}

// Get returns the value for d, or 0 for an unknown dimension.
func (s Scores) Get(d Dimension) int {
	switch d {
	case GLS:
		return s.GLS
	case ACS:
		return s.ACS
	case SCS:
		return s.SCS
	case EDS:
		return s.EDS
	case MSS:
		return s.MSS
	}
	return 0
}

// PhenotypeName labels the dominant dimension of recent history.
type PhenotypeName string

const (
	Balanced          PhenotypeName = "Balanced"
	GutDominant       PhenotypeName = "Gut-dominant"
	AppetiteDominant  PhenotypeName = "Appetite-dominant"
	StressDominant    PhenotypeName = "Stress-dominant"
	EnergyDeficit     PhenotypeName = "Energy-deficit"
	MetabolicSluggish PhenotypeName = "Metabolic-sluggish"
)

// PhenotypeFor maps a dimension to its phenotype.
func PhenotypeFor(d Dimension) PhenotypeName {
	switch d {
	case GLS:
		return GutDominant
	case ACS:
		return AppetiteDominant
	case SCS:
		return StressDominant
	case EDS:
		return EnergyDeficit
	case MSS:
		return MetabolicSluggish
	}
	return Balanced
}

// Phenotype is the classifier output. Secondary is empty when absent.
type Phenotype struct {
	Primary   PhenotypeName `json:"primary"`
	Secondary PhenotypeName `json:"secondary,omitempty"`
}

// DoseSkip marks a LeanPulse item that is deliberately not taken today.
const DoseSkip = "SKIP today"

// PlanItem is one dosing instruction.
type PlanItem struct {
	SKU     SKU    `json:"sku"`
	Dose    string `json:"dose"`
	Time    string `json:"time"`
	Reason  string `json:"reason"`
	Caution string `json:"caution,omitempty"`
}

// Active reports whether the item is an actual dose rather than a skip marker.
func (i PlanItem) Active() bool {
	return i.Dose != DoseSkip
}

// DailyPlan is the persisted plan for one user and calendar day.
type DailyPlan struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Date      string     `json:"date"`
	Phenotype Phenotype  `json:"phenotype"`
	Scores    Scores     `json:"scores"`
	Plan      []PlanItem `json:"plan"`
	Notes     []string   `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
}

// Contains reports whether the plan has any item for sku, "SKIP today" entries included.
func (p *DailyPlan) Contains(sku SKU) bool {
	if p == nil {
		return false
	}
	for _, it := range p.Plan {
		if it.SKU == sku {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of p.
func (p *DailyPlan) Clone() *DailyPlan {
	if p == nil {
		return nil
	}
	out := *p
	if p.Plan != nil {
		out.Plan = make([]PlanItem, len(p.Plan))
		copy(out.Plan, p.Plan)
	}
	if p.Notes != nil {
		out.Notes = make([]string, len(p.Notes))
		copy(out.Notes, p.Notes)
	}
	return &out
}
