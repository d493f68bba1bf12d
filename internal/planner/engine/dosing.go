package engine

import (
	"fmt"
	"sort"

	checkindomain "bioadaptive/backend/internal/checkin/domain"
	plandomain "bioadaptive/backend/internal/plan/domain"
	profiledomain "bioadaptive/backend/internal/profile/domain"
)

// Dosing slots.
const (
	TimePostLunch       = "post-lunch"
	TimePostDinner      = "post-dinner"
	TimePostLargestMeal = "post-largest-meal"
	TimePreLunch        = "pre-lunch"
	TimePreDinner       = "pre-dinner"
	TimeBedtime         = "bedtime"
	TimeMorning         = "AM / pre-workout"
	TimeBreakfast       = "breakfast"
	TimeLunch           = "lunch"
)

const (
	doseSachet         = "1 sachet"
	doseSachetOptional = "Optional: 1 sachet"
	doseScoop          = "1 scoop in 300 ml water"
	doseCapsule        = "1 capsule"
	doseTablet         = "1 tablet"
)

// LeanPulse skip reasons, in blocking priority order.
const (
	SkipReasonSleep    = "insufficient sleep"
	SkipReasonCaffeine = "high caffeine sensitivity"
	SkipReasonInsomnia = "insomnia reported"
	SkipReasonAdequate = "energy levels adequate"
)

const (
	noteCravingsShortSleep = "Sweet cravings after short sleep: ObeCalm after dinner and FiberFuel before dinner help steady appetite today."
	noteMetaboFixEscalated = "MetaboFix raised to twice daily after %d consecutive days of high metabolic sluggishness."
)

// planBuilder accumulates candidate items in rule order.
type planBuilder struct {
	items []plandomain.PlanItem
	notes []string
}

func (b *planBuilder) add(sku plandomain.SKU, dose, at, reason string) {
	b.items = append(b.items, plandomain.PlanItem{SKU: sku, Dose: dose, Time: at, Reason: reason})
}

func (b *planBuilder) has(sku plandomain.SKU, at string) bool {
	for _, it := range b.items {
		if it.SKU == sku && it.Time == at {
			return true
		}
	}
	return false
}

type dosingRule func(e *Engine, s plandomain.Scores, in Input, b *planBuilder)

// dosingRules is evaluated in order; later rules may inspect what earlier ones added.
var dosingRules = []dosingRule{
	(*Engine).gutrifyRule,
	(*Engine).fiberFuelRule,
	(*Engine).obeCalmRule,
	(*Engine).leanPulseRule,
	(*Engine).metaboFixRule,
}

// CandidatePlan runs the dosing-rule table and returns items sorted by SKU priority.
// Items sharing a SKU keep their insertion order.
func (e *Engine) CandidatePlan(s plandomain.Scores, in Input) Result {
	b := &planBuilder{}
	for _, rule := range dosingRules {
		rule(e, s, in, b)
	}
	sort.SliceStable(b.items, func(i, j int) bool {
		return e.rank[b.items[i].SKU] < e.rank[b.items[j].SKU]
	})
	if b.notes == nil {
		b.notes = []string{}
	}
	return Result{Items: b.items, Notes: b.notes}
}

func (e *Engine) gutrifyRule(s plandomain.Scores, in Input, b *planBuilder) {
	t := e.cfg.Thresholds
	c := in.Checkin
	if s.GLS >= t.GutrifyGLS || c.Bloating >= t.GutrifyBloating || c.Bowel == checkindomain.BowelConstipated {
		b.add(plandomain.Gutrify, doseSachet, TimePostLunch, "gut load/bloating/constipation")
		if s.GLS >= t.GutrifyGLSHigh {
			b.add(plandomain.Gutrify, doseSachet, TimePostDinner, fmt.Sprintf("high gut load (GLS %d)", s.GLS))
		}
		return
	}
	b.add(plandomain.Gutrify, doseSachetOptional, TimePostLargestMeal, "optional gut maintenance")
}

func (e *Engine) fiberFuelRule(s plandomain.Scores, in Input, b *planBuilder) {
	bowel := in.Checkin.Bowel
	if e.FiberLow(in) || bowel == checkindomain.BowelConstipated || bowel == checkindomain.BowelIrregular {
		b.add(plandomain.FiberFuel, doseScoop, TimePreDinner, "low fiber intake or sluggish bowel")
	}
	if s.ACS >= e.cfg.Thresholds.FiberACS {
		if !b.has(plandomain.FiberFuel, TimePreDinner) {
			b.add(plandomain.FiberFuel, doseScoop, TimePreDinner, "appetite control")
		}
		b.add(plandomain.FiberFuel, doseScoop, TimePreLunch, "appetite control before lunch")
	}
}

func (e *Engine) obeCalmRule(s plandomain.Scores, in Input, b *planBuilder) {
	t := e.cfg.Thresholds
	c := in.Checkin
	shortSleep := c.SleepHours < t.ShortSleepHours
	if s.SCS >= t.ObeCalmSCS || shortSleep {
		b.add(plandomain.ObeCalm, doseCapsule, TimePostDinner, "stress load or short sleep")
	}
	if s.SCS >= t.ObeCalmSCSHigh || c.SideEffects.Insomnia {
		b.add(plandomain.ObeCalm, doseCapsule, TimeBedtime, "high stress or insomnia")
	}
	if c.Cravings == checkindomain.CravingsSweet && shortSleep {
		const reason = "sweet cravings after short sleep"
		if !b.has(plandomain.ObeCalm, TimePostDinner) {
			b.add(plandomain.ObeCalm, doseCapsule, TimePostDinner, reason)
		}
		if !b.has(plandomain.FiberFuel, TimePreDinner) {
			b.add(plandomain.FiberFuel, doseScoop, TimePreDinner, reason)
		}
		b.notes = append(b.notes, noteCravingsShortSleep)
	}
}

func (e *Engine) leanPulseRule(s plandomain.Scores, in Input, b *planBuilder) {
	block := e.stimulantBlock(in)
	if s.EDS >= e.cfg.Thresholds.LeanPulseEDS && block == "" {
		b.add(plandomain.LeanPulse, doseTablet, TimeMorning, "energy deficit")
		return
	}
	if block == "" {
		block = SkipReasonAdequate
	}
	b.add(plandomain.LeanPulse, plandomain.DoseSkip, TimeMorning, block)
}

// stimulantBlock returns the first condition that forbids a stimulant today, or "".
func (e *Engine) stimulantBlock(in Input) string {
	switch {
	case in.Checkin.SleepHours < e.cfg.Thresholds.StimulantSleepHours:
		return SkipReasonSleep
	case in.Profile.Baseline.CaffeineSensitivity == profiledomain.CaffeineHigh:
		return SkipReasonCaffeine
	case in.Checkin.SideEffects.Insomnia:
		return SkipReasonInsomnia
	}
	return ""
}

func (e *Engine) metaboFixRule(s plandomain.Scores, in Input, b *planBuilder) {
	if s.MSS < e.cfg.Thresholds.MetaboFixMSS {
		b.add(plandomain.MetaboFix, doseTablet, TimeBreakfast, "metabolic maintenance")
		return
	}
	b.add(plandomain.MetaboFix, doseTablet, TimeBreakfast, "metabolic sluggishness")
	if e.PersistentHighMSS(in.PlanHistory) && !b.has(plandomain.MetaboFix, TimeLunch) {
		b.add(plandomain.MetaboFix, doseTablet, TimeLunch, "persistently high metabolic sluggishness")
		b.notes = append(b.notes, fmt.Sprintf(noteMetaboFixEscalated, e.cfg.Thresholds.PersistentWindow))
	}
}

// PersistentHighMSS requires a full window of prior plans, every one at or above PersistentMSS.
func (e *Engine) PersistentHighMSS(history []*plandomain.DailyPlan) bool {
	n := e.cfg.Thresholds.PersistentWindow
	window := capPlans(history, n)
	if len(window) < n {
		return false
	}
	for _, p := range window {
		if p.Scores.MSS < e.cfg.Thresholds.PersistentMSS {
			return false
		}
	}
	return true
}
