package engine

import (
	"math"

	checkindomain "bioadaptive/backend/internal/checkin/domain"
	plandomain "bioadaptive/backend/internal/plan/domain"
	profiledomain "bioadaptive/backend/internal/profile/domain"
)

// Factor magnitudes before weighting. Each is on a 0-100 scale.
const (
	bowelConstipated = 80
	bowelIrregular   = 60
	bowelLoose       = 40

	cravingsSweet      = 80
	cravingsSaltyFried = 60

	activityNone    = 80
	activityUnder30 = 40

	fiberLowPenalty = 60
	insomniaPenalty = 100

	mssBMIHigh, mssBMILow          = 80, 20
	mssStepsLow, mssStepsOK        = 70, 10
	mssTrendUp, mssTrendFlat       = 80, 10
	mssEnergyLow, mssEnergyOK      = 70, 10
	glsSleepFactor, acsSleepFactor = 8, 10
	scsSleepFactor, edsSleepFactor = 10, 10
	scaleFactor, acsStressFactor   = 10, 4
)

// Scores computes the five sub-scores for in.Checkin.
func (e *Engine) Scores(in Input) plandomain.Scores {
	c := in.Checkin
	w := e.cfg.Weights
	t := e.cfg.Thresholds

	deficit := e.sleepDeficit(c.SleepHours)
	insomnia := 0.0
	if c.SideEffects.Insomnia {
		insomnia = insomniaPenalty
	}
	fiber := 0.0
	if e.FiberLow(in) {
		fiber = fiberLowPenalty
	}

	gls := w.GLS.Bloating*float64(c.Bloating*scaleFactor) +
		w.GLS.Bowel*bowelPenalty(c.Bowel) +
		w.GLS.Sleep*(deficit*glsSleepFactor) +
		w.GLS.Fiber*fiber

	acs := w.ACS.Hunger*float64(c.Hunger*scaleFactor) +
		w.ACS.Cravings*cravingsPenalty(c.Cravings) +
		w.ACS.Sleep*(deficit*acsSleepFactor) +
		w.ACS.Stress*float64(c.Stress*acsStressFactor)

	scs := w.SCS.Stress*float64(c.Stress*scaleFactor) +
		w.SCS.Sleep*(deficit*scsSleepFactor) +
		w.SCS.Insomnia*insomnia

	eds := w.EDS.Sleep*(deficit*edsSleepFactor) +
		w.EDS.Energy*float64((10-c.Energy)*scaleFactor) +
		w.EDS.Focus*float64((10-c.Focus)*scaleFactor) +
		w.EDS.Activity*activityPenalty(c.Activity)

	bmi := pick(e.BMI(in) > t.BMIHigh, mssBMIHigh, mssBMILow)
	steps := pick(c.StepCount() < t.StepsLow, mssStepsLow, mssStepsOK)
	trend := pick(e.WeightTrend(in) > 0, mssTrendUp, mssTrendFlat)
	morning := pick(c.Energy < t.MorningEnergyLow, mssEnergyLow, mssEnergyOK)
	mss := w.MSS.BMI*bmi + w.MSS.Steps*steps + w.MSS.WeightTrend*trend + w.MSS.MorningEnergy*morning

	return plandomain.Scores{
		GLS: clampScore(gls),
		ACS: clampScore(acs),
		SCS: clampScore(scs),
		EDS: clampScore(eds),
		MSS: clampScore(mss),
	}
}

// BMI uses today's logged weight when present, else the baseline weight.
func (e *Engine) BMI(in Input) float64 {
	weight := in.Profile.Baseline.WeightKg
	if w, ok := in.Checkin.LoggedWeight(); ok {
		weight = w
	}
	return in.Profile.BMI(weight)
}

// FiberLow is true for a mixed diet, or when the two most recent prior check-ins both
// report missed or partial compliance. Used by both scoring and the FiberFuel rule.
func (e *Engine) FiberLow(in Input) bool {
	if in.Profile.Baseline.DietPattern == profiledomain.DietMixed {
		return true
	}
	recent := capCheckins(in.CheckinHistory, 2)
	if len(recent) < 2 {
		return false
	}
	for _, c := range recent {
		if !c.Compliance.Missed() {
			return false
		}
	}
	return true
}

// WeightTrend is the newest minus the oldest logged weight across today and the prior
// window. Zero with fewer than two observations.
func (e *Engine) WeightTrend(in Input) float64 {
	var weights []float64
	if w, ok := in.Checkin.LoggedWeight(); ok {
		weights = append(weights, w)
	}
	for _, c := range capCheckins(in.CheckinHistory, e.cfg.Thresholds.WeightTrendWindow) {
		if w, ok := c.LoggedWeight(); ok {
			weights = append(weights, w)
		}
	}
	if len(weights) < 2 {
		return 0
	}
	return weights[0] - weights[len(weights)-1]
}

func (e *Engine) sleepDeficit(hours float64) float64 {
	return math.Max(0, e.cfg.Thresholds.SleepTargetHours-hours)
}

func bowelPenalty(b checkindomain.Bowel) float64 {
	switch b {
	case checkindomain.BowelConstipated:
		return bowelConstipated
	case checkindomain.BowelIrregular:
		return bowelIrregular
	case checkindomain.BowelLoose:
		return bowelLoose
	}
	return 0
}

func cravingsPenalty(c checkindomain.Cravings) float64 {
	switch c {
	case checkindomain.CravingsSweet:
		return cravingsSweet
	case checkindomain.CravingsSalty, checkindomain.CravingsFried:
		return cravingsSaltyFried
	}
	return 0
}

func activityPenalty(a checkindomain.Activity) float64 {
	switch a {
	case checkindomain.ActivityNone:
		return activityNone
	case checkindomain.ActivityUnder30:
		return activityUnder30
	}
	return 0
}

func pick(cond bool, ifTrue, ifFalse float64) float64 {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// clampScore bounds v to [0,100] and rounds half away from zero.
func clampScore(v float64) int {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(math.Round(v))
}
