package engine

import (
	plandomain "bioadaptive/backend/internal/plan/domain"
	profiledomain "bioadaptive/backend/internal/profile/domain"
)

// Guardrail notes.
const (
	NoteContraindication = "MetaboFix and LeanPulse are not recommended during pregnancy, while breastfeeding, or under 18; both were removed from today's plan."
	NotePalpitations     = "Palpitations reported with LeanPulse in recent plans: LeanPulse is on hold for 3 days."
	NoteLooseStools      = "Loose stools reported: FiberFuel is paused today. Reintroduce slowly, starting with half a scoop."
	NoteThyroid          = "Hypothyroid: keep all supplements at least 4 hours apart from thyroid medication."
	NoteDiabetes         = "Diabetes: monitor blood glucose closely; FiberFuel and MetaboFix may lower post-meal readings."
	NoteGERD             = "GERD: take supplements with food and stay upright for 2 hours after each dose."
	CautionGERD          = "Do not take on an empty stomach (GERD)."
)

// guard is one safety rule. It sees the output of the guards before it.
type guard func(e *Engine, in Input, g *guardState)

type guardState struct {
	items []plandomain.PlanItem
	notes []string
}

func (g *guardState) remove(skus ...plandomain.SKU) {
	kept := g.items[:0]
	for _, it := range g.items {
		drop := false
		for _, s := range skus {
			if it.SKU == s {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, it)
		}
	}
	g.items = kept
}

var guards = []guard{
	(*Engine).contraindicationGuard,
	(*Engine).palpitationsGuard,
	(*Engine).looseStoolsGuard,
	(*Engine).thyroidGuard,
	(*Engine).diabetesGuard,
	(*Engine).gerdGuard,
}

// Guard applies the safety guardrails to a candidate plan. It only removes items, sets the
// caution field, or appends notes; it never adds SKUs. The input slice is not modified.
func (e *Engine) Guard(candidate []plandomain.PlanItem, in Input) Result {
	g := &guardState{
		items: make([]plandomain.PlanItem, len(candidate)),
		notes: []string{},
	}
	copy(g.items, candidate)
	for _, fn := range guards {
		fn(e, in, g)
	}
	return Result{Items: g.items, Notes: g.notes}
}

func (e *Engine) contraindicationGuard(in Input, g *guardState) {
	if !in.Profile.Baseline.Contraindications.Any() {
		return
	}
	g.remove(plandomain.MetaboFix, plandomain.LeanPulse)
	g.notes = append(g.notes, NoteContraindication)
}

func (e *Engine) palpitationsGuard(in Input, g *guardState) {
	if !in.Checkin.SideEffects.Palpitations {
		return
	}
	for _, p := range capPlans(in.PlanHistory, e.cfg.Thresholds.PalpitationLookback) {
		if p.Contains(plandomain.LeanPulse) {
			g.remove(plandomain.LeanPulse)
			g.notes = append(g.notes, NotePalpitations)
			return
		}
	}
}

func (e *Engine) looseStoolsGuard(in Input, g *guardState) {
	if !in.Checkin.SideEffects.LooseStools {
		return
	}
	g.remove(plandomain.FiberFuel)
	g.notes = append(g.notes, NoteLooseStools)
}

func (e *Engine) thyroidGuard(in Input, g *guardState) {
	if in.Profile.Baseline.Conditions.Thyroid == profiledomain.ThyroidHypo {
		g.notes = append(g.notes, NoteThyroid)
	}
}

func (e *Engine) diabetesGuard(in Input, g *guardState) {
	if in.Profile.Baseline.Conditions.Diabetes {
		g.notes = append(g.notes, NoteDiabetes)
	}
}

func (e *Engine) gerdGuard(in Input, g *guardState) {
	if !in.Profile.Baseline.Conditions.GERD {
		return
	}
	for i := range g.items {
		if g.items[i].SKU == plandomain.LeanPulse && g.items[i].Active() {
			g.items[i].Caution = CautionGERD
			break
		}
	}
	g.notes = append(g.notes, NoteGERD)
}
