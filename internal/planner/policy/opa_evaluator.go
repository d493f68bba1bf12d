package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	plandomain "bioadaptive/backend/internal/plan/domain"
)

const guardrailQuery = "data.bioadaptive.guardrails"

// DefaultRegoPolicy blocks the stimulant and metabolic SKUs whenever the recorded age is under 18,
// even if the under18 contraindication flag was not set during onboarding.
const DefaultRegoPolicy = `package bioadaptive.guardrails

minor if {
	input.profile.age > 0
	input.profile.age < 18
}

blocked_skus contains "MetaboFix" if { minor }

blocked_skus contains "LeanPulse" if { minor }

notes contains "Recorded age is under 18: MetaboFix and LeanPulse are not recommended." if { minor }
`

// OPAEvaluator evaluates supplementary guardrails with a prepared Rego query.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles DefaultRegoPolicy together with extra modules (file name → source).
// Extra modules must use package bioadaptive.guardrails to contribute rules.
func NewOPAEvaluator(ctx context.Context, extra map[string]string) (*OPAEvaluator, error) {
	modules := map[string]string{"default.rego": DefaultRegoPolicy}
	for name, src := range extra {
		if name == "default.rego" {
			name = "site_default.rego"
		}
		modules[name] = src
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile guardrail policies: %w", err)
	}
	q, err := rego.New(
		rego.Query(guardrailQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare guardrail query: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// LoadModules reads every *.rego file in dir. An empty dir returns no modules.
func LoadModules(dir string) (map[string]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read policy dir: %w", err)
	}
	out := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".rego" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read policy %s: %w", e.Name(), err)
		}
		out[e.Name()] = string(b)
	}
	return out, nil
}

// HealthCheck evaluates the compiled policies against a minimal adult input.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"profile": map[string]interface{}{"age": 30},
		"checkin": map[string]interface{}{},
		"scores":  map[string]interface{}{},
		"plan":    []interface{}{},
	}))
	if err != nil {
		return fmt.Errorf("eval guardrail policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("guardrail query returned no result")
	}
	return nil
}

// Evaluate returns the SKUs blocked and notes added by the policies. Notes are sorted so the
// result does not depend on set iteration order.
func (e *OPAEvaluator) Evaluate(ctx context.Context, in Input) (Decision, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		return Decision{}, fmt.Errorf("eval guardrail policy: %w", err)
	}
	var d Decision
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return d, nil
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return d, nil
	}
	for _, s := range stringSet(doc["blocked_skus"]) {
		if sku := plandomain.SKU(s); sku.Valid() {
			d.BlockedSKUs = append(d.BlockedSKUs, sku)
		}
	}
	d.Notes = stringSet(doc["notes"])
	return d, nil
}

func stringSet(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, x := range list {
		if s, ok := x.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func buildInput(in Input) map[string]interface{} {
	profile := map[string]interface{}{
		"id":        "",
		"age":       0,
		"sex":       "",
		"height_cm": 0.0,
	}
	if p := in.Profile; p != nil {
		b := p.Baseline
		profile["id"] = p.ID
		profile["age"] = p.Age
		profile["sex"] = string(p.Sex)
		profile["height_cm"] = p.HeightCm
		profile["baseline"] = map[string]interface{}{
			"weight_kg":            b.WeightKg,
			"diet_pattern":         string(b.DietPattern),
			"caffeine_sensitivity": string(b.CaffeineSensitivity),
			"conditions": map[string]interface{}{
				"gerd":     b.Conditions.GERD,
				"ibs":      b.Conditions.IBS,
				"thyroid":  string(b.Conditions.Thyroid),
				"diabetes": b.Conditions.Diabetes,
			},
			"contraindications": map[string]interface{}{
				"pregnant":      b.Contraindications.Pregnant,
				"breastfeeding": b.Contraindications.Breastfeeding,
				"under18":       b.Contraindications.Under18,
			},
		}
	}

	checkin := map[string]interface{}{}
	if c := in.Checkin; c != nil {
		checkin["date"] = c.Date
		checkin["sleep_hours"] = c.SleepHours
		checkin["stress"] = c.Stress
		checkin["hunger"] = c.Hunger
		checkin["bloating"] = c.Bloating
		checkin["energy"] = c.Energy
		checkin["focus"] = c.Focus
		checkin["cravings"] = string(c.Cravings)
		checkin["bowel"] = string(c.Bowel)
		checkin["activity"] = string(c.Activity)
		checkin["compliance"] = string(c.Compliance)
		checkin["side_effects"] = map[string]interface{}{
			"palpitations": c.SideEffects.Palpitations,
			"nausea":       c.SideEffects.Nausea,
			"insomnia":     c.SideEffects.Insomnia,
			"loose_stools": c.SideEffects.LooseStools,
		}
	}

	items := make([]interface{}, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, map[string]interface{}{
			"sku":    string(it.SKU),
			"dose":   it.Dose,
			"time":   it.Time,
			"active": it.Active(),
		})
	}

	return map[string]interface{}{
		"profile": profile,
		"checkin": checkin,
		"scores": map[string]interface{}{
			"gls": in.Scores.GLS,
			"acs": in.Scores.ACS,
			"scs": in.Scores.SCS,
			"eds": in.Scores.EDS,
			"mss": in.Scores.MSS,
		},
		"plan": items,
	}
}
