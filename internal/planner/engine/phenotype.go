package engine

import (
	"sort"

	plandomain "bioadaptive/backend/internal/plan/domain"
)

type dimensionMean struct {
	dim  plandomain.Dimension
	mean float64
}

// Phenotype classifies recent plan history (date descending). The dimension with the highest
// mean score becomes primary unless that mean is below the secondary threshold, in which case
// the user is Balanced. Equal means keep the GLS > ACS > SCS > EDS > MSS priority.
func (e *Engine) Phenotype(history []*plandomain.DailyPlan) plandomain.Phenotype {
	window := capPlans(history, e.cfg.Thresholds.PhenotypeWindow)
	if len(window) == 0 {
		return plandomain.Phenotype{Primary: plandomain.Balanced}
	}

	dims := plandomain.Dimensions()
	ranked := make([]dimensionMean, len(dims))
	for i, d := range dims {
		sum := 0
		for _, p := range window {
			sum += p.Scores.Get(d)
		}
		ranked[i] = dimensionMean{dim: d, mean: float64(sum) / float64(len(window))}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].mean > ranked[j].mean
	})

	threshold := e.cfg.Thresholds.PhenotypeSecondary
	if ranked[0].mean < threshold {
		return plandomain.Phenotype{Primary: plandomain.Balanced}
	}
	out := plandomain.Phenotype{Primary: plandomain.PhenotypeFor(ranked[0].dim)}
	second := plandomain.PhenotypeFor(ranked[1].dim)
	if ranked[1].mean > threshold && second != out.Primary {
		out.Secondary = second
	}
	return out
}
