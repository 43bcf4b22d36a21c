package analyzer

import "github.com/passguard/passguard-oss/pkg/domain"

// MethodWeights assigns each scoring method its share of the overall
// score. Weights are renormalized over the methods that actually ran, so
// skipping an optional method does not depress the result.
type MethodWeights map[string]float64

// DefaultMethodWeights gives the ML ensemble the largest share, matching
// its role as the primary signal when models are loaded.
var DefaultMethodWeights = MethodWeights{
	domain.MethodRuleBased:      0.3,
	domain.MethodPatternEntropy: 0.3,
	domain.MethodMLEnsemble:     0.4,
}

// Merge returns a copy of the weights with the overrides applied on top.
// A config that adjusts one method keeps the defaults for the rest.
func (w MethodWeights) Merge(overrides map[string]float64) MethodWeights {
	merged := make(MethodWeights, len(w)+len(overrides))
	for method, weight := range w {
		merged[method] = weight
	}
	for method, weight := range overrides {
		merged[method] = weight
	}
	return merged
}

// Aggregator combines per-method results and the optional breach record
// into an overall score and strength label.
type Aggregator struct {
	weights    MethodWeights
	thresholds Thresholds
}

// NewAggregator builds an aggregator from the supplied weights and bucket
// thresholds.
func NewAggregator(weights MethodWeights, thresholds Thresholds) *Aggregator {
	return &Aggregator{weights: weights, thresholds: thresholds}
}

// Aggregate folds the available results into one report. A method warning
// (dictionary word, keyboard walk) caps the overall label at weak: the
// numeric average can renormalize past the bucket boundary when few
// methods ran, but a password built on a common token stays weak. Breach
// presence forces the label down by at least one more bucket: exposure in
// a breach corpus is a near-certain compromise signal no entropy offsets.
// Both adjustments move the label only; the numeric score is untouched.
func (a *Aggregator) Aggregate(results []domain.ScoreResult, breach *domain.BreachRecord) (float64, domain.Strength) {
	var weighted, totalWeight float64
	warned := false
	for _, res := range results {
		if res.Warning != "" {
			warned = true
		}
		w, ok := a.weights[res.Method]
		if !ok {
			continue
		}
		weighted += res.Score * w
		totalWeight += w
	}

	var overall float64
	if totalWeight > 0 {
		overall = weighted / totalWeight
	}
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}

	label := a.thresholds.Bucket(overall)
	if warned && label.Rank() > domain.StrengthWeak.Rank() {
		label = domain.StrengthWeak
	}
	if breach != nil && breach.Breached() {
		label = label.Demote()
	}
	return overall, label
}
