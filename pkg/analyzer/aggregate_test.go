package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/passguard/passguard-oss/pkg/domain"
)

func TestAggregateWeightedAverage(t *testing.T) {
	agg := NewAggregator(DefaultMethodWeights, DefaultThresholds)

	results := []domain.ScoreResult{
		{Method: domain.MethodRuleBased, Score: 60},
		{Method: domain.MethodPatternEntropy, Score: 50},
		{Method: domain.MethodMLEnsemble, Score: 80},
	}
	score, strength := agg.Aggregate(results, nil)

	// 0.3*60 + 0.3*50 + 0.4*80 = 65
	assert.InDelta(t, 65.0, score, 1e-9)
	assert.Equal(t, domain.StrengthStrong, strength)
}

func TestAggregateRenormalizesMissingMethods(t *testing.T) {
	agg := NewAggregator(DefaultMethodWeights, DefaultThresholds)

	// Without the ML method the remaining weights renormalize, so two
	// equal scores produce that same score.
	results := []domain.ScoreResult{
		{Method: domain.MethodRuleBased, Score: 70},
		{Method: domain.MethodPatternEntropy, Score: 70},
	}
	score, _ := agg.Aggregate(results, nil)
	assert.InDelta(t, 70.0, score, 1e-9)
}

func TestAggregateNoResults(t *testing.T) {
	agg := NewAggregator(DefaultMethodWeights, DefaultThresholds)

	score, strength := agg.Aggregate(nil, nil)
	assert.Zero(t, score)
	assert.Equal(t, domain.StrengthVeryWeak, strength)
}

func TestAggregateWarningCapsLabelAtWeak(t *testing.T) {
	agg := NewAggregator(DefaultMethodWeights, DefaultThresholds)

	// The no-models state of a fresh install: only the two deterministic
	// methods run, and "password123" renormalizes to exactly 40.0 — on
	// the moderate boundary. The dictionary warning must keep it weak.
	rule := NewRuleScorer(DefaultRuleWeights, DefaultThresholds).Score(Extract("password123"))
	entropy := ScoreEntropy("password123")

	score, strength := agg.Aggregate([]domain.ScoreResult{rule, entropy}, nil)
	assert.InDelta(t, 40.0, score, 1e-9, "numeric score is untouched")
	assert.Equal(t, domain.StrengthWeak, strength)
}

func TestAggregateNoWarningKeepsBucket(t *testing.T) {
	agg := NewAggregator(DefaultMethodWeights, DefaultThresholds)
	results := []domain.ScoreResult{
		{Method: domain.MethodRuleBased, Score: 40},
		{Method: domain.MethodPatternEntropy, Score: 40},
	}
	_, strength := agg.Aggregate(results, nil)
	assert.Equal(t, domain.StrengthModerate, strength)
}

func TestMethodWeightsMerge(t *testing.T) {
	merged := DefaultMethodWeights.Merge(map[string]float64{
		domain.MethodMLEnsemble: 0.6,
	})

	assert.Equal(t, 0.6, merged[domain.MethodMLEnsemble])
	assert.Equal(t, DefaultMethodWeights[domain.MethodRuleBased], merged[domain.MethodRuleBased])
	assert.Equal(t, DefaultMethodWeights[domain.MethodPatternEntropy], merged[domain.MethodPatternEntropy])
	assert.NotEqual(t, 0.6, DefaultMethodWeights[domain.MethodMLEnsemble], "defaults are not mutated")
}

func TestAggregateBreachDemotesLabel(t *testing.T) {
	agg := NewAggregator(DefaultMethodWeights, DefaultThresholds)
	results := []domain.ScoreResult{
		{Method: domain.MethodRuleBased, Score: 90},
		{Method: domain.MethodPatternEntropy, Score: 90},
	}

	breached := &domain.BreachRecord{Outcome: domain.BreachFound, Count: 12}
	score, strength := agg.Aggregate(results, breached)
	assert.InDelta(t, 90.0, score, 1e-9, "numeric score is untouched")
	assert.Equal(t, domain.StrengthStrong, strength, "label demoted one bucket")
}

func TestAggregateUnavailableBreachDoesNotDemote(t *testing.T) {
	agg := NewAggregator(DefaultMethodWeights, DefaultThresholds)
	results := []domain.ScoreResult{
		{Method: domain.MethodRuleBased, Score: 90},
	}

	unavailable := &domain.BreachRecord{Outcome: domain.BreachUnavailable}
	_, strength := agg.Aggregate(results, unavailable)
	assert.Equal(t, domain.StrengthVeryStrong, strength,
		"an inconclusive lookup must not be treated as a breach")
}

func TestAggregateIgnoresUnknownMethods(t *testing.T) {
	agg := NewAggregator(DefaultMethodWeights, DefaultThresholds)
	results := []domain.ScoreResult{
		{Method: domain.MethodRuleBased, Score: 40},
		{Method: "experimental", Score: 100},
	}
	score, _ := agg.Aggregate(results, nil)
	assert.InDelta(t, 40.0, score, 1e-9)
}

func TestDemoteSaturatesAtVeryWeak(t *testing.T) {
	assert.Equal(t, domain.StrengthVeryWeak, domain.StrengthVeryWeak.Demote())
	assert.Equal(t, domain.StrengthVeryWeak, domain.StrengthWeak.Demote())
	assert.Equal(t, domain.StrengthStrong, domain.StrengthVeryStrong.Demote())
}
