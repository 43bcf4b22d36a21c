package analyzer

import "github.com/passguard/passguard-oss/pkg/domain"

// Thresholds partitions a 0-100 score into the ordered strength buckets.
type Thresholds struct {
	VeryWeak float64 // scores below this are very weak
	Weak     float64
	Moderate float64
	Strong   float64 // scores at or above this are very strong
}

// DefaultThresholds matches the bucket boundaries used across all methods
// so per-method scores stay comparable.
var DefaultThresholds = Thresholds{
	VeryWeak: 20,
	Weak:     40,
	Moderate: 60,
	Strong:   80,
}

// Bucket maps a numeric score to its strength label.
func (t Thresholds) Bucket(score float64) domain.Strength {
	switch {
	case score < t.VeryWeak:
		return domain.StrengthVeryWeak
	case score < t.Weak:
		return domain.StrengthWeak
	case score < t.Moderate:
		return domain.StrengthModerate
	case score < t.Strong:
		return domain.StrengthStrong
	default:
		return domain.StrengthVeryStrong
	}
}

// RuleWeights holds the point value each heuristic contributes. The sum of
// all weights is the maximum attainable score.
type RuleWeights struct {
	LengthBase     float64 // length >= MinLength
	LengthBonus    float64 // length >= BonusLength
	Upper          float64
	Lower          float64
	Digit          float64
	Symbol         float64
	Diversity      float64 // distinct-character ratio >= DiversityFloor
	NoSequences    float64
	NoRepeats      float64
	NoCommonTokens float64
	MinLength      int
	BonusLength    int
	DiversityFloor float64
}

// DefaultRuleWeights sums to 100.
var DefaultRuleWeights = RuleWeights{
	LengthBase:     20,
	LengthBonus:    10,
	Upper:          10,
	Lower:          10,
	Digit:          10,
	Symbol:         10,
	Diversity:      10,
	NoSequences:    5,
	NoRepeats:      5,
	NoCommonTokens: 10,
	MinLength:      8,
	BonusLength:    12,
	DiversityFloor: 0.7,
}

// RuleScorer applies a deterministic weighted sum over feature vector
// fields. Feedback enumerates every failed condition, in the same fixed
// order the weights are evaluated.
type RuleScorer struct {
	weights    RuleWeights
	thresholds Thresholds
}

// NewRuleScorer builds a scorer from the supplied weights and thresholds.
func NewRuleScorer(weights RuleWeights, thresholds Thresholds) *RuleScorer {
	return &RuleScorer{weights: weights, thresholds: thresholds}
}

// Score evaluates the feature vector and produces the rule-based result.
// A zero-length input scores zero: the absence-of-weakness points must
// not reward an empty password.
func (s *RuleScorer) Score(fv domain.FeatureVector) domain.ScoreResult {
	if fv.Length == 0 {
		return domain.ScoreResult{
			Method:   domain.MethodRuleBased,
			Score:    0,
			Strength: s.thresholds.Bucket(0),
			Feedback: []string{"Use at least 8 characters"},
		}
	}

	var score float64
	var feedback []string
	w := s.weights

	if fv.Length >= w.MinLength {
		score += w.LengthBase
	} else {
		feedback = append(feedback, "Use at least 8 characters")
	}
	if fv.Length >= w.BonusLength {
		score += w.LengthBonus
	} else if fv.Length >= w.MinLength {
		feedback = append(feedback, "Consider using 12 or more characters")
	}
	if fv.HasUpper {
		score += w.Upper
	} else {
		feedback = append(feedback, "Add uppercase letters")
	}
	if fv.HasLower {
		score += w.Lower
	} else {
		feedback = append(feedback, "Add lowercase letters")
	}
	if fv.HasDigit {
		score += w.Digit
	} else {
		feedback = append(feedback, "Add numbers")
	}
	if fv.HasSymbol {
		score += w.Symbol
	} else {
		feedback = append(feedback, "Add special characters")
	}
	if fv.Diversity >= w.DiversityFloor {
		score += w.Diversity
	} else {
		feedback = append(feedback, "Use a wider variety of characters")
	}
	if fv.SequentialRuns == 0 {
		score += w.NoSequences
	} else {
		feedback = append(feedback, "Avoid sequential characters")
	}
	if fv.RepeatedRuns == 0 {
		score += w.NoRepeats
	} else {
		feedback = append(feedback, "Avoid repeating characters")
	}
	if fv.CommonPatterns == 0 {
		score += w.NoCommonTokens
	} else {
		feedback = append(feedback, "Avoid common words and patterns")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return domain.ScoreResult{
		Method:   domain.MethodRuleBased,
		Score:    score,
		Strength: s.thresholds.Bucket(score),
		Feedback: feedback,
	}
}
