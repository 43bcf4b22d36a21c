package ml

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/passguard/passguard-oss/pkg/domain"
)

// numClasses is the number of strength classes the classifiers predict:
// weak (0), medium (1), strong (2).
const numClasses = 3

// Classifier is the uniform contract shared by the fixed set of model
// kinds. Fit must be deterministic for a given seed, and PredictProba
// must return a probability distribution over the three classes.
type Classifier interface {
	Kind() domain.ModelKind
	Fit(X [][]float64, y []int) error
	PredictProba(x []float64) []float64
	MarshalParams() (json.RawMessage, error)
}

// NewClassifier constructs an untrained classifier of the given kind with
// the supplied deterministic seed.
func NewClassifier(kind domain.ModelKind, seed int64) (Classifier, error) {
	switch kind {
	case domain.ModelLogisticRegression:
		return newLogisticRegression(), nil
	case domain.ModelRandomForest:
		return newRandomForest(seed), nil
	case domain.ModelGradientBoost:
		return newGradientBoost(seed), nil
	default:
		return nil, fmt.Errorf("unknown model kind %q: %w", kind, domain.ErrModelUnavailable)
	}
}

// UnmarshalClassifier restores a classifier from its persisted parameter
// blob.
func UnmarshalClassifier(kind domain.ModelKind, params json.RawMessage) (Classifier, error) {
	switch kind {
	case domain.ModelLogisticRegression:
		var c logisticRegression
		if err := json.Unmarshal(params, &c); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", kind, err)
		}
		return &c, nil
	case domain.ModelRandomForest:
		var c randomForest
		if err := json.Unmarshal(params, &c); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", kind, err)
		}
		return &c, nil
	case domain.ModelGradientBoost:
		var c gradientBoost
		if err := json.Unmarshal(params, &c); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", kind, err)
		}
		return &c, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q: %w", kind, domain.ErrModelUnavailable)
	}
}

// softmax converts raw scores to a probability distribution, shifted by
// the max score for numerical stability.
func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
