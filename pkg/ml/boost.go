package ml

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/passguard/passguard-oss/pkg/domain"
)

const (
	boostRounds       = 60
	boostMaxDepth     = 3
	boostMinLeaf      = 5
	boostLearningRate = 0.1
	boostSubsample    = 0.8
)

// gradientBoost is a multiclass gradient-boosted tree ensemble: each
// round fits one shallow regression tree per class to the softmax
// residuals of the additive model so far.
type gradientBoost struct {
	// Rounds[r][k] is the tree for class k fitted in round r.
	Rounds       [][]*treeNode `json:"rounds"`
	LearningRate float64       `json:"learning_rate"`
	Seed         int64         `json:"seed"`
}

func newGradientBoost(seed int64) *gradientBoost {
	return &gradientBoost{LearningRate: boostLearningRate, Seed: seed}
}

func (c *gradientBoost) Kind() domain.ModelKind { return domain.ModelGradientBoost }

func (c *gradientBoost) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("gradient boost: %w", domain.ErrTrainingData)
	}
	rng := rand.New(rand.NewSource(c.Seed)) //nolint:gosec // deterministic training, not crypto

	n := len(X)
	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, numClasses)
	}

	cfg := treeConfig{maxDepth: boostMaxDepth, minLeaf: boostMinLeaf, regression: true}
	sampleSize := int(boostSubsample * float64(n))
	if sampleSize < 1 {
		sampleSize = n
	}

	c.Rounds = make([][]*treeNode, 0, boostRounds)
	residuals := make([]float64, n)
	for round := 0; round < boostRounds; round++ {
		idx := rng.Perm(n)[:sampleSize]

		trees := make([]*treeNode, numClasses)
		for k := 0; k < numClasses; k++ {
			for i := 0; i < n; i++ {
				probs := softmax(scores[i])
				target := 0.0
				if y[i] == k {
					target = 1.0
				}
				residuals[i] = target - probs[k]
			}
			trees[k] = buildTree(X, nil, residuals, idx, 0, cfg, nil)
		}
		// Apply the round's trees after all residuals were computed
		// against the same additive model state.
		for k, tree := range trees {
			for i := 0; i < n; i++ {
				scores[i][k] += c.LearningRate * tree.predict(X[i]).Value
			}
		}
		c.Rounds = append(c.Rounds, trees)
	}
	return nil
}

func (c *gradientBoost) PredictProba(x []float64) []float64 {
	if len(c.Rounds) == 0 {
		return uniformProbs()
	}
	scores := make([]float64, numClasses)
	for _, trees := range c.Rounds {
		for k, tree := range trees {
			scores[k] += c.LearningRate * tree.predict(x).Value
		}
	}
	return softmax(scores)
}

func (c *gradientBoost) MarshalParams() (json.RawMessage, error) {
	return json.Marshal(c)
}
