package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/passguard/passguard-oss/pkg/domain"
)

const (
	forestTrees    = 50
	forestMaxDepth = 8
	forestMinLeaf  = 2
)

// randomForest averages the class distributions of CART trees grown on
// bootstrap samples with per-split feature subsampling.
type randomForest struct {
	Trees []*treeNode `json:"trees"`
	Seed  int64       `json:"seed"`
}

func newRandomForest(seed int64) *randomForest {
	return &randomForest{Seed: seed}
}

func (c *randomForest) Kind() domain.ModelKind { return domain.ModelRandomForest }

func (c *randomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("random forest: %w", domain.ErrTrainingData)
	}
	rng := rand.New(rand.NewSource(c.Seed)) //nolint:gosec // deterministic training, not crypto

	dims := len(X[0])
	sub := int(math.Ceil(math.Sqrt(float64(dims))))
	cfg := treeConfig{maxDepth: forestMaxDepth, minLeaf: forestMinLeaf, featureSub: sub}
	pick := func(total, want int) []int {
		perm := rng.Perm(total)
		return perm[:want]
	}

	c.Trees = make([]*treeNode, forestTrees)
	for t := range c.Trees {
		// Bootstrap sample with replacement.
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}
		c.Trees[t] = buildTree(X, y, nil, idx, 0, cfg, pick)
	}
	return nil
}

func (c *randomForest) PredictProba(x []float64) []float64 {
	if len(c.Trees) == 0 {
		return uniformProbs()
	}
	probs := make([]float64, numClasses)
	for _, tree := range c.Trees {
		leaf := tree.predict(x)
		for k, p := range leaf.Probs {
			probs[k] += p
		}
	}
	for k := range probs {
		probs[k] /= float64(len(c.Trees))
	}
	return probs
}

func (c *randomForest) MarshalParams() (json.RawMessage, error) {
	return json.Marshal(c)
}
