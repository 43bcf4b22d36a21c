package ml

import (
	"encoding/json"
	"fmt"

	"github.com/passguard/passguard-oss/pkg/domain"
)

const (
	logisticEpochs       = 300
	logisticLearningRate = 0.1
)

// logisticRegression is a multinomial (softmax) classifier trained by
// batch gradient descent. Inputs are expected to be standardized.
type logisticRegression struct {
	// Weights[k] holds the per-feature weights for class k; the last
	// element is the bias term.
	Weights [][]float64 `json:"weights"`
}

func newLogisticRegression() *logisticRegression {
	return &logisticRegression{}
}

func (c *logisticRegression) Kind() domain.ModelKind { return domain.ModelLogisticRegression }

func (c *logisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("logistic regression: %w", domain.ErrTrainingData)
	}
	dims := len(X[0])
	c.Weights = make([][]float64, numClasses)
	for k := range c.Weights {
		c.Weights[k] = make([]float64, dims+1)
	}

	n := float64(len(X))
	for epoch := 0; epoch < logisticEpochs; epoch++ {
		grads := make([][]float64, numClasses)
		for k := range grads {
			grads[k] = make([]float64, dims+1)
		}
		for i, x := range X {
			probs := c.PredictProba(x)
			for k := 0; k < numClasses; k++ {
				target := 0.0
				if y[i] == k {
					target = 1.0
				}
				delta := probs[k] - target
				for j, v := range x {
					grads[k][j] += delta * v
				}
				grads[k][dims] += delta
			}
		}
		for k := 0; k < numClasses; k++ {
			for j := range c.Weights[k] {
				c.Weights[k][j] -= logisticLearningRate * grads[k][j] / n
			}
		}
	}
	return nil
}

func (c *logisticRegression) PredictProba(x []float64) []float64 {
	scores := make([]float64, numClasses)
	for k, w := range c.Weights {
		s := w[len(w)-1]
		for j, v := range x {
			if j < len(w)-1 {
				s += w[j] * v
			}
		}
		scores[k] = s
	}
	if len(c.Weights) == 0 {
		return uniformProbs()
	}
	return softmax(scores)
}

func (c *logisticRegression) MarshalParams() (json.RawMessage, error) {
	return json.Marshal(c)
}

func uniformProbs() []float64 {
	out := make([]float64, numClasses)
	for i := range out {
		out[i] = 1.0 / numClasses
	}
	return out
}
