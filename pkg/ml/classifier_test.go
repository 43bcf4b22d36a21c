package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passguard/passguard-oss/pkg/domain"
)

// trainingFixture returns a small scaled dataset with all three classes.
func trainingFixture(t *testing.T) ([][]float64, []int) {
	t.Helper()
	samples := SyntheticDataset(240, 7)
	X, y := Vectorize(samples)
	scaler, err := FitScaler(X)
	require.NoError(t, err)
	return scaler.TransformAll(X), y
}

func TestClassifierKinds(t *testing.T) {
	for _, kind := range domain.ModelKinds() {
		clf, err := NewClassifier(kind, 1)
		require.NoError(t, err)
		assert.Equal(t, kind, clf.Kind())
	}

	_, err := NewClassifier("perceptron", 1)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestClassifiersLearnSeparableClasses(t *testing.T) {
	X, y := trainingFixture(t)

	for _, kind := range domain.ModelKinds() {
		t.Run(string(kind), func(t *testing.T) {
			clf, err := NewClassifier(kind, 11)
			require.NoError(t, err)
			require.NoError(t, clf.Fit(X, y))

			correct := 0
			for i, x := range X {
				if argmax(clf.PredictProba(x)) == y[i] {
					correct++
				}
			}
			trainAccuracy := float64(correct) / float64(len(X))
			assert.Greater(t, trainAccuracy, 0.6,
				"classes are generated to be separable")
		})
	}
}

func TestPredictProbaIsDistribution(t *testing.T) {
	X, y := trainingFixture(t)

	for _, kind := range domain.ModelKinds() {
		t.Run(string(kind), func(t *testing.T) {
			clf, err := NewClassifier(kind, 3)
			require.NoError(t, err)
			require.NoError(t, clf.Fit(X, y))

			for _, x := range X[:20] {
				probs := clf.PredictProba(x)
				require.Len(t, probs, 3)
				var sum float64
				for _, p := range probs {
					assert.GreaterOrEqual(t, p, 0.0)
					sum += p
				}
				assert.InDelta(t, 1.0, sum, 1e-9)
			}
		})
	}
}

func TestUntrainedClassifierPredictsUniform(t *testing.T) {
	for _, kind := range domain.ModelKinds() {
		clf, err := NewClassifier(kind, 1)
		require.NoError(t, err)

		probs := clf.PredictProba(make([]float64, domain.FeatureCount))
		for _, p := range probs {
			assert.InDelta(t, 1.0/3.0, p, 1e-9)
		}
	}
}

func TestClassifierSerializationRoundTrip(t *testing.T) {
	X, y := trainingFixture(t)

	for _, kind := range domain.ModelKinds() {
		t.Run(string(kind), func(t *testing.T) {
			clf, err := NewClassifier(kind, 5)
			require.NoError(t, err)
			require.NoError(t, clf.Fit(X, y))

			params, err := clf.MarshalParams()
			require.NoError(t, err)

			restored, err := UnmarshalClassifier(kind, params)
			require.NoError(t, err)

			for _, x := range X[:20] {
				assert.Equal(t, clf.PredictProba(x), restored.PredictProba(x))
			}
		})
	}
}

func TestTrainingIsDeterministicForSeed(t *testing.T) {
	X, y := trainingFixture(t)

	for _, kind := range domain.ModelKinds() {
		t.Run(string(kind), func(t *testing.T) {
			first, err := NewClassifier(kind, 99)
			require.NoError(t, err)
			require.NoError(t, first.Fit(X, y))

			second, err := NewClassifier(kind, 99)
			require.NoError(t, err)
			require.NoError(t, second.Fit(X, y))

			firstParams, err := first.MarshalParams()
			require.NoError(t, err)
			secondParams, err := second.MarshalParams()
			require.NoError(t, err)
			assert.Equal(t, string(firstParams), string(secondParams))
		})
	}
}

func TestFitRejectsEmptyData(t *testing.T) {
	for _, kind := range domain.ModelKinds() {
		clf, err := NewClassifier(kind, 1)
		require.NoError(t, err)
		assert.ErrorIs(t, clf.Fit(nil, nil), domain.ErrTrainingData)
	}
}
