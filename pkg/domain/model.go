package domain

import (
	"encoding/json"
	"time"
)

// ModelKind identifies one of the fixed set of classifier types in the
// ensemble. The set is closed by design: adding a kind is a code change,
// not a registration.
type ModelKind string

const (
	ModelLogisticRegression ModelKind = "logistic_regression"
	ModelRandomForest       ModelKind = "random_forest"
	ModelGradientBoost      ModelKind = "gradient_boost"
)

// ModelKinds returns the full closed set in a stable order.
func ModelKinds() []ModelKind {
	return []ModelKind{ModelLogisticRegression, ModelRandomForest, ModelGradientBoost}
}

// ModelMetrics holds the evaluation metrics recorded when a model was
// trained.
type ModelMetrics struct {
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	CVMean    float64   `json:"cv_mean"`
	CVScores  []float64 `json:"cv_scores,omitempty"`
	TrainedAt time.Time `json:"trained_at"`
}

// TrainedModel is a persisted classifier artifact: serialized parameters
// plus training metadata. Retraining overwrites the artifact for a kind,
// it never appends.
type TrainedModel struct {
	Kind          ModelKind       `json:"kind"`
	SchemaVersion int             `json:"schema_version"`
	Params        json.RawMessage `json:"params"`
	Metrics       ModelMetrics    `json:"metrics"`
}

// TrainingSummary reports the outcome of one training run. Partial success
// is possible: kinds that trained are persisted even when others fail.
type TrainingSummary struct {
	RunID    string               `json:"run_id"`
	Samples  int                  `json:"samples"`
	Trained  []ModelKind          `json:"trained"`
	Failed   map[ModelKind]string `json:"failed,omitempty"`
	Duration time.Duration        `json:"duration"`
}
