package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/passguard/passguard-oss/pkg/domain"
)

// strength midpoints for the expected-strength score mapping.
var classScores = [numClasses]float64{0, 50, 100}

// ModelSource supplies persisted model artifacts. Implemented by the
// storage backends.
type ModelSource interface {
	LoadScaler(ctx context.Context) (json.RawMessage, error)
	LoadModels(ctx context.Context) ([]domain.TrainedModel, error)
}

// generation is an immutable, atomically swapped set of loaded models.
// Readers grab the pointer once and never see a half-loaded state.
type generation struct {
	seq     uint64
	scaler  *Scaler
	models  map[domain.ModelKind]Classifier
	metrics map[domain.ModelKind]domain.ModelMetrics
}

// Predictor serves ensemble predictions from the current model
// generation. Prediction never blocks on a reload.
type Predictor struct {
	current atomic.Pointer[generation]
	seq     atomic.Uint64
	logger  *slog.Logger
}

func NewPredictor(logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{logger: logger}
}

// Ready reports whether at least one model is loaded.
func (p *Predictor) Ready() bool {
	gen := p.current.Load()
	return gen != nil && len(gen.models) > 0
}

// Generation returns the sequence number of the active model set. Zero
// means nothing has been loaded yet.
func (p *Predictor) Generation() uint64 {
	gen := p.current.Load()
	if gen == nil {
		return 0
	}
	return gen.seq
}

// Metrics returns the training metrics recorded with the active models.
func (p *Predictor) Metrics() map[domain.ModelKind]domain.ModelMetrics {
	gen := p.current.Load()
	if gen == nil {
		return nil
	}
	out := make(map[domain.ModelKind]domain.ModelMetrics, len(gen.metrics))
	for k, v := range gen.metrics {
		out[k] = v
	}
	return out
}

// Reload builds a fresh generation from the source and swaps it in.
// Models with a feature schema other than the current one are skipped;
// the previous generation keeps serving until the swap.
func (p *Predictor) Reload(ctx context.Context, source ModelSource) error {
	rawScaler, err := source.LoadScaler(ctx)
	if err != nil {
		return fmt.Errorf("load scaler: %w", err)
	}
	scaler, err := UnmarshalScaler(rawScaler)
	if err != nil {
		return fmt.Errorf("decode scaler: %w", err)
	}

	stored, err := source.LoadModels(ctx)
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}

	gen := &generation{
		scaler:  scaler,
		models:  make(map[domain.ModelKind]Classifier, len(stored)),
		metrics: make(map[domain.ModelKind]domain.ModelMetrics, len(stored)),
	}
	for _, model := range stored {
		if model.SchemaVersion != domain.FeatureSchemaVersion {
			p.logger.Warn("skipping model with stale feature schema",
				"kind", model.Kind,
				"model_schema", model.SchemaVersion,
				"current_schema", domain.FeatureSchemaVersion)
			continue
		}
		clf, err := UnmarshalClassifier(model.Kind, model.Params)
		if err != nil {
			p.logger.Warn("skipping undecodable model", "kind", model.Kind, "error", err)
			continue
		}
		gen.models[model.Kind] = clf
		gen.metrics[model.Kind] = model.Metrics
	}
	if len(gen.models) == 0 {
		return fmt.Errorf("no usable models in store: %w", domain.ErrModelUnavailable)
	}

	gen.seq = p.seq.Add(1)
	p.current.Store(gen)
	p.logger.Info("model generation activated", "generation", gen.seq, "models", len(gen.models))
	return nil
}

// Install swaps in a freshly trained set of models without a storage
// round-trip. Used right after a training run persists them.
func (p *Predictor) Install(scaler *Scaler, models []domain.TrainedModel) error {
	gen := &generation{
		scaler:  scaler,
		models:  make(map[domain.ModelKind]Classifier, len(models)),
		metrics: make(map[domain.ModelKind]domain.ModelMetrics, len(models)),
	}
	for _, model := range models {
		if model.SchemaVersion != domain.FeatureSchemaVersion {
			return fmt.Errorf("%s trained against schema %d: %w",
				model.Kind, model.SchemaVersion, domain.ErrSchemaMismatch)
		}
		clf, err := UnmarshalClassifier(model.Kind, model.Params)
		if err != nil {
			return fmt.Errorf("decode %s: %w", model.Kind, err)
		}
		gen.models[model.Kind] = clf
		gen.metrics[model.Kind] = model.Metrics
	}
	if len(gen.models) == 0 {
		return domain.ErrModelUnavailable
	}
	gen.seq = p.seq.Add(1)
	p.current.Store(gen)
	return nil
}

// Predict scores a feature vector with every loaded model and combines
// the class probabilities into one ensemble score. The score is the
// expected strength across classes, so a confidently weak prediction
// lands near 0 and a confidently strong one near 100.
func (p *Predictor) Predict(fv domain.FeatureVector) (domain.ScoreResult, error) {
	gen := p.current.Load()
	if gen == nil || len(gen.models) == 0 {
		return domain.ScoreResult{}, domain.ErrModelUnavailable
	}

	x := gen.scaler.Transform(fv.ToSlice())

	combined := make([]float64, numClasses)
	for _, clf := range gen.models {
		probs := clf.PredictProba(x)
		for c, pr := range probs {
			combined[c] += pr
		}
	}
	for c := range combined {
		combined[c] /= float64(len(gen.models))
	}

	var score, confidence float64
	for c, pr := range combined {
		score += classScores[c] * pr
		if pr > confidence {
			confidence = pr
		}
	}
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	return domain.ScoreResult{
		Method:     domain.MethodMLEnsemble,
		Score:      score,
		Confidence: confidence,
	}, nil
}
