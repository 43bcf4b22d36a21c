package ml

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/passguard/passguard-oss/pkg/domain"
)

const (
	defaultTestFraction = 0.2
	defaultCVFolds      = 5
)

// Pipeline trains the classifier set on a labeled dataset and reports
// per-model quality metrics. Each model kind trains independently: one
// kind failing does not abort the others.
type Pipeline struct {
	seed   int64
	folds  int
	logger *slog.Logger
}

// PipelineResult carries everything a caller needs to persist a new
// model generation.
type PipelineResult struct {
	Scaler  *Scaler
	Models  []domain.TrainedModel
	Summary domain.TrainingSummary
}

func NewPipeline(seed int64, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{seed: seed, folds: defaultCVFolds, logger: logger}
}

// Train fits all model kinds on the dataset. It fails fast on datasets
// that cannot possibly train (empty, or a single class); per-kind
// failures are recorded in the summary instead of returned.
func (p *Pipeline) Train(ctx context.Context, samples []Sample) (*PipelineResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	if len(samples) == 0 {
		return nil, fmt.Errorf("empty dataset: %w", domain.ErrTrainingData)
	}
	if classes := distinctLabels(samples); classes < 2 {
		return nil, fmt.Errorf("dataset has %d distinct class(es), need at least 2: %w", classes, domain.ErrTrainingData)
	}

	X, y := Vectorize(samples)
	scaler, err := FitScaler(X)
	if err != nil {
		return nil, err
	}
	Xs := scaler.TransformAll(X)

	trainIdx, testIdx := stratifiedSplit(y, defaultTestFraction, p.seed)
	trainX, trainY := subset(Xs, y, trainIdx)
	testX, testY := subset(Xs, y, testIdx)

	summary := domain.TrainingSummary{
		RunID:   runID,
		Samples: len(samples),
		Failed:  make(map[domain.ModelKind]string),
	}

	var models []domain.TrainedModel
	for _, kind := range domain.ModelKinds() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model, err := p.trainOne(kind, trainX, trainY, testX, testY, Xs, y)
		if err != nil {
			p.logger.Warn("model training failed", "run_id", runID, "kind", kind, "error", err)
			summary.Failed[kind] = err.Error()
			continue
		}
		p.logger.Info("model trained",
			"run_id", runID,
			"kind", kind,
			"accuracy", model.Metrics.Accuracy,
			"f1", model.Metrics.F1,
			"cv_mean", model.Metrics.CVMean)
		models = append(models, model)
		summary.Trained = append(summary.Trained, kind)
	}

	if len(models) == 0 {
		return nil, fmt.Errorf("all model kinds failed to train: %w", domain.ErrTrainingData)
	}

	summary.Duration = time.Since(start)
	return &PipelineResult{Scaler: scaler, Models: models, Summary: summary}, nil
}

func (p *Pipeline) trainOne(kind domain.ModelKind, trainX [][]float64, trainY []int, testX [][]float64, testY []int, allX [][]float64, allY []int) (domain.TrainedModel, error) {
	clf, err := NewClassifier(kind, p.seed)
	if err != nil {
		return domain.TrainedModel{}, err
	}
	if err := clf.Fit(trainX, trainY); err != nil {
		return domain.TrainedModel{}, fmt.Errorf("fit %s: %w", kind, err)
	}

	metrics := evaluate(clf, testX, testY)
	metrics.CVScores, metrics.CVMean = p.crossValidate(kind, allX, allY)
	metrics.TrainedAt = time.Now().UTC()

	params, err := clf.MarshalParams()
	if err != nil {
		return domain.TrainedModel{}, fmt.Errorf("marshal %s params: %w", kind, err)
	}
	return domain.TrainedModel{
		Kind:          kind,
		SchemaVersion: domain.FeatureSchemaVersion,
		Params:        params,
		Metrics:       metrics,
	}, nil
}

// crossValidate runs k-fold validation from scratch per fold; folds that
// fail to train score zero.
func (p *Pipeline) crossValidate(kind domain.ModelKind, X [][]float64, y []int) ([]float64, float64) {
	folds := kFolds(len(X), p.folds, p.seed)

	scores := make([]float64, 0, len(folds))
	var sum float64
	for i := range folds {
		var trainIdx []int
		for j, fold := range folds {
			if j != i {
				trainIdx = append(trainIdx, fold...)
			}
		}
		trainX, trainY := subset(X, y, trainIdx)
		testX, testY := subset(X, y, folds[i])

		score := 0.0
		clf, err := NewClassifier(kind, p.seed+int64(i))
		if err == nil && clf.Fit(trainX, trainY) == nil {
			score = accuracy(clf, testX, testY)
		}
		scores = append(scores, score)
		sum += score
	}
	if len(scores) == 0 {
		return nil, 0
	}
	return scores, sum / float64(len(scores))
}

// evaluate computes accuracy and class-weighted precision/recall/F1 on a
// held-out set.
func evaluate(clf Classifier, X [][]float64, y []int) domain.ModelMetrics {
	if len(X) == 0 {
		return domain.ModelMetrics{}
	}

	var confusion [numClasses][numClasses]int
	correct := 0
	for i, x := range X {
		pred := argmax(clf.PredictProba(x))
		confusion[y[i]][pred]++
		if pred == y[i] {
			correct++
		}
	}

	var precision, recall, f1 float64
	for c := 0; c < numClasses; c++ {
		var tp, fp, fn int
		for other := 0; other < numClasses; other++ {
			if other == c {
				tp = confusion[c][c]
				continue
			}
			fp += confusion[other][c]
			fn += confusion[c][other]
		}
		support := tp + fn
		if support == 0 {
			continue
		}
		var pr, rc float64
		if tp+fp > 0 {
			pr = float64(tp) / float64(tp+fp)
		}
		rc = float64(tp) / float64(support)
		var fs float64
		if pr+rc > 0 {
			fs = 2 * pr * rc / (pr + rc)
		}
		weight := float64(support) / float64(len(X))
		precision += pr * weight
		recall += rc * weight
		f1 += fs * weight
	}

	return domain.ModelMetrics{
		Accuracy:  float64(correct) / float64(len(X)),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
	}
}

func accuracy(clf Classifier, X [][]float64, y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for i, x := range X {
		if argmax(clf.PredictProba(x)) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

func subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	subX := make([][]float64, len(idx))
	subY := make([]int, len(idx))
	for i, j := range idx {
		subX[i] = X[j]
		subY[i] = y[j]
	}
	return subX, subY
}

func distinctLabels(samples []Sample) int {
	seen := make(map[int]struct{})
	for _, s := range samples {
		seen[s.Label] = struct{}{}
	}
	return len(seen)
}

func argmax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}
