// Package engine wires the scoring methods, breach lookup, and model
// lifecycle into one evaluation surface.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/passguard/passguard-oss/pkg/analyzer"
	"github.com/passguard/passguard-oss/pkg/breach"
	"github.com/passguard/passguard-oss/pkg/domain"
	"github.com/passguard/passguard-oss/pkg/ml"
	"github.com/passguard/passguard-oss/pkg/storage"
	"github.com/passguard/passguard-oss/pkg/telemetry"
)

// Options controls a single evaluation.
type Options struct {
	// CheckBreach enables the k-anonymity breach lookup for this call.
	CheckBreach bool
}

// Config assembles the engine's collaborators. Nil optional fields
// disable the corresponding capability.
type Config struct {
	RuleScorer *analyzer.RuleScorer
	Aggregator *analyzer.Aggregator
	Thresholds *analyzer.Thresholds
	Predictor  *ml.Predictor
	Breach     *breach.Client
	Store      storage.ModelStore
	Pipeline   *ml.Pipeline
	Metrics    *telemetry.Metrics
	Logger     *slog.Logger

	// SyntheticSamples sizes the generated dataset when Train is called
	// without a dataset file.
	SyntheticSamples int
	Seed             int64
}

// Engine evaluates password strength with every configured method and
// aggregates the results into one report.
type Engine struct {
	rules      *analyzer.RuleScorer
	aggregator *analyzer.Aggregator
	thresholds analyzer.Thresholds
	predictor  *ml.Predictor
	breach     *breach.Client
	store      storage.ModelStore
	pipeline   *ml.Pipeline
	metrics    *telemetry.Metrics
	logger     *slog.Logger

	syntheticSamples int
	seed             int64
}

// Status reports engine readiness for health endpoints.
type Status struct {
	Ready           bool                                     `json:"ready"`
	ModelGeneration uint64                                   `json:"model_generation"`
	ModelsLoaded    int                                      `json:"models_loaded"`
	BreachEnabled   bool                                     `json:"breach_enabled"`
	ModelMetrics    map[domain.ModelKind]domain.ModelMetrics `json:"model_metrics,omitempty"`
}

func New(cfg Config) (*Engine, error) {
	thresholds := analyzer.DefaultThresholds
	if cfg.Thresholds != nil {
		thresholds = *cfg.Thresholds
	}
	if cfg.RuleScorer == nil {
		cfg.RuleScorer = analyzer.NewRuleScorer(analyzer.DefaultRuleWeights, thresholds)
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = analyzer.NewAggregator(analyzer.DefaultMethodWeights, thresholds)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SyntheticSamples <= 0 {
		cfg.SyntheticSamples = 3000
	}

	return &Engine{
		rules:            cfg.RuleScorer,
		aggregator:       cfg.Aggregator,
		thresholds:       thresholds,
		predictor:        cfg.Predictor,
		breach:           cfg.Breach,
		store:            cfg.Store,
		pipeline:         cfg.Pipeline,
		metrics:          cfg.Metrics,
		logger:           cfg.Logger,
		syntheticSamples: cfg.SyntheticSamples,
		seed:             cfg.Seed,
	}, nil
}

// Evaluate scores one password with every available method. A method
// that cannot run (no models loaded, breach corpus unreachable) degrades
// to a warning in the report instead of failing the evaluation. The
// password itself never reaches logs; only its length and a short
// content digest do.
func (e *Engine) Evaluate(ctx context.Context, password string, opts Options) domain.AggregateReport {
	start := time.Now()

	sanitized := analyzer.Sanitize(password)
	fv := analyzer.Extract(sanitized)

	report := domain.AggregateReport{
		DebugDigest: domain.DebugDigest(sanitized),
		Length:      len([]rune(sanitized)),
	}

	report.Results = append(report.Results, e.timed(domain.MethodRuleBased, func() domain.ScoreResult {
		return e.rules.Score(fv)
	}))

	report.Results = append(report.Results, e.timed(domain.MethodPatternEntropy, func() domain.ScoreResult {
		return analyzer.ScoreEntropy(sanitized)
	}))

	// The classifiers emit probability mass for any input, so an empty
	// password would aggregate above zero. Skip the method instead; the
	// deterministic scorers already pin the empty string to zero.
	if e.predictor != nil && report.Length > 0 {
		methodStart := time.Now()
		result, err := e.predictor.Predict(fv)
		switch {
		case errors.Is(err, domain.ErrModelUnavailable):
			e.recordEvaluation(domain.MethodMLEnsemble, "unavailable", time.Since(methodStart))
		case err != nil:
			e.logger.Warn("ml prediction failed", "digest", report.DebugDigest, "error", err)
			e.recordEvaluation(domain.MethodMLEnsemble, "error", time.Since(methodStart))
		default:
			result.Strength = e.thresholds.Bucket(result.Score)
			report.Results = append(report.Results, result)
			e.recordEvaluation(domain.MethodMLEnsemble, "ok", time.Since(methodStart))
		}
	}

	if opts.CheckBreach && e.breach != nil {
		record := e.breach.Check(ctx, sanitized)
		report.Breach = &record
		if e.metrics != nil {
			e.metrics.RecordBreachLookup(string(record.Outcome))
		}
	}

	report.OverallScore, report.OverallStrength = e.aggregator.Aggregate(report.Results, report.Breach)
	report.Feedback = collectFeedback(report)

	e.logger.Debug("evaluation completed",
		"digest", report.DebugDigest,
		"length", report.Length,
		"score", report.OverallScore,
		"strength", report.OverallStrength,
		"methods", len(report.Results),
		"duration", time.Since(start))
	return report
}

func (e *Engine) timed(method string, score func() domain.ScoreResult) domain.ScoreResult {
	start := time.Now()
	result := score()
	e.recordEvaluation(method, "ok", time.Since(start))
	return result
}

func (e *Engine) recordEvaluation(method, status string, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordEvaluation(method, status, duration)
	}
}

// collectFeedback merges per-method feedback and warnings into one
// deduplicated list, keeping first-seen order. A confirmed breach leads
// the list because it outweighs every compositional suggestion.
func collectFeedback(report domain.AggregateReport) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(msg string) {
		if msg == "" {
			return
		}
		if _, ok := seen[msg]; ok {
			return
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
	}

	if report.Breach != nil && report.Breach.Breached() {
		add(report.Breach.Message)
	}
	for _, res := range report.Results {
		add(res.Warning)
		for _, msg := range res.Feedback {
			add(msg)
		}
	}
	return out
}

// Train runs the full training pipeline and activates the new models.
// With an empty datasetPath a synthetic dataset is generated. The new
// generation is persisted before it starts serving, so a crash between
// the two steps loses nothing.
func (e *Engine) Train(ctx context.Context, datasetPath string) (domain.TrainingSummary, error) {
	if e.pipeline == nil {
		return domain.TrainingSummary{}, fmt.Errorf("training pipeline not configured")
	}
	start := time.Now()

	var (
		samples []ml.Sample
		err     error
	)
	if datasetPath != "" {
		samples, err = ml.LoadCSVDataset(datasetPath)
		if err != nil {
			e.recordTraining("failed", time.Since(start))
			return domain.TrainingSummary{}, err
		}
	} else {
		samples = ml.SyntheticDataset(e.syntheticSamples, e.seed)
	}

	result, err := e.pipeline.Train(ctx, samples)
	if err != nil {
		e.recordTraining("failed", time.Since(start))
		return domain.TrainingSummary{}, err
	}

	if e.store != nil {
		rawScaler, err := result.Scaler.Marshal()
		if err != nil {
			e.recordTraining("failed", time.Since(start))
			return domain.TrainingSummary{}, fmt.Errorf("encode scaler: %w", err)
		}
		if err := e.store.SaveGeneration(ctx, rawScaler, result.Models); err != nil {
			e.recordTraining("failed", time.Since(start))
			return domain.TrainingSummary{}, fmt.Errorf("persist generation: %w", err)
		}
	}

	if e.predictor != nil {
		if err := e.predictor.Install(result.Scaler, result.Models); err != nil {
			e.recordTraining("failed", time.Since(start))
			return domain.TrainingSummary{}, fmt.Errorf("activate generation: %w", err)
		}
		if e.metrics != nil {
			e.metrics.SetModelGeneration(e.predictor.Generation())
		}
	}

	e.recordTraining("ok", time.Since(start))
	e.logger.Info("training run completed",
		"run_id", result.Summary.RunID,
		"samples", result.Summary.Samples,
		"trained", len(result.Summary.Trained),
		"failed", len(result.Summary.Failed),
		"duration", result.Summary.Duration)
	return result.Summary, nil
}

func (e *Engine) recordTraining(status string, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordTrainingRun(status, duration)
	}
}

// PerformanceMetrics returns the training metrics of the active models.
func (e *Engine) PerformanceMetrics(ctx context.Context) (map[domain.ModelKind]domain.ModelMetrics, error) {
	if e.predictor != nil && e.predictor.Ready() {
		return e.predictor.Metrics(), nil
	}
	if e.store != nil {
		metrics, err := e.store.Metrics(ctx)
		if err != nil {
			return nil, err
		}
		if len(metrics) == 0 {
			return nil, domain.ErrModelUnavailable
		}
		return metrics, nil
	}
	return nil, domain.ErrModelUnavailable
}

// Status reports readiness and the active model generation.
func (e *Engine) Status() Status {
	s := Status{
		Ready:         true,
		BreachEnabled: e.breach != nil,
	}
	if e.predictor != nil {
		s.ModelGeneration = e.predictor.Generation()
		s.ModelMetrics = e.predictor.Metrics()
		s.ModelsLoaded = len(s.ModelMetrics)
	}
	return s
}
