package engine

import (
	"context"
	"crypto/sha1" //nolint:gosec // mirrors the breach protocol hash
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passguard/passguard-oss/internal/governance"
	"github.com/passguard/passguard-oss/pkg/breach"
	"github.com/passguard/passguard-oss/pkg/domain"
	"github.com/passguard/passguard-oss/pkg/ml"
	"github.com/passguard/passguard-oss/pkg/storage"
	"github.com/passguard/passguard-oss/pkg/telemetry"
)

// breachSuffixLine renders the range-response line that marks the given
// password as breached.
func breachSuffixLine(password string, count int) string {
	sum := sha1.Sum([]byte(password)) //nolint:gosec // protocol hash
	full := strings.ToUpper(hex.EncodeToString(sum[:]))
	return fmt.Sprintf("%s:%d\r\n", full[5:], count)
}

func newTestEngine(t *testing.T, breachClient *breach.Client) *Engine {
	t.Helper()
	eng, err := New(Config{
		Predictor:        ml.NewPredictor(nil),
		Breach:           breachClient,
		Store:            storage.NewMemoryStore(),
		Pipeline:         ml.NewPipeline(42, nil),
		Metrics:          telemetry.NewMetrics(),
		SyntheticSamples: 300,
		Seed:             42,
	})
	require.NoError(t, err)
	return eng
}

func TestEvaluateWithoutModels(t *testing.T) {
	eng := newTestEngine(t, nil)

	report := eng.Evaluate(context.Background(), "password123", Options{})

	// Rule-based and pattern/entropy always run; the ensemble degrades.
	require.Len(t, report.Results, 2)
	methods := []string{report.Results[0].Method, report.Results[1].Method}
	assert.Contains(t, methods, domain.MethodRuleBased)
	assert.Contains(t, methods, domain.MethodPatternEntropy)

	assert.Less(t, report.OverallScore, 60.0)
	assert.Equal(t, domain.StrengthWeak, report.OverallStrength,
		"a dictionary-based password stays weak even when the ensemble is absent")
	assert.NotEmpty(t, report.Feedback)
	assert.Len(t, report.DebugDigest, 8)
	assert.Equal(t, 11, report.Length)
	assert.Nil(t, report.Breach)
}

func TestEvaluateEmptyPassword(t *testing.T) {
	eng := newTestEngine(t, nil)

	report := eng.Evaluate(context.Background(), "", Options{})
	assert.Zero(t, report.Length)
	assert.Zero(t, report.OverallScore)
	assert.Equal(t, domain.StrengthVeryWeak, report.OverallStrength)
}

func TestEvaluateEmptyPasswordWithModels(t *testing.T) {
	eng := newTestEngine(t, nil)
	_, err := eng.Train(context.Background(), "")
	require.NoError(t, err)

	// The classifiers would assign probability mass to any input, so the
	// ensemble is skipped for the empty password rather than lifting its
	// score above zero.
	report := eng.Evaluate(context.Background(), "", Options{})
	require.Len(t, report.Results, 2)
	assert.Zero(t, report.OverallScore)
	assert.Equal(t, domain.StrengthVeryWeak, report.OverallStrength)
}

func TestEvaluateStrongPassword(t *testing.T) {
	eng := newTestEngine(t, nil)

	report := eng.Evaluate(context.Background(), "K9#mQ2$vL5!xR7@w", Options{})
	assert.GreaterOrEqual(t, report.OverallScore, 80.0)
	assert.Equal(t, domain.StrengthVeryStrong, report.OverallStrength)
}

func TestTrainThenEvaluateIncludesEnsemble(t *testing.T) {
	eng := newTestEngine(t, nil)

	summary, err := eng.Train(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, summary.Trained, len(domain.ModelKinds()))
	assert.Empty(t, summary.Failed)

	report := eng.Evaluate(context.Background(), "password123", Options{})
	require.Len(t, report.Results, 3)

	var mlResult *domain.ScoreResult
	for i := range report.Results {
		if report.Results[i].Method == domain.MethodMLEnsemble {
			mlResult = &report.Results[i]
		}
	}
	require.NotNil(t, mlResult)
	assert.Less(t, mlResult.Score, 70.0, "a dictionary-based password must not score as strong")
	assert.NotEqual(t, domain.Strength(""), mlResult.Strength)
}

func TestTrainPersistsGeneration(t *testing.T) {
	store := storage.NewMemoryStore()
	eng, err := New(Config{
		Predictor:        ml.NewPredictor(nil),
		Store:            store,
		Pipeline:         ml.NewPipeline(42, nil),
		SyntheticSamples: 300,
		Seed:             42,
	})
	require.NoError(t, err)

	_, err = eng.Train(context.Background(), "")
	require.NoError(t, err)

	models, err := store.LoadModels(context.Background())
	require.NoError(t, err)
	assert.Len(t, models, len(domain.ModelKinds()))

	_, err = store.LoadScaler(context.Background())
	assert.NoError(t, err)
}

func TestPerformanceMetrics(t *testing.T) {
	eng := newTestEngine(t, nil)

	_, err := eng.PerformanceMetrics(context.Background())
	assert.ErrorIs(t, err, domain.ErrModelUnavailable,
		"an untrained store has no metrics to report")

	_, err = eng.Train(context.Background(), "")
	require.NoError(t, err)

	metrics, err := eng.PerformanceMetrics(context.Background())
	require.NoError(t, err)
	assert.Len(t, metrics, len(domain.ModelKinds()))
}

func TestStatusReflectsTraining(t *testing.T) {
	eng := newTestEngine(t, nil)

	before := eng.Status()
	assert.Zero(t, before.ModelGeneration)
	assert.Zero(t, before.ModelsLoaded)

	_, err := eng.Train(context.Background(), "")
	require.NoError(t, err)

	after := eng.Status()
	assert.Equal(t, uint64(1), after.ModelGeneration)
	assert.Equal(t, len(domain.ModelKinds()), after.ModelsLoaded)
}

func TestEvaluateBreachDemotion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, breachSuffixLine("K9#mQ2$vL5!xR7@w", 1337))
	}))
	t.Cleanup(server.Close)

	client := breach.NewClient(breach.Config{
		BaseURL:     server.URL + "/range/",
		MinInterval: time.Millisecond,
		Retry:       governance.RetryConfig{MaxRetries: 0},
	}, server.Client(), nil)
	eng := newTestEngine(t, client)

	unchecked := eng.Evaluate(context.Background(), "K9#mQ2$vL5!xR7@w", Options{})
	require.Equal(t, domain.StrengthVeryStrong, unchecked.OverallStrength)
	assert.Nil(t, unchecked.Breach)

	checked := eng.Evaluate(context.Background(), "K9#mQ2$vL5!xR7@w", Options{CheckBreach: true})
	require.NotNil(t, checked.Breach)
	assert.Equal(t, domain.BreachFound, checked.Breach.Outcome)
	assert.Equal(t, 1337, checked.Breach.Count)
	assert.Equal(t, domain.StrengthStrong, checked.OverallStrength, "breach demotes one bucket")
	assert.Equal(t, unchecked.OverallScore, checked.OverallScore, "numeric score unchanged")
	assert.Contains(t, checked.Feedback[0], "found in 1337 breaches")
}

func TestEvaluateBreachUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := breach.NewClient(breach.Config{
		BaseURL:     server.URL + "/range/",
		MinInterval: time.Millisecond,
		Retry:       governance.RetryConfig{MaxRetries: 0},
	}, server.Client(), nil)
	eng := newTestEngine(t, client)

	report := eng.Evaluate(context.Background(), "K9#mQ2$vL5!xR7@w", Options{CheckBreach: true})
	require.NotNil(t, report.Breach)
	assert.Equal(t, domain.BreachUnavailable, report.Breach.Outcome)
	assert.Equal(t, domain.StrengthVeryStrong, report.OverallStrength,
		"an unavailable corpus must not demote")
}

func TestEvaluateBatchIndexAligned(t *testing.T) {
	eng := newTestEngine(t, nil)
	passwords := []string{"password123", "K9#mQ2$vL5!xR7@w", "", "abc"}

	reports := eng.EvaluateBatch(context.Background(), passwords, Options{})
	require.Len(t, reports, len(passwords))

	for i, password := range passwords {
		assert.Equal(t, domain.DebugDigest(password), reports[i].DebugDigest, "report %d", i)
		assert.Empty(t, reports[i].Error)
	}
	assert.Greater(t, reports[1].OverallScore, reports[0].OverallScore)
}

func TestEvaluateBatchCancelled(t *testing.T) {
	eng := newTestEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports := eng.EvaluateBatch(ctx, []string{"one", "two"}, Options{})
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.NotEmpty(t, r.Error)
	}
}
