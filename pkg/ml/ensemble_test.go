package ml

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passguard/passguard-oss/pkg/analyzer"
	"github.com/passguard/passguard-oss/pkg/domain"
)

// memorySource is a trivial ModelSource for predictor tests.
type memorySource struct {
	scaler json.RawMessage
	models []domain.TrainedModel
}

func (s *memorySource) LoadScaler(context.Context) (json.RawMessage, error) {
	return s.scaler, nil
}

func (s *memorySource) LoadModels(context.Context) ([]domain.TrainedModel, error) {
	return s.models, nil
}

func trainedGeneration(t *testing.T) (*Scaler, []domain.TrainedModel) {
	t.Helper()
	p := NewPipeline(42, nil)
	result, err := p.Train(context.Background(), SyntheticDataset(300, 42))
	require.NoError(t, err)
	return result.Scaler, result.Models
}

func TestPredictorNotReadyBeforeLoad(t *testing.T) {
	p := NewPredictor(nil)

	assert.False(t, p.Ready())
	assert.Zero(t, p.Generation())

	_, err := p.Predict(analyzer.Extract("password"))
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestPredictorInstallAndPredict(t *testing.T) {
	scaler, models := trainedGeneration(t)

	p := NewPredictor(nil)
	require.NoError(t, p.Install(scaler, models))
	require.True(t, p.Ready())
	assert.Equal(t, uint64(1), p.Generation())

	weak, err := p.Predict(analyzer.Extract("password"))
	require.NoError(t, err)
	strong, err := p.Predict(analyzer.Extract("K9#mQ2$vL5!xR7@w"))
	require.NoError(t, err)

	assert.Equal(t, domain.MethodMLEnsemble, weak.Method)
	assert.GreaterOrEqual(t, weak.Score, 0.0)
	assert.LessOrEqual(t, weak.Score, 100.0)
	assert.Greater(t, weak.Confidence, 0.0)
	assert.Less(t, weak.Score, strong.Score,
		"a dictionary word must score below a long random password")
}

func TestPredictorReloadFromSource(t *testing.T) {
	scaler, models := trainedGeneration(t)
	raw, err := scaler.Marshal()
	require.NoError(t, err)

	p := NewPredictor(nil)
	source := &memorySource{scaler: raw, models: models}
	require.NoError(t, p.Reload(context.Background(), source))

	assert.True(t, p.Ready())
	assert.Equal(t, uint64(1), p.Generation())
	assert.Len(t, p.Metrics(), len(models))
}

func TestPredictorReloadSkipsStaleSchema(t *testing.T) {
	scaler, models := trainedGeneration(t)
	raw, err := scaler.Marshal()
	require.NoError(t, err)

	stale := make([]domain.TrainedModel, len(models))
	copy(stale, models)
	for i := range stale {
		stale[i].SchemaVersion = domain.FeatureSchemaVersion + 1
	}

	p := NewPredictor(nil)
	err = p.Reload(context.Background(), &memorySource{scaler: raw, models: stale})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable,
		"a generation with no usable models must not activate")
	assert.False(t, p.Ready())
}

func TestPredictorReloadKeepsServingOnFailure(t *testing.T) {
	scaler, models := trainedGeneration(t)
	raw, err := scaler.Marshal()
	require.NoError(t, err)

	p := NewPredictor(nil)
	require.NoError(t, p.Reload(context.Background(), &memorySource{scaler: raw, models: models}))

	// A bad reload must leave the active generation untouched.
	bad := &memorySource{scaler: raw, models: []domain.TrainedModel{
		{Kind: domain.ModelRandomForest, SchemaVersion: domain.FeatureSchemaVersion, Params: json.RawMessage(`{broken`)},
	}}
	require.Error(t, p.Reload(context.Background(), bad))

	assert.True(t, p.Ready())
	assert.Equal(t, uint64(1), p.Generation())
	_, err = p.Predict(analyzer.Extract("still works"))
	assert.NoError(t, err)
}

func TestPredictorGenerationAdvances(t *testing.T) {
	scaler, models := trainedGeneration(t)

	p := NewPredictor(nil)
	require.NoError(t, p.Install(scaler, models))
	require.NoError(t, p.Install(scaler, models))
	assert.Equal(t, uint64(2), p.Generation())
}

func TestPredictorInstallRejectsStaleSchema(t *testing.T) {
	scaler, models := trainedGeneration(t)
	models[0].SchemaVersion = domain.FeatureSchemaVersion + 1

	err := NewPredictor(nil).Install(scaler, models)
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)
}

func TestPredictorInstallRejectsUndecodableModel(t *testing.T) {
	scaler, _ := trainedGeneration(t)

	err := NewPredictor(nil).Install(scaler, []domain.TrainedModel{
		{Kind: domain.ModelGradientBoost, SchemaVersion: domain.FeatureSchemaVersion, Params: json.RawMessage(`not json`)},
	})
	assert.Error(t, err)
}
