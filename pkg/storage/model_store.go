// Package storage persists trained model artifacts. A generation (the
// feature scaler plus every trained classifier) is saved and loaded as a
// unit so readers never observe models scaled against a stale scaler.
package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/passguard/passguard-oss/pkg/domain"
)

// ErrNotFound is returned when a requested artifact does not exist in the store.
var ErrNotFound = errors.New("model artifact not found")

// scalerArtifact is the reserved artifact name for the feature scaler.
const scalerArtifact = "scaler"

// ModelStore exposes persistence operations for model generations.
type ModelStore interface {
	// SaveGeneration atomically replaces the stored generation.
	SaveGeneration(ctx context.Context, scaler json.RawMessage, models []domain.TrainedModel) error
	LoadScaler(ctx context.Context) (json.RawMessage, error)
	LoadModels(ctx context.Context) ([]domain.TrainedModel, error)
	Metrics(ctx context.Context) (map[domain.ModelKind]domain.ModelMetrics, error)
	Close() error
}
