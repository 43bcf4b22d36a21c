package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/passguard/passguard-oss/pkg/domain"
)

// MemoryStore is an in-memory ModelStore, used in tests and for
// ephemeral deployments that retrain on startup.
type MemoryStore struct {
	mu     sync.RWMutex
	scaler json.RawMessage
	models []domain.TrainedModel
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveGeneration(_ context.Context, scaler json.RawMessage, models []domain.TrainedModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scaler = append(json.RawMessage(nil), scaler...)
	s.models = make([]domain.TrainedModel, len(models))
	copy(s.models, models)
	return nil
}

func (s *MemoryStore) LoadScaler(_ context.Context) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.scaler == nil {
		return nil, ErrNotFound
	}
	return s.scaler, nil
}

func (s *MemoryStore) LoadModels(_ context.Context) ([]domain.TrainedModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TrainedModel, len(s.models))
	copy(out, s.models)
	return out, nil
}

func (s *MemoryStore) Metrics(_ context.Context) (map[domain.ModelKind]domain.ModelMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.ModelKind]domain.ModelMetrics, len(s.models))
	for _, model := range s.models {
		out[model.Kind] = model.Metrics
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
