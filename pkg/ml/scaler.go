// Package ml implements the classifier ensemble: three pure-Go model
// kinds with a uniform train/predict contract, the training pipeline that
// produces them, and the predictor that serves them with atomic hot-swap
// between generations.
package ml

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/passguard/passguard-oss/pkg/domain"
)

// Scaler standardizes feature columns to zero mean and unit variance. It
// is fitted on the training partition and persisted alongside the models;
// applying a model without its scaler would silently shift every score.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation. Columns with
// zero variance scale to zero rather than dividing by zero.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("fit scaler: %w", domain.ErrTrainingData)
	}
	cols := len(X[0])
	s := &Scaler{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}

	n := float64(len(X))
	for _, row := range X {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
	}
	return s, nil
}

// Transform returns a scaled copy of the input row.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if j < len(s.Std) && s.Std[j] > 0 {
			out[j] = (v - s.Mean[j]) / s.Std[j]
		}
	}
	return out
}

// TransformAll scales every row.
func (s *Scaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

// Marshal serializes the scaler for persistence.
func (s *Scaler) Marshal() (json.RawMessage, error) {
	return json.Marshal(s)
}

// UnmarshalScaler restores a persisted scaler.
func UnmarshalScaler(data json.RawMessage) (*Scaler, error) {
	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if len(s.Mean) != len(s.Std) {
		return nil, fmt.Errorf("decode scaler: mean/std length mismatch")
	}
	return &s, nil
}
