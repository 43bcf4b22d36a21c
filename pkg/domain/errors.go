package domain

import "errors"

// Common domain errors
var (
	// ErrInvalidInput indicates the caller supplied input the engine cannot
	// evaluate. An empty password is valid and never triggers this error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable indicates a persisted model is missing, corrupt,
	// or was trained against a different feature schema version.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrSchemaMismatch indicates a persisted artifact was produced by a
	// feature extractor with a different schema version.
	ErrSchemaMismatch = errors.New("feature schema version mismatch")

	// ErrTrainingData indicates the training dataset is empty or contains
	// a single class, so classifiers cannot be trained or evaluated.
	ErrTrainingData = errors.New("unusable training data")

	// ErrBreachUnavailable indicates the breach corpus could not be
	// consulted. Distinct from "not breached": the lookup is inconclusive.
	ErrBreachUnavailable = errors.New("breach lookup unavailable")
)
