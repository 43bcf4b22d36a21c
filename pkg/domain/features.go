package domain

// FeatureSchemaVersion identifies the layout of FeatureVector. Persisted
// models record the version they were trained against; a mismatch at load
// time is treated as a model-load failure, never silently misapplied.
const FeatureSchemaVersion = 1

// FeatureCount is the number of numeric inputs the classifiers consume.
const FeatureCount = 10

// FeatureVector is the fixed-size numeric/boolean record derived from a
// password. It is computed fresh per evaluation and never retains the
// password itself.
type FeatureVector struct {
	Length         int     `json:"length"`
	HasUpper       bool    `json:"has_upper"`
	HasLower       bool    `json:"has_lower"`
	HasDigit       bool    `json:"has_digit"`
	HasSymbol      bool    `json:"has_symbol"`
	Diversity      float64 `json:"char_diversity"`
	SequentialRuns int     `json:"sequential_runs"`
	RepeatedRuns   int     `json:"repeated_runs"`
	CommonPatterns int     `json:"common_patterns"`
	Entropy        float64 `json:"entropy"`
}

// ToSlice converts the vector to a float64 slice in schema order for
// model input.
func (f FeatureVector) ToSlice() []float64 {
	return []float64{
		float64(f.Length),
		boolToFloat(f.HasUpper),
		boolToFloat(f.HasLower),
		boolToFloat(f.HasDigit),
		boolToFloat(f.HasSymbol),
		f.Diversity,
		float64(f.SequentialRuns),
		float64(f.RepeatedRuns),
		float64(f.CommonPatterns),
		f.Entropy,
	}
}

// FeatureNames returns the column names in schema order.
func FeatureNames() []string {
	return []string{
		"length", "has_upper", "has_lower", "has_digit", "has_symbol",
		"char_diversity", "sequential_runs", "repeated_runs",
		"common_patterns", "entropy",
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
