package ml

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/passguard/passguard-oss/pkg/analyzer"
	"github.com/passguard/passguard-oss/pkg/domain"
)

// Sample is one labeled training example. Labels are the strength class:
// 0 weak, 1 medium, 2 strong.
type Sample struct {
	Password string
	Label    int
}

// weakDictionary seeds the weak class of the synthetic dataset.
var weakDictionary = []string{
	"password", "123456", "qwerty", "abc123", "admin", "letmein",
	"welcome", "monkey", "dragon", "iloveyou", "football", "sunshine",
	"princess", "master", "shadow", "superman", "baseball", "trustno1",
}

const strongCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_+-=[]{}|;:,.<>?"

// SyntheticDataset generates a reproducible, class-balanced dataset. The
// label is derived from the generation strategy, never from re-scoring
// with the rule-based heuristic, so the trained models do not just learn
// to reproduce another method's output.
func SyntheticDataset(n int, seed int64) []Sample {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic generation, not crypto
	perClass := n / numClasses

	samples := make([]Sample, 0, perClass*numClasses)
	for label := 0; label < numClasses; label++ {
		for i := 0; i < perClass; i++ {
			var password string
			switch label {
			case 0:
				password = weakDictionary[rng.Intn(len(weakDictionary))]
			case 1:
				base := weakDictionary[rng.Intn(len(weakDictionary))]
				password = base + strconv.Itoa(1+rng.Intn(99)) + string("!@#"[rng.Intn(3)])
			default:
				length := 12 + rng.Intn(5)
				b := make([]byte, length)
				for j := range b {
					b[j] = strongCharset[rng.Intn(len(strongCharset))]
				}
				password = string(b)
			}
			samples = append(samples, Sample{Password: password, Label: label})
		}
	}
	return samples
}

// LoadCSVDataset reads (password, label) pairs from a CSV file. A header
// row is detected by a non-numeric label column and skipped. Rows with an
// out-of-range label are rejected.
func LoadCSVDataset(path string) ([]Sample, error) {
	f, err := os.Open(path) //nolint:gosec // dataset path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	var samples []Sample
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset line %d: %w", line, err)
		}
		label, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("dataset line %d: non-numeric label %q: %w", line, record[1], domain.ErrTrainingData)
		}
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("dataset line %d: label %d out of range: %w", line, label, domain.ErrTrainingData)
		}
		samples = append(samples, Sample{Password: record[0], Label: label})
	}
	return samples, nil
}

// Vectorize runs every sample through the feature extractor, producing
// the matrix the classifiers consume.
func Vectorize(samples []Sample) ([][]float64, []int) {
	X := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, s := range samples {
		X[i] = analyzer.Extract(s.Password).ToSlice()
		y[i] = s.Label
	}
	return X, y
}

// stratifiedSplit partitions indices into train/test with the given test
// fraction, preserving per-class proportions. Deterministic for a seed.
func stratifiedSplit(y []int, testFraction float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic split, not crypto

	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	for label := 0; label < numClasses; label++ {
		idx := byClass[label]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		cut := int(float64(len(idx)) * testFraction)
		test = append(test, idx[:cut]...)
		train = append(train, idx[cut:]...)
	}
	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	rng.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	return train, test
}

// kFolds partitions indices into k folds after a seeded shuffle.
func kFolds(n, k int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic folds, not crypto
	idx := rng.Perm(n)

	folds := make([][]int, k)
	for i, v := range idx {
		folds[i%k] = append(folds[i%k], v)
	}
	return folds
}
