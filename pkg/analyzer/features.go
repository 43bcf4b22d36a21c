// Package analyzer implements the deterministic scoring methods: feature
// extraction, the pattern/entropy estimator, the rule-based scorer and the
// aggregator that folds per-method results into one report.
package analyzer

import (
	"math"
	"strings"
	"unicode"

	"github.com/passguard/passguard-oss/pkg/domain"
)

// maxPasswordLength bounds the input accepted at the engine boundary.
const maxPasswordLength = 1000

// commonTokens are weak substrings checked case-insensitively, including a
// small set of keyboard-adjacency walks.
var commonTokens = []string{
	"password", "123456", "admin", "letmein", "welcome",
	"123", "abc", "qwe", "asd", "zxc", "!@#",
	"qwerty", "asdfgh", "zxcvbn",
}

// Sanitize truncates oversized input and strips control characters. The
// result may be empty; an empty password is valid input, not an error.
func Sanitize(password string) string {
	if len(password) > maxPasswordLength {
		// Truncate on a character boundary so a multi-byte rune at the
		// cut never degrades into a replacement character.
		runes := []rune(password)
		if len(runes) > maxPasswordLength {
			runes = runes[:maxPasswordLength]
		}
		password = string(runes)
	}
	var b strings.Builder
	b.Grow(len(password))
	for _, r := range password {
		if r >= 32 || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Extract computes the feature vector for a password. Pure and
// deterministic; the empty string yields the zero vector.
func Extract(password string) domain.FeatureVector {
	runes := []rune(password)

	fv := domain.FeatureVector{Length: len(runes)}
	if len(runes) == 0 {
		return fv
	}

	distinct := make(map[rune]int, len(runes))
	for _, r := range runes {
		distinct[r]++
		switch {
		case unicode.IsUpper(r):
			fv.HasUpper = true
		case unicode.IsLower(r):
			fv.HasLower = true
		case unicode.IsDigit(r):
			fv.HasDigit = true
		default:
			fv.HasSymbol = true
		}
	}
	fv.Diversity = float64(len(distinct)) / float64(len(runes))

	fv.SequentialRuns = countSequentialRuns(runes)
	fv.RepeatedRuns = countRepeatedRuns(runes)

	lowered := strings.ToLower(password)
	for _, tok := range commonTokens {
		if strings.Contains(lowered, tok) {
			fv.CommonPatterns++
		}
	}

	fv.Entropy = shannonEntropy(runes, distinct)
	return fv
}

// countSequentialRuns counts maximal runs of length >= 3 where adjacent
// code points differ by exactly +1 or -1 throughout the run.
func countSequentialRuns(runes []rune) int {
	runs := 0
	i := 0
	for i < len(runes)-1 {
		diff := runes[i+1] - runes[i]
		if diff != 1 && diff != -1 {
			i++
			continue
		}
		j := i + 1
		for j < len(runes)-1 && runes[j+1]-runes[j] == diff {
			j++
		}
		if j-i+1 >= 3 {
			runs++
		}
		i = j
	}
	return runs
}

// countRepeatedRuns counts maximal runs of >= 3 identical adjacent
// characters.
func countRepeatedRuns(runes []rune) int {
	runs := 0
	i := 0
	for i < len(runes) {
		j := i
		for j < len(runes)-1 && runes[j+1] == runes[i] {
			j++
		}
		if j-i+1 >= 3 {
			runs++
		}
		i = j + 1
	}
	return runs
}

// shannonEntropy computes frequency-based entropy in bits per character.
// Terms are summed in first-occurrence order: float accumulation is not
// associative, so iterating the count map directly would make the result
// vary between identical calls.
func shannonEntropy(runes []rune, counts map[rune]int) float64 {
	if len(runes) == 0 {
		return 0
	}
	var entropy float64
	total := float64(len(runes))
	seen := make(map[rune]struct{}, len(counts))
	for _, r := range runes {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		p := float64(counts[r]) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
