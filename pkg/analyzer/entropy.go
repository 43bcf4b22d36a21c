package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/passguard/passguard-oss/pkg/domain"
)

// Character class sizes used for the effective charset estimate.
const (
	charsetLower  = 26
	charsetUpper  = 26
	charsetDigit  = 10
	charsetSymbol = 32
)

// crackTimeBuckets maps estimated entropy bits to a qualitative crack-time
// label, ordered weakest first.
var crackTimeBuckets = []struct {
	bits  float64
	label string
}{
	{28, "instant"},
	{36, "minutes"},
	{45, "hours"},
	{60, "days"},
	{75, "years"},
	{math.Inf(1), "centuries"},
}

// PatternMatch describes one structural weakness found during pattern
// decomposition.
type PatternMatch struct {
	Kind  string // "repeat", "sequence", "dictionary", "keyboard"
	Token string
}

// EntropyEstimate is the full output of the pattern/entropy estimator.
type EntropyEstimate struct {
	Bits       float64
	CharsetLen int
	CrackTime  string
	Patterns   []PatternMatch
}

// keyboardWalks are straight rows and columns on a QWERTY layout.
var keyboardWalks = []string{
	"qwerty", "asdfgh", "zxcvbn", "qwertyuiop", "asdfghjkl", "zxcvbnm",
	"1qaz", "2wsx", "qaz", "wsx", "edc",
}

// dictionaryTokens are weak words checked during pattern decomposition.
// Kept separate from keyboard walks so warnings can name the failure mode.
var dictionaryTokens = []string{
	"password", "admin", "letmein", "welcome", "monkey", "dragon",
	"login", "master", "iloveyou", "123456", "111111", "abc123",
}

// EstimateEntropy computes the charset-based entropy of a password and
// decomposes it into structural patterns. Charset size is floored at 1 so
// the empty string yields 0 bits rather than a NaN.
func EstimateEntropy(password string) EntropyEstimate {
	fv := Extract(password)

	charset := 0
	if fv.HasLower {
		charset += charsetLower
	}
	if fv.HasUpper {
		charset += charsetUpper
	}
	if fv.HasDigit {
		charset += charsetDigit
	}
	if fv.HasSymbol {
		charset += charsetSymbol
	}
	if charset < 1 {
		charset = 1
	}

	est := EntropyEstimate{
		Bits:       float64(fv.Length) * math.Log2(float64(charset)),
		CharsetLen: charset,
		Patterns:   decompose(password),
	}

	for _, bucket := range crackTimeBuckets {
		if est.Bits < bucket.bits {
			est.CrackTime = bucket.label
			break
		}
	}
	return est
}

// decompose finds repeats, sequences, dictionary substrings and keyboard
// walks. The order of matches is stable for a given input.
func decompose(password string) []PatternMatch {
	var matches []PatternMatch
	runes := []rune(password)
	lowered := strings.ToLower(password)

	i := 0
	for i < len(runes) {
		j := i
		for j < len(runes)-1 && runes[j+1] == runes[i] {
			j++
		}
		if j-i+1 >= 3 {
			matches = append(matches, PatternMatch{Kind: "repeat", Token: string(runes[i : j+1])})
		}
		i = j + 1
	}

	i = 0
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
			matches = append(matches, PatternMatch{Kind: "sequence", Token: string(runes[i : j+1])})
		}
		i = j
	}

	for _, tok := range dictionaryTokens {
		if strings.Contains(lowered, tok) {
			matches = append(matches, PatternMatch{Kind: "dictionary", Token: tok})
		}
	}
	for _, walk := range keyboardWalks {
		if strings.Contains(lowered, walk) {
			matches = append(matches, PatternMatch{Kind: "keyboard", Token: walk})
		}
	}
	return matches
}

// ScoreEntropy runs the estimator and converts the estimate into a
// ScoreResult comparable with the other methods.
func ScoreEntropy(password string) domain.ScoreResult {
	est := EstimateEntropy(password)

	// Level 0-4 from entropy bits, then capped by dominant weak patterns:
	// a dictionary hit or keyboard walk makes high raw entropy moot.
	level := 0
	switch {
	case est.Bits >= 75:
		level = 4
	case est.Bits >= 60:
		level = 3
	case est.Bits >= 45:
		level = 2
	case est.Bits >= 28:
		level = 1
	}

	var warning string
	for _, match := range est.Patterns {
		switch match.Kind {
		case "dictionary":
			if level > 1 {
				level = 1
			}
			warning = fmt.Sprintf("contains the common word %q", match.Token)
		case "keyboard":
			if level > 1 {
				level = 1
			}
			if warning == "" {
				warning = fmt.Sprintf("contains the keyboard pattern %q", match.Token)
			}
		case "sequence", "repeat":
			if level > 2 {
				level = 2
			}
		}
	}

	score := float64(level) * 25
	var feedback []string
	if level < 3 {
		feedback = append(feedback, "Increase length and mix unrelated characters")
	}
	if warning != "" {
		feedback = append(feedback, "Avoid common words and keyboard patterns")
	}

	return domain.ScoreResult{
		Method:   domain.MethodPatternEntropy,
		Score:    score,
		Strength: DefaultThresholds.Bucket(score),
		Feedback: feedback,
		Warning:  warning,
	}
}
