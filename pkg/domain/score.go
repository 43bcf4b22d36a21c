package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Strength is a qualitative bucket derived by thresholding a numeric score.
type Strength string

const (
	StrengthVeryWeak   Strength = "very_weak"
	StrengthWeak       Strength = "weak"
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very_strong"
)

// strengthOrder lists buckets from weakest to strongest.
var strengthOrder = []Strength{
	StrengthVeryWeak,
	StrengthWeak,
	StrengthModerate,
	StrengthStrong,
	StrengthVeryStrong,
}

// Rank returns the position of the bucket in weakest-first order, or -1
// for an unknown label.
func (s Strength) Rank() int {
	for i, v := range strengthOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// Demote returns the bucket one step weaker, saturating at the weakest.
func (s Strength) Demote() Strength {
	rank := s.Rank()
	if rank <= 0 {
		return StrengthVeryWeak
	}
	return strengthOrder[rank-1]
}

// Scoring method identifiers. Each ScoreResult carries the method that
// produced it so the aggregator can weight them.
const (
	MethodRuleBased      = "rule_based"
	MethodPatternEntropy = "pattern_entropy"
	MethodMLEnsemble     = "ml_ensemble"
)

// ScoreResult is the output of a single scoring method. It is immutable
// once produced.
type ScoreResult struct {
	Method     string   `json:"method"`
	Score      float64  `json:"score"`
	Strength   Strength `json:"strength"`
	Confidence float64  `json:"confidence,omitempty"`
	Feedback   []string `json:"feedback,omitempty"`
	Warning    string   `json:"warning,omitempty"`
}

// BreachOutcome distinguishes a conclusive lookup from an inconclusive one.
type BreachOutcome string

const (
	BreachFound       BreachOutcome = "found"
	BreachNotFound    BreachOutcome = "not_found"
	BreachUnavailable BreachOutcome = "unavailable"
)

// BreachRecord is the per-call result of a breach corpus lookup. It is
// never written to durable storage.
type BreachRecord struct {
	Outcome BreachOutcome `json:"outcome"`
	Count   int           `json:"count"`
	Message string        `json:"message,omitempty"`
}

// Breached reports whether the lookup conclusively found the password.
func (r BreachRecord) Breached() bool { return r.Outcome == BreachFound }

// AggregateReport combines the per-method results into one overall score
// and strength label. OverallScore is always within [0,100] and is a
// deterministic function of the per-method inputs.
type AggregateReport struct {
	DebugDigest     string        `json:"digest"`
	Length          int           `json:"length"`
	Results         []ScoreResult `json:"results"`
	Breach          *BreachRecord `json:"breach,omitempty"`
	OverallScore    float64       `json:"overall_score"`
	OverallStrength Strength      `json:"overall_strength"`
	Feedback        []string      `json:"feedback,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// DebugDigest returns a short non-reversible token for correlating log
// lines about a password without logging the password or the hash used by
// the breach protocol.
func DebugDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])[:8]
}
