package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrengthRankOrdering(t *testing.T) {
	assert.Equal(t, 0, StrengthVeryWeak.Rank())
	assert.Equal(t, 4, StrengthVeryStrong.Rank())
	assert.Equal(t, -1, Strength("titanium").Rank())

	assert.Less(t, StrengthWeak.Rank(), StrengthModerate.Rank())
	assert.Less(t, StrengthModerate.Rank(), StrengthStrong.Rank())
}

func TestDebugDigest(t *testing.T) {
	digest := DebugDigest("password123")

	assert.Len(t, digest, 8)
	assert.Equal(t, digest, DebugDigest("password123"), "stable per input")
	assert.NotEqual(t, digest, DebugDigest("password124"))
	assert.NotContains(t, "password123", digest)
}

func TestBreachRecordBreached(t *testing.T) {
	assert.True(t, BreachRecord{Outcome: BreachFound, Count: 1}.Breached())
	assert.False(t, BreachRecord{Outcome: BreachNotFound}.Breached())
	assert.False(t, BreachRecord{Outcome: BreachUnavailable}.Breached(),
		"inconclusive is not breached")
}

func TestModelKindsAreStable(t *testing.T) {
	kinds := ModelKinds()
	assert.Equal(t, []ModelKind{
		ModelLogisticRegression,
		ModelRandomForest,
		ModelGradientBoost,
	}, kinds)
}
