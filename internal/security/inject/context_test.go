package inject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextualRisk_InsideQuotes(t *testing.T) {
	value := `name=O'Brien' OR 1=1`
	idx := 12 // position of "OR" in the string above, approximately inside quotes
	risk := contextualRisk(value, idx, 0.8)
	assert.GreaterOrEqual(t, risk, 0.8)
}

func TestContextualRisk_InsideComment(t *testing.T) {
	value := "-- OR 1=1"
	risk := contextualRisk(value, 3, 0.8)
	assert.Less(t, risk, 0.8)
}

func TestContextualRisk_Neutral(t *testing.T) {
	value := "plain text OR 1=1"
	risk := contextualRisk(value, 11, 0.8)
	assert.Equal(t, 0.8, risk)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.5, clamp01(0.5))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel...", truncate("hello", 3))
}
