package waitroom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextThresholdAdvancesByChunk(t *testing.T) {
	assert.Equal(t, int64(5), NextThreshold(0, 5, 100))
	assert.Equal(t, int64(10), NextThreshold(5, 5, 100))
}

func TestNextThresholdClampsToDepth(t *testing.T) {
	// Eight waiting buyers, chunk of five: the threshold walks 5, 8, 8.
	cur := int64(0)
	cur = NextThreshold(cur, 5, 8)
	assert.Equal(t, int64(5), cur)
	cur = NextThreshold(cur, 5, 8)
	assert.Equal(t, int64(8), cur)
	cur = NextThreshold(cur, 5, 8)
	assert.Equal(t, int64(8), cur)
}

func TestNextThresholdNeverDecreases(t *testing.T) {
	// The queue shrank below the threshold; the threshold holds.
	assert.Equal(t, int64(8), NextThreshold(8, 5, 3))
	assert.Equal(t, int64(8), NextThreshold(8, 0, 8))
}

func TestNextThresholdEmptyQueue(t *testing.T) {
	assert.Equal(t, int64(0), NextThreshold(0, 5, 0))
}
