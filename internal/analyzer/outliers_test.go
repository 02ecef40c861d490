package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustOutliers_FlagsAndReweights(t *testing.T) {
	adjusted := AdjustOutliers(nineAndOne(), DefaultOutlierOptions())
	require.Len(t, adjusted, 10)

	for i := 0; i < 9; i++ {
		assert.False(t, adjusted[i].HasOutliers)
		assert.Nil(t, adjusted[i].AdjustmentDetails)
		assert.Equal(t, adjusted[i].BaseWeight, adjusted[i].AdjustedWeight)
	}

	out := adjusted[9]
	require.True(t, out.HasOutliers)
	require.NotNil(t, out.AdjustmentDetails)
	assert.InDelta(t, 3.7, out.AdjustmentDetails.Mean, 1e-9)
	assert.InDelta(t, 0.9, out.AdjustmentDetails.StdDev, 1e-9)
	assert.InDelta(t, 3.0, out.AdjustmentDetails.ZScore, 1e-9)
	assert.Equal(t, 0.35, out.AdjustmentDetails.OriginalWeight)
	assert.InDelta(t, 0.35*2/3, out.AdjustedWeight, 1e-9)
	assert.Equal(t, out.AdjustedWeight, out.AdjustmentDetails.AdjustedWeight)
	assert.NotEmpty(t, out.AdjustmentDetails.Reason)
	assert.Equal(t, 1, CountOutliers(adjusted))
}

func TestAdjustOutliers_WeightConservation(t *testing.T) {
	scores := nineAndOne()
	adjusted := AdjustOutliers(scores, DefaultOutlierOptions())

	var base, kept float64
	for i, s := range adjusted {
		if s.HasOutliers {
			assert.Less(t, s.AdjustedWeight, s.BaseWeight)
			continue
		}
		base += scores[i].BaseWeight
		kept += s.AdjustedWeight
	}
	assert.InDelta(t, base, kept, 1e-12)
}

func TestAdjustOutliers_WeightFloor(t *testing.T) {
	opts := OutlierOptions{Threshold: 1.0, MinWeightFactor: 0.5}
	adjusted := AdjustOutliers(nineAndOne(), opts)
	// z = 3 gives 1/3, floored at 0.5.
	assert.InDelta(t, 0.35*0.5, adjusted[9].AdjustedWeight, 1e-9)
}

func TestAdjustOutliers_TooFewReviews(t *testing.T) {
	scores := scoresFor("Communication",
		rating{rel: "senior", score: 5},
		rating{rel: "peer", score: 1},
	)
	adjusted := AdjustOutliers(scores, DefaultOutlierOptions())
	assert.Zero(t, CountOutliers(adjusted))
}

func TestAdjustOutliers_ZeroSpread(t *testing.T) {
	scores := scoresFor("Communication",
		rating{rel: "senior", score: 3},
		rating{rel: "peer", score: 3},
		rating{rel: "junior", score: 3},
		rating{rel: "peer", score: 3},
	)
	adjusted := AdjustOutliers(scores, DefaultOutlierOptions())
	assert.Zero(t, CountOutliers(adjusted))
	for _, s := range adjusted {
		assert.Equal(t, s.BaseWeight, s.AdjustedWeight)
	}
}

func TestAdjustOutliers_Idempotent(t *testing.T) {
	once := AdjustOutliers(nineAndOne(), DefaultOutlierOptions())
	twice := AdjustOutliers(once, DefaultOutlierOptions())
	assert.Equal(t, once, twice)
}

func TestAdjustOutliers_DoesNotMutateInput(t *testing.T) {
	scores := nineAndOne()
	AdjustOutliers(scores, DefaultOutlierOptions())
	for _, s := range scores {
		assert.False(t, s.HasOutliers)
		assert.Equal(t, s.BaseWeight, s.AdjustedWeight)
	}
}

func TestAdjustOutliers_Empty(t *testing.T) {
	adjusted := AdjustOutliers(nil, DefaultOutlierOptions())
	if len(adjusted) != 0 {
		t.Fatalf("expected empty result, got %d scores", len(adjusted))
	}
}
