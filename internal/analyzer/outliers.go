package analyzer

import (
	"fmt"
	"math"
)

// OutlierOptions tunes outlier detection and re-weighting.
type OutlierOptions struct {
	// Threshold is the deviation, in standard deviations, beyond which a
	// score is an outlier.
	Threshold float64 `json:"threshold"`

	// MinReviews is the smallest population in which outliers are flagged.
	MinReviews int `json:"min_reviews"`

	// MinWeightFactor floors an outlier's weight as a fraction of its base.
	MinWeightFactor float64 `json:"min_weight_factor"`
}

// DefaultOutlierOptions returns the reference constants.
func DefaultOutlierOptions() OutlierOptions {
	return OutlierOptions{
		Threshold:       2.0,
		MinReviews:      3,
		MinWeightFactor: 0.25,
	}
}

func (o OutlierOptions) withDefaults() OutlierOptions {
	d := DefaultOutlierOptions()
	if o.Threshold <= 0 {
		o.Threshold = d.Threshold
	}
	if o.MinReviews <= 0 {
		o.MinReviews = d.MinReviews
	}
	if o.MinWeightFactor <= 0 || o.MinWeightFactor > 1 {
		o.MinWeightFactor = d.MinWeightFactor
	}
	return o
}

// AdjustOutliers returns a copy of scores with AdjustedWeight, HasOutliers
// and AdjustmentDetails recomputed from each score's BaseWeight. An outlier's
// weight shrinks in proportion to how far past the threshold it sits, never
// below MinWeightFactor of its base. The input is not modified.
func AdjustOutliers(scores []CompetencyScore, opts OutlierOptions) []CompetencyScore {
	opts = opts.withDefaults()

	out := make([]CompetencyScore, len(scores))
	copy(out, scores)
	for i := range out {
		out[i].AdjustedWeight = out[i].BaseWeight
		out[i].HasOutliers = false
		out[i].AdjustmentDetails = nil
	}

	if len(out) < opts.MinReviews {
		return out
	}

	xs := scoreValues(out)
	m := mean(xs)
	sd := stdDev(xs)
	if sd == 0 {
		return out
	}

	for i := range out {
		z := math.Abs(out[i].Score-m) / sd
		if z <= opts.Threshold {
			continue
		}
		factor := math.Max(opts.Threshold/z, opts.MinWeightFactor)
		adjusted := out[i].BaseWeight * factor
		out[i].HasOutliers = true
		out[i].AdjustedWeight = adjusted
		out[i].AdjustmentDetails = &AdjustmentDetails{
			Mean:           m,
			StdDev:         sd,
			ZScore:         z,
			OriginalWeight: out[i].BaseWeight,
			AdjustedWeight: adjusted,
			Reason:         fmt.Sprintf("score %.2f is %.2f standard deviations from mean %.2f", out[i].Score, z, m),
		}
	}
	return out
}

// CountOutliers returns how many scores are flagged as outliers.
func CountOutliers(scores []CompetencyScore) int {
	n := 0
	for _, s := range scores {
		if s.HasOutliers {
			n++
		}
	}
	return n
}
