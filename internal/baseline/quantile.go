package baseline

import "github.com/guregu/null/v6"

// Quantile returns the linearly interpolated q-quantile of an ascending
// sorted sample. A single-element sample returns that element for every q;
// an empty sample has no quantile at all, not a zero one.
func Quantile(sorted []float64, q float64) null.Float {
	if len(sorted) == 0 {
		return null.Float{}
	}
	if len(sorted) == 1 {
		return null.FloatFrom(sorted[0])
	}
	pos := float64(len(sorted)-1) * q
	lo := int(pos)
	hi := lo + 1
	if hi > len(sorted)-1 {
		hi = len(sorted) - 1
	}
	frac := pos - float64(lo)
	return null.FloatFrom(sorted[lo]*(1-frac) + sorted[hi]*frac)
}
