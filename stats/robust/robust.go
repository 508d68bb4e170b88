// Package robust provides outlier-resistant statistics used throughout the
// gait pipeline: median, median absolute deviation (MAD), and percentiles.
//
// All functions ignore non-finite entries (NaN, +/-Inf) and return NaN when
// no finite values remain, so degenerate inputs propagate as observable NaNs
// rather than panics.
package robust

import (
	"math"
	"sort"
)

const (
	// madToSigma rescales MAD to an equivalent standard deviation under a
	// normal-distribution assumption.
	madToSigma = 1.4826

	// iqrToSigma rescales the inter-quartile range to an equivalent standard
	// deviation under the same assumption.
	iqrToSigma = 1.349

	// madFloor is the spread below which MAD is considered degenerate.
	madFloor = 1e-12
)

// Finite returns a new slice holding only the finite entries of x.
func Finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}

	return out
}

// FiniteRatio returns the fraction of entries in x that are finite.
// Returns 0 for an empty slice.
func FiniteRatio(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	n := 0
	for _, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}

	return float64(n) / float64(len(x))
}

// Median returns the median of the finite entries of x. For even counts the
// two central order statistics are averaged. Returns NaN if no finite entry
// remains.
func Median(x []float64) float64 {
	return Percentile(x, 50)
}

// MAD returns the median absolute deviation from the median over the finite
// entries of x. Returns NaN if no finite entry remains.
func MAD(x []float64) float64 {
	med := Median(x)
	if math.IsNaN(med) {
		return math.NaN()
	}

	dev := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			dev = append(dev, math.Abs(v-med))
		}
	}

	return Percentile(dev, 50)
}

// Percentile returns the p-th percentile (p in [0, 100]) of the finite
// entries of x using linear interpolation between order statistics.
// Returns NaN on an empty or all-non-finite input or when p is out of range.
func Percentile(x []float64, p float64) float64 {
	if p < 0 || p > 100 || math.IsNaN(p) {
		return math.NaN()
	}

	s := Finite(x)
	if len(s) == 0 {
		return math.NaN()
	}

	sort.Float64s(s)

	if len(s) == 1 {
		return s[0]
	}

	// Fractional rank over the n order statistics: h in [0, n-1].
	h := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(h))
	if lo >= len(s)-1 {
		return s[len(s)-1]
	}

	frac := h - float64(lo)

	return s[lo] + frac*(s[lo+1]-s[lo])
}

// Sigma returns a robust spread estimate of x: 1.4826 * MAD, matching the
// standard deviation of a normal distribution. When MAD is degenerate (NaN
// or below 1e-12, e.g. for a flat signal) it substitutes the percentile
// spread (P75 - P25) / 1.349 instead.
func Sigma(x []float64) float64 {
	m := MAD(x)
	if !math.IsNaN(m) && m >= madFloor {
		return madToSigma * m
	}

	return (Percentile(x, 75) - Percentile(x, 25)) / iqrToSigma
}
