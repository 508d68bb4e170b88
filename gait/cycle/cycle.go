// Package cycle normalizes an activation envelope across gait cycles: scale
// to percent of peak, resample each inter-event segment onto a fixed 0-100%
// grid, and aggregate mean and standard-deviation curves.
//
// Numeric degeneracies (missing peak reference, too-short segments) surface
// as NaN or skipped cycles rather than errors, so upstream data problems
// stay observable without breaking the pipeline.
package cycle

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"
)

var ErrGrid = errors.New("cycle: grid must have at least 2 points")

// minSegmentSamples is the shortest inter-event segment that can be
// meaningfully resampled.
const minSegmentSamples = 3

// PercentPeak scales env so its maximum over the retained event span equals
// 100. The reference is the largest finite value between the first and last
// event; with fewer than two events the global finite maximum is used. A
// non-positive or non-finite reference yields an all-NaN slice, signaling an
// upstream data failure instead of crashing.
func PercentPeak(env []float64, events []int) []float64 {
	region := env
	if len(events) >= 2 {
		region = env[events[0]:events[len(events)-1]]
	}

	ref := maxFinite(region)

	out := make([]float64, len(env))

	if math.IsNaN(ref) || ref <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}

		return out
	}

	vecmath.ScaleBlock(out, env, 100/ref)

	return out
}

// Normalize resamples each segment between consecutive events onto n equally
// spaced points covering 0-100% of the segment's sample-index span. Segments
// shorter than 3 samples are skipped. Every returned cycle has exactly n
// points; the shared grid runs from 0 to 100 inclusive.
func Normalize(envPct []float64, events []int, n int) (grid []float64, cycles [][]float64, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrGrid, n)
	}

	grid = make([]float64, n)
	for i := range grid {
		grid[i] = 100 * float64(i) / float64(n-1)
	}

	for i := 0; i+1 < len(events); i++ {
		s, e := events[i], events[i+1]
		if e-s < minSegmentSamples || s < 0 || e > len(envPct) {
			continue
		}

		cycles = append(cycles, resample(envPct[s:e], n))
	}

	return grid, cycles, nil
}

// resample maps seg onto n points via linear interpolation, with grid point
// 0 at the first sample and grid point n-1 at the last.
func resample(seg []float64, n int) []float64 {
	out := make([]float64, n)

	span := float64(len(seg) - 1)
	for g := range out {
		pos := span * float64(g) / float64(n-1)

		lo := int(math.Floor(pos))
		if lo >= len(seg)-1 {
			out[g] = seg[len(seg)-1]
			continue
		}

		frac := pos - float64(lo)
		out[g] = seg[lo] + frac*(seg[lo+1]-seg[lo])
	}

	return out
}

// Aggregate computes the per-grid-point mean and sample standard deviation
// across cycles, treating non-finite contributions as absent. Mean is NaN
// where no finite value contributes; SD is NaN below two contributors.
func Aggregate(cycles [][]float64) (mean, sd []float64) {
	if len(cycles) == 0 {
		return nil, nil
	}

	n := len(cycles[0])
	mean = make([]float64, n)
	sd = make([]float64, n)

	vals := make([]float64, 0, len(cycles))

	for j := 0; j < n; j++ {
		vals = vals[:0]

		for _, c := range cycles {
			if v := c[j]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}

		switch len(vals) {
		case 0:
			mean[j] = math.NaN()
			sd[j] = math.NaN()
		case 1:
			mean[j] = vals[0]
			sd[j] = math.NaN()
		default:
			mean[j], sd[j] = stat.MeanStdDev(vals, nil)
		}
	}

	return mean, sd
}

func maxFinite(x []float64) float64 {
	best := math.NaN()
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}

		if math.IsNaN(best) || v > best {
			best = v
		}
	}

	return best
}
