package detect

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-gait/stats/robust"
)

// peakFallback picks events by greedy amplitude-ranked peak selection above
// a high envelope percentile, used when no threshold candidate produced at
// least two events. Each accepted peak is refined back to an onset via a
// lower percentile threshold, then the usual offset and merge logic applies.
func peakFallback(env []float64, cfg Config, mergeGap, offset int) ([]int, float64, bool) {
	high := robust.Percentile(env, cfg.FallbackHighPct)
	low := robust.Percentile(env, cfg.FallbackLowPct)

	if math.IsNaN(high) || math.IsNaN(low) {
		return nil, 0, false
	}

	type peak struct {
		idx int
		amp float64
	}

	var peaks []peak

	for i, v := range env {
		if !(v > high) {
			continue
		}

		if i > 0 && !(v >= env[i-1]) {
			continue
		}

		if i < len(env)-1 && !(v > env[i+1]) {
			continue
		}

		peaks = append(peaks, peak{idx: i, amp: v})
	}

	if len(peaks) == 0 {
		return nil, high, false
	}

	// Strongest first; stable order keeps index ties deterministic.
	sort.SliceStable(peaks, func(a, b int) bool {
		if peaks[a].amp != peaks[b].amp {
			return peaks[a].amp > peaks[b].amp
		}

		return peaks[a].idx < peaks[b].idx
	})

	var accepted []int

	for _, p := range peaks {
		ok := true

		for _, a := range accepted {
			if absInt(p.idx-a) < mergeGap {
				ok = false
				break
			}
		}

		if ok {
			accepted = append(accepted, p.idx)
		}
	}

	sort.Ints(accepted)

	onsets := make([]int, 0, len(accepted))
	for _, p := range accepted {
		j := p
		for j > 0 && env[j-1] > low {
			j--
		}

		onsets = append(onsets, j)
	}

	sort.Ints(onsets)

	return finalizeEvents(env, onsets, offset, mergeGap), high, true
}
