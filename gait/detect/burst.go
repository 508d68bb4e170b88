package detect

// burst is a maximal run [start, end) of envelope samples above a threshold.
type burst struct {
	start, end int
}

// runsAbove returns the maximal runs where env exceeds thr. A run touching
// the first or last sample is treated as rising or falling at the recording
// boundary. Non-finite samples never exceed thr and so terminate runs.
func runsAbove(env []float64, thr float64) []burst {
	var (
		out  []burst
		open bool
		s    int
	)

	for i, v := range env {
		above := v > thr
		if above && !open {
			open = true
			s = i
		}

		if !above && open {
			open = false

			out = append(out, burst{s, i})
		}
	}

	if open {
		out = append(out, burst{s, len(env)})
	}

	return out
}

// onsetNearPeak walks backward from the within-burst peak until the envelope
// drops below the secondary threshold, approximating the point of maximum
// slope near the burst's rise.
func onsetNearPeak(env []float64, b burst, low float64) int {
	peak := b.start
	for i := b.start + 1; i < b.end; i++ {
		if env[i] > env[peak] {
			peak = i
		}
	}

	j := peak
	for j > b.start && env[j-1] > low {
		j--
	}

	return j
}

// thresholdEvents derives one event per sufficiently long burst, applies the
// constant onset offset, and merges events closer than mergeGap.
func thresholdEvents(env []float64, thr, low float64, minBurst, mergeGap, offset int, nearPeak bool) []int {
	bursts := runsAbove(env, thr)

	raw := make([]int, 0, len(bursts))
	for _, b := range bursts {
		if b.end-b.start < minBurst {
			continue
		}

		idx := b.start
		if nearPeak {
			idx = onsetNearPeak(env, b, low)
		}

		raw = append(raw, idx)
	}

	return finalizeEvents(env, raw, offset, mergeGap)
}

// finalizeEvents shifts ascending raw events by offset, drops any that leave
// the recording, and merges neighbors closer than mergeGap, keeping the
// higher-amplitude event of each pair (the earlier one on ties).
func finalizeEvents(env []float64, raw []int, offset, mergeGap int) []int {
	shifted := make([]int, 0, len(raw))
	for _, e := range raw {
		e += offset
		if e >= 0 && e < len(env) {
			shifted = append(shifted, e)
		}
	}

	if len(shifted) == 0 {
		return shifted
	}

	out := shifted[:1]
	for _, e := range shifted[1:] {
		last := out[len(out)-1]
		if e-last >= mergeGap {
			out = append(out, e)
			continue
		}

		if env[e] > env[last] {
			out[len(out)-1] = e
		}
	}

	return out
}
