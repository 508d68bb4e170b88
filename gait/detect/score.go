package detect

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-gait/stats/robust"
)

// scoreInfo summarizes how plausible a candidate event set is as a gait
// sequence. Lower total is better.
type scoreInfo struct {
	total          float64
	medianInterval float64
	cv             float64
	outsideBand    float64
}

// Scoring weights: interval plausibility dominates, interval regularity
// second, cadence match third. The expected-count penalty steepens past
// CountTolerance into a near-hard constraint.
const (
	weightOutsideBand = 5.0
	weightCV          = 2.0
	weightCadence     = 0.5
	weightCount       = 0.8
	weightCountExcess = 5.0
)

func score(events []int, sampleRate float64, cfg Config) scoreInfo {
	intervals := make([]float64, len(events)-1)
	for i := range intervals {
		intervals[i] = float64(events[i+1]-events[i]) / sampleRate
	}

	medInt := robust.Median(intervals)

	cv := 0.0
	if len(intervals) >= 2 {
		mean, sd := stat.MeanStdDev(intervals, nil)
		cv = sd / (mean + 1e-12)
	}

	outside := 0
	for _, v := range intervals {
		if v < cfg.StrideLoSec || v > cfg.StrideHiSec {
			outside++
		}
	}

	bad := float64(outside) / float64(len(intervals))

	total := weightOutsideBand*bad + weightCV*cv + weightCadence*math.Abs(medInt-cfg.TargetStrideSec)

	if cfg.ExpectedEvents > 0 {
		dev := absInt(len(events) - cfg.ExpectedEvents)
		total += weightCount * float64(dev)

		if dev > cfg.CountTolerance {
			total += weightCountExcess * float64(dev-cfg.CountTolerance)
		}
	}

	return scoreInfo{
		total:          total,
		medianInterval: medInt,
		cv:             cv,
		outsideBand:    bad,
	}
}

// resolveDoubling handles the double-detection ambiguity: when the candidate
// has implausibly many events (relative to the ExpectedEvents hint) or an
// implausibly short median interval, every-Nth subsequences (odd/even for a
// suspected 2x, every-3rd for a suspected 3x) are scored, and the best one
// replaces the candidate only when it strictly improves the score and, with
// a count hint, strictly improves proximity to the expected count.
func resolveDoubling(events []int, sampleRate float64, cfg Config) ([]int, scoreInfo) {
	best := events
	bestScore := score(events, sampleRate, cfg)

	if !suspectedMultiple(events, bestScore, cfg) {
		return best, bestScore
	}

	for _, n := range []int{2, 3} {
		for off := 0; off < n; off++ {
			sub := everyNth(events, n, off)
			if len(sub) < 2 {
				continue
			}

			sc := score(sub, sampleRate, cfg)
			if sc.total >= bestScore.total {
				continue
			}

			if cfg.ExpectedEvents > 0 &&
				absInt(len(sub)-cfg.ExpectedEvents) >= absInt(len(best)-cfg.ExpectedEvents) {
				continue
			}

			best = sub
			bestScore = sc
		}
	}

	return best, bestScore
}

func suspectedMultiple(events []int, sc scoreInfo, cfg Config) bool {
	if cfg.ExpectedEvents > 0 && len(events) > cfg.ExpectedEvents+cfg.CountTolerance {
		return true
	}

	return sc.medianInterval < cfg.StrideLoSec
}

func everyNth(events []int, n, offset int) []int {
	out := make([]int, 0, (len(events)-offset+n-1)/n)
	for i := offset; i < len(events); i += n {
		out = append(out, events[i])
	}

	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
