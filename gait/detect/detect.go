// Package detect estimates heel-strike events from an EMG activation
// envelope.
//
// The detector is a search-and-score optimization rather than a state
// machine: it sweeps an adaptive threshold multiplier k over a configured
// range, extracts burst onsets at each threshold, and keeps the candidate
// event set whose inter-event timing scores best against a plausible stride
// model. A percentile-based peak picker serves as fallback when no threshold
// produces at least two events.
package detect

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-gait/stats/robust"
)

var (
	ErrConfig   = errors.New("detect: invalid configuration")
	ErrNoEvents = errors.New("detect: fewer than two plausible events found")
)

// minFiniteRatio is the fraction of finite envelope samples required before
// any detection is attempted.
const minFiniteRatio = 0.95

// Mode identifies the strategy that produced a detection result.
type Mode int

const (
	// ModeThreshold marks events found by the adaptive-threshold sweep.
	ModeThreshold Mode = iota

	// ModePeakFallback marks events found by percentile peak picking after
	// the threshold sweep produced no usable candidate.
	ModePeakFallback

	// ModeExternal marks events confirmed or supplied by an external source
	// (video-derived or manually entered timestamps).
	ModeExternal
)

func (m Mode) String() string {
	switch m {
	case ModeThreshold:
		return "threshold"
	case ModePeakFallback:
		return "peak-fallback"
	case ModeExternal:
		return "external"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Config holds the detector parameters. The merge gap (detection mechanics)
// and the plausible stride band (physiological plausibility) are deliberately
// independent knobs.
type Config struct {
	// KMin, KMax, KStep define the inclusive threshold-multiplier sweep.
	KMin, KMax, KStep float64

	// MinBurstMs drops bursts shorter than this duration.
	MinBurstMs float64

	// MergeGapMs merges events closer together than this, keeping the
	// higher-amplitude one.
	MergeGapMs float64

	// OffsetMs shifts every event by a constant to compensate the lag
	// between burst onset and the physiological event. May be negative.
	OffsetMs float64

	// ExpectedEvents is an optional count hint; 0 disables it.
	ExpectedEvents int

	// CountTolerance is the deviation from ExpectedEvents beyond which the
	// score penalty steepens into a near-hard constraint.
	CountTolerance int

	// StrideLoSec and StrideHiSec bound plausible inter-event intervals.
	StrideLoSec, StrideHiSec float64

	// TargetStrideSec is the stride duration the median interval is scored
	// against.
	TargetStrideSec float64

	// BaselineExclusionSec excludes a leading settle-in window from the
	// baseline statistics.
	BaselineExclusionSec float64

	// OnsetNearPeak refines each burst onset by walking backward from the
	// within-burst peak to a secondary, lower threshold instead of using
	// the rising edge directly.
	OnsetNearPeak bool

	// FallbackHighPct and FallbackLowPct are the percentiles used by the
	// peak-picking fallback for peak admission and onset refinement.
	FallbackHighPct, FallbackLowPct float64
}

// DefaultConfig returns detector defaults tuned for walking EMG at
// moderate cadence.
func DefaultConfig() Config {
	return Config{
		KMin:            1.2,
		KMax:            4.0,
		KStep:           0.1,
		MinBurstMs:      30,
		MergeGapMs:      300,
		CountTolerance:  3,
		StrideLoSec:     0.35,
		StrideHiSec:     1.6,
		TargetStrideSec: 0.7,
		FallbackHighPct: 80,
		FallbackLowPct:  60,
	}
}

// Validate reports the first configuration problem, or nil.
func (c Config) Validate() error {
	switch {
	case c.KStep <= 0:
		return fmt.Errorf("%w: KStep must be positive, got %g", ErrConfig, c.KStep)
	case c.KMin > c.KMax:
		return fmt.Errorf("%w: KMin %g exceeds KMax %g", ErrConfig, c.KMin, c.KMax)
	case c.MinBurstMs < 0:
		return fmt.Errorf("%w: MinBurstMs must be non-negative, got %g", ErrConfig, c.MinBurstMs)
	case c.MergeGapMs < 0:
		return fmt.Errorf("%w: MergeGapMs must be non-negative, got %g", ErrConfig, c.MergeGapMs)
	case c.StrideLoSec <= 0 || c.StrideHiSec <= c.StrideLoSec:
		return fmt.Errorf("%w: stride band [%g, %g] s is not a valid interval",
			ErrConfig, c.StrideLoSec, c.StrideHiSec)
	case c.ExpectedEvents < 0:
		return fmt.Errorf("%w: ExpectedEvents must be non-negative, got %d", ErrConfig, c.ExpectedEvents)
	}

	return nil
}

// Result is the winning candidate of the detection search.
type Result struct {
	// K is the threshold multiplier that won, 0 for the peak fallback.
	K float64

	// Threshold is the envelope level events were extracted at.
	Threshold float64

	// Events are ascending, duplicate-free sample indices into the
	// envelope, at least MergeGap samples apart.
	Events []int

	// Score is the winning candidate's score (lower is better).
	Score float64

	// Mode tags the strategy that produced the events.
	Mode Mode

	// MedianIntervalSec and IntervalCV are timing diagnostics of Events.
	MedianIntervalSec float64
	IntervalCV        float64
}

// Events runs the full detection search over an activation envelope sampled
// at sampleRate Hz. The envelope is read-only; the returned result owns its
// slices. It fails with ErrNoEvents when no strategy yields at least two
// plausible events, naming the reason.
func Events(env []float64, sampleRate float64, cfg Config) (Result, error) {
	if sampleRate <= 0 {
		return Result{}, fmt.Errorf("%w: sample rate must be positive, got %g", ErrConfig, sampleRate)
	}

	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	if ratio := robust.FiniteRatio(env); ratio < minFiniteRatio {
		return Result{}, fmt.Errorf("detect: %.1f%% of envelope samples are finite, need %.0f%% (excess non-finite samples): %w",
			ratio*100, minFiniteRatio*100, ErrNoEvents)
	}

	baseline := env
	if skip := int(cfg.BaselineExclusionSec * sampleRate); skip > 0 && skip < len(env) {
		baseline = env[skip:]
	}

	med := robust.Median(baseline)
	sigma := robust.Sigma(baseline)

	minBurst := max(1, int(math.Round(sampleRate*cfg.MinBurstMs/1000)))
	mergeGap := max(1, int(math.Round(sampleRate*cfg.MergeGapMs/1000)))
	offset := int(math.Round(sampleRate * cfg.OffsetMs / 1000))

	best := Result{Score: math.Inf(1)}
	found := false

	if !math.IsNaN(med) && !math.IsNaN(sigma) && sigma > 0 {
		steps := int(math.Floor((cfg.KMax-cfg.KMin)/cfg.KStep+1e-9)) + 1
		for i := 0; i < steps; i++ {
			k := cfg.KMin + float64(i)*cfg.KStep
			thr := med + k*sigma
			low := med + 0.5*k*sigma

			events := thresholdEvents(env, thr, low, minBurst, mergeGap, offset, cfg.OnsetNearPeak)
			if len(events) < 2 {
				continue
			}

			events, sc := resolveDoubling(events, sampleRate, cfg)
			if sc.total < best.Score {
				best = Result{
					K:                 k,
					Threshold:         thr,
					Events:            events,
					Score:             sc.total,
					Mode:              ModeThreshold,
					MedianIntervalSec: sc.medianInterval,
					IntervalCV:        sc.cv,
				}
				found = true
			}
		}
	}

	if !found {
		events, thr, ok := peakFallback(env, cfg, mergeGap, offset)
		if ok && len(events) >= 2 {
			events, sc := resolveDoubling(events, sampleRate, cfg)
			best = Result{
				Threshold:         thr,
				Events:            events,
				Score:             sc.total,
				Mode:              ModePeakFallback,
				MedianIntervalSec: sc.medianInterval,
				IntervalCV:        sc.cv,
			}
			found = true
		}
	}

	if !found {
		return Result{}, noEventsError(env, med, sigma)
	}

	return best, nil
}

func noEventsError(env []float64, med, sigma float64) error {
	if math.IsNaN(med) || math.IsNaN(sigma) || sigma <= 0 || !risesAbove(env, med) {
		return fmt.Errorf("detect: signal too weak, envelope never rises above its baseline: %w", ErrNoEvents)
	}

	return fmt.Errorf("detect: no threshold in the k range yields two plausible events, widen the k range or lower MergeGapMs: %w",
		ErrNoEvents)
}

func risesAbove(env []float64, level float64) bool {
	for _, v := range env {
		if v > level {
			return true
		}
	}

	return false
}
