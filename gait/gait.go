// Package gait orchestrates the full EMG gait-analysis pipeline: band
// conditioning, envelope extraction, heel-strike detection, optional
// cross-source reconciliation, and cycle-normalized activation statistics.
//
// The package is a pure numeric library. It holds no state, performs no I/O,
// and is deterministic: identical inputs yield bit-identical outputs.
package gait

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-gait/dsp/envelope"
	"github.com/cwbudde/algo-gait/dsp/zerophase"
	"github.com/cwbudde/algo-gait/gait/cycle"
	"github.com/cwbudde/algo-gait/gait/detect"
	"github.com/cwbudde/algo-gait/gait/sync"
	"github.com/cwbudde/algo-gait/stats/robust"
)

var (
	ErrConfig           = errors.New("gait: invalid configuration")
	ErrInsufficientData = errors.New("gait: insufficient data")
)

// minFiniteRatio is the fraction of finite raw samples required before the
// pipeline runs. Recordings below it carry too many dropouts to trust.
const minFiniteRatio = 0.95

// Config bundles the parameters of every pipeline stage. Zero is not a
// usable configuration; start from DefaultConfig and adjust.
type Config struct {
	// HighpassHz and LowpassHz bound the conditioning band. Either may be 0
	// to disable that side.
	HighpassHz float64
	LowpassHz  float64

	// RMSWindowMs is the centered moving-RMS window of the envelope.
	RMSWindowMs float64

	// KMin, KMax, KStep define the detector's inclusive threshold sweep.
	KMin, KMax, KStep float64

	// MinBurstMs drops activation bursts shorter than this duration.
	MinBurstMs float64

	// MergeGapMs merges detected events closer together than this.
	MergeGapMs float64

	// OffsetMs shifts every detected event by a constant; may be negative.
	OffsetMs float64

	// ExpectedEvents is an optional count hint for the detector; 0 disables.
	ExpectedEvents int

	// CountTolerance is the deviation from ExpectedEvents beyond which the
	// detector's count penalty steepens sharply.
	CountTolerance int

	// StrideLoSec and StrideHiSec bound plausible inter-event intervals.
	// Independent of MergeGapMs: one is detection mechanics, the other
	// physiological plausibility.
	StrideLoSec, StrideHiSec float64

	// TargetStrideSec is the stride duration candidate timings are scored
	// against.
	TargetStrideSec float64

	// BaselineExclusionSec excludes a leading settle-in window from the
	// detector's baseline statistics.
	BaselineExclusionSec float64

	// OnsetNearPeak switches burst onsets to the walk-back-from-peak
	// refinement.
	OnsetNearPeak bool

	// FallbackHighPct and FallbackLowPct drive the detector's percentile
	// peak-picking fallback.
	FallbackHighPct, FallbackLowPct float64

	// CyclePoints is the length of the normalized 0-100% cycle grid.
	CyclePoints int

	// Sync configures reconciliation against external event timestamps,
	// used by AnalyzeWithEvents only.
	Sync sync.Config
}

// DefaultConfig returns the pipeline defaults for surface EMG during
// walking: a 50-450 Hz band, 50 ms RMS window, and a 501-point cycle grid.
func DefaultConfig() Config {
	d := detect.DefaultConfig()

	return Config{
		HighpassHz:      50,
		LowpassHz:       450,
		RMSWindowMs:     50,
		KMin:            d.KMin,
		KMax:            d.KMax,
		KStep:           d.KStep,
		MinBurstMs:      d.MinBurstMs,
		MergeGapMs:      d.MergeGapMs,
		CountTolerance:  d.CountTolerance,
		StrideLoSec:     d.StrideLoSec,
		StrideHiSec:     d.StrideHiSec,
		TargetStrideSec: d.TargetStrideSec,
		FallbackHighPct: d.FallbackHighPct,
		FallbackLowPct:  d.FallbackLowPct,
		CyclePoints:     501,
		Sync:            sync.DefaultConfig(),
	}
}

// Validate reports the first configuration problem, or nil.
func (c Config) Validate() error {
	switch {
	case c.HighpassHz < 0:
		return fmt.Errorf("%w: HighpassHz must be non-negative, got %g", ErrConfig, c.HighpassHz)
	case c.LowpassHz < 0:
		return fmt.Errorf("%w: LowpassHz must be non-negative, got %g", ErrConfig, c.LowpassHz)
	case c.RMSWindowMs <= 0:
		return fmt.Errorf("%w: RMSWindowMs must be positive, got %g", ErrConfig, c.RMSWindowMs)
	case c.CyclePoints < 2:
		return fmt.Errorf("%w: CyclePoints must be at least 2, got %d", ErrConfig, c.CyclePoints)
	}

	if err := c.detectConfig().Validate(); err != nil {
		return err
	}

	return nil
}

func (c Config) detectConfig() detect.Config {
	return detect.Config{
		KMin:                 c.KMin,
		KMax:                 c.KMax,
		KStep:                c.KStep,
		MinBurstMs:           c.MinBurstMs,
		MergeGapMs:           c.MergeGapMs,
		OffsetMs:             c.OffsetMs,
		ExpectedEvents:       c.ExpectedEvents,
		CountTolerance:       c.CountTolerance,
		StrideLoSec:          c.StrideLoSec,
		StrideHiSec:          c.StrideHiSec,
		TargetStrideSec:      c.TargetStrideSec,
		BaselineExclusionSec: c.BaselineExclusionSec,
		OnsetNearPeak:        c.OnsetNearPeak,
		FallbackHighPct:      c.FallbackHighPct,
		FallbackLowPct:       c.FallbackLowPct,
	}
}

// Report carries every intermediate and final product of one pipeline run
// as plain numeric slices. Nothing in it is formatted for display.
type Report struct {
	// Envelope is the linear activation envelope, same length as the input.
	Envelope []float64

	// EnvelopePct is the envelope scaled to percent of its within-span peak.
	EnvelopePct []float64

	// Detection is the winning event candidate, including diagnostics.
	Detection detect.Result

	// EventTimesSec are Detection.Events converted to seconds.
	EventTimesSec []float64

	// Grid is the shared 0-100% cycle axis, CyclePoints long.
	Grid []float64

	// Cycles holds one resampled activation curve per retained gait cycle.
	Cycles [][]float64

	// Mean and SD are the NaN-aware per-grid-point aggregate curves.
	Mean, SD []float64

	// Reconciled reports whether an external event source confirmed the
	// events; ShiftSec is the recovered clock offset when it did. SyncNote
	// carries the skip reason when reconciliation was attempted but fell
	// back to the detector's own result.
	Reconciled bool
	ShiftSec   float64
	SyncNote   string
}

// Analyze runs the full pipeline on one EMG channel sampled at sampleRate
// Hz. t is the time vector in seconds and must be strictly increasing and
// as long as x; pass nil to skip the consistency check.
func Analyze(t, x []float64, sampleRate float64, cfg Config) (Report, error) {
	env, err := prepare(t, x, sampleRate, cfg)
	if err != nil {
		return Report{}, err
	}

	det, err := detect.Events(env, sampleRate, cfg.detectConfig())
	if err != nil {
		return Report{}, err
	}

	return assemble(env, det, sampleRate, cfg)
}

// AnalyzeWithEvents runs Analyze and then reconciles the detected events
// against independently obtained event timestamps (seconds). When too few
// events match, the detector's own result is kept and Report.SyncNote
// records why.
func AnalyzeWithEvents(t, x []float64, sampleRate float64, external []float64, cfg Config) (Report, error) {
	env, err := prepare(t, x, sampleRate, cfg)
	if err != nil {
		return Report{}, err
	}

	det, err := detect.Events(env, sampleRate, cfg.detectConfig())
	if err != nil {
		return Report{}, err
	}

	res, err := sync.Reconcile(det.Events, sampleRate, external, cfg.Sync)
	switch {
	case err == nil:
		det.Events = res.Events
		det.Mode = detect.ModeExternal

		rep, aerr := assemble(env, det, sampleRate, cfg)
		if aerr != nil {
			return Report{}, aerr
		}

		rep.Reconciled = true
		rep.ShiftSec = res.ShiftSec

		return rep, nil

	case errors.Is(err, sync.ErrSkipped):
		rep, aerr := assemble(env, det, sampleRate, cfg)
		if aerr != nil {
			return Report{}, aerr
		}

		rep.SyncNote = err.Error()

		return rep, nil

	default:
		return Report{}, err
	}
}

// AnalyzeWithReference normalizes one channel's envelope over another
// channel's event index set, so a reference muscle can segment the cycles
// of every channel of the same recording. events is read-only and must be
// ascending sample indices into x.
func AnalyzeWithReference(t, x []float64, sampleRate float64, events []int, cfg Config) (Report, error) {
	env, err := prepare(t, x, sampleRate, cfg)
	if err != nil {
		return Report{}, err
	}

	if len(events) < 2 {
		return Report{}, fmt.Errorf("%w: need at least 2 reference events, got %d",
			ErrInsufficientData, len(events))
	}

	for i, e := range events {
		if e < 0 || e >= len(env) {
			return Report{}, fmt.Errorf("%w: reference event %d is outside the recording", ErrConfig, e)
		}

		if i > 0 && e <= events[i-1] {
			return Report{}, fmt.Errorf("%w: reference events must be strictly ascending", ErrConfig)
		}
	}

	det := detect.Result{
		Events: append([]int(nil), events...),
		Mode:   detect.ModeExternal,
	}

	return assemble(env, det, sampleRate, cfg)
}

// prepare validates the inputs, gates on finite-sample ratio, patches the
// surviving dropouts, and extracts the activation envelope.
func prepare(t, x []float64, sampleRate float64, cfg Config) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %g", ErrConfig, sampleRate)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if t != nil {
		if len(t) != len(x) {
			return nil, fmt.Errorf("%w: time vector has %d samples, signal has %d",
				ErrConfig, len(t), len(x))
		}

		for i := 1; i < len(t); i++ {
			if !(t[i] > t[i-1]) {
				return nil, fmt.Errorf("%w: time vector is not strictly increasing at sample %d",
					ErrConfig, i)
			}
		}
	}

	if ratio := robust.FiniteRatio(x); ratio < minFiniteRatio {
		return nil, fmt.Errorf("%w: only %.1f%% of samples are finite, need %.0f%%",
			ErrInsufficientData, ratio*100, minFiniteRatio*100)
	}

	env, err := envelope.Extract(patchDropouts(x), sampleRate,
		cfg.HighpassHz, cfg.LowpassHz, cfg.RMSWindowMs)
	if err != nil {
		if errors.Is(err, zerophase.ErrTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
		}

		return nil, err
	}

	return env, nil
}

// patchDropouts replaces the non-finite samples that survived the ratio
// gate with the finite mean, so isolated dropouts cannot poison the filter
// state or the envelope prefix sums.
func patchDropouts(x []float64) []float64 {
	sum := 0.0
	n := 0
	bad := 0

	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad++
			continue
		}

		sum += v
		n++
	}

	if bad == 0 {
		return x
	}

	fill := 0.0
	if n > 0 {
		fill = sum / float64(n)
	}

	out := make([]float64, len(x))
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = fill
			continue
		}

		out[i] = v
	}

	return out
}

// assemble turns an envelope plus a final event set into the full report.
func assemble(env []float64, det detect.Result, sampleRate float64, cfg Config) (Report, error) {
	pct := cycle.PercentPeak(env, det.Events)

	grid, cycles, err := cycle.Normalize(pct, det.Events, cfg.CyclePoints)
	if err != nil {
		return Report{}, err
	}

	mean, sd := cycle.Aggregate(cycles)

	times := make([]float64, len(det.Events))
	for i, e := range det.Events {
		times[i] = float64(e) / sampleRate
	}

	return Report{
		Envelope:      env,
		EnvelopePct:   pct,
		Detection:     det,
		EventTimesSec: times,
		Grid:          grid,
		Cycles:        cycles,
		Mean:          mean,
		SD:            sd,
	}, nil
}
