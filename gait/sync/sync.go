// Package sync aligns EMG-derived heel-strike events against an
// independently obtained event sequence, such as falling edges of video
// motion energy or manually entered timestamps.
//
// Reconciliation never invents events: it searches a bounded range of time
// shifts for the one that matches the most EMG events to external events,
// then keeps exactly the matched EMG events. Unmatched events on either side
// are dropped, not reconciled.
package sync

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrConfig = errors.New("sync: invalid configuration")

	// ErrSkipped is a recoverable fallback condition, not a hard failure:
	// too few events matched, so the caller keeps the detector's own result.
	ErrSkipped = errors.New("sync: too few matched events, reconciliation skipped")
)

// Config bounds the reconciliation search.
type Config struct {
	// RangeSec is the half-width of the shift search, in seconds.
	RangeSec float64

	// StepSec is the shift search granularity.
	StepSec float64

	// TolSec is the matching tolerance between a shifted EMG event time and
	// an external event time.
	TolSec float64

	// MinMatches is the smallest match count considered trustworthy.
	MinMatches int
}

// DefaultConfig returns the reconciliation defaults: a +/-2 s search in
// 10 ms steps with a 50 ms matching tolerance, requiring 4 matches.
func DefaultConfig() Config {
	return Config{
		RangeSec:   2.0,
		StepSec:    0.01,
		TolSec:     0.05,
		MinMatches: 4,
	}
}

// Validate reports the first configuration problem, or nil.
func (c Config) Validate() error {
	switch {
	case c.RangeSec <= 0:
		return fmt.Errorf("%w: RangeSec must be positive, got %g", ErrConfig, c.RangeSec)
	case c.StepSec <= 0:
		return fmt.Errorf("%w: StepSec must be positive, got %g", ErrConfig, c.StepSec)
	case c.TolSec <= 0:
		return fmt.Errorf("%w: TolSec must be positive, got %g", ErrConfig, c.TolSec)
	case c.MinMatches < 1:
		return fmt.Errorf("%w: MinMatches must be at least 1, got %d", ErrConfig, c.MinMatches)
	}

	return nil
}

// Result describes a successful reconciliation.
type Result struct {
	// Events are the EMG event indices confirmed by the external source,
	// ascending, a subset of the detector's events.
	Events []int

	// ShiftSec is the time shift that maximized the match count
	// (external = EMG + shift).
	ShiftSec float64

	// Matches is the number of confirmed events.
	Matches int
}

// Reconcile matches the detector's event indices (at sampleRate Hz) against
// external event timestamps in seconds. On ErrSkipped the caller should fall
// back to the unreconciled detector events.
func Reconcile(events []int, sampleRate float64, external []float64, cfg Config) (Result, error) {
	if sampleRate <= 0 {
		return Result{}, fmt.Errorf("%w: sample rate must be positive, got %g", ErrConfig, sampleRate)
	}

	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	if len(events) == 0 || len(external) == 0 {
		return Result{}, fmt.Errorf("%w: %d EMG events, %d external events",
			ErrSkipped, len(events), len(external))
	}

	emgTimes := make([]float64, len(events))
	for i, e := range events {
		emgTimes[i] = float64(e) / sampleRate
	}

	steps := int(math.Round(cfg.RangeSec / cfg.StepSec))

	bestShift := 0.0
	bestCount := -1
	bestResid := math.Inf(1)

	for i := -steps; i <= steps; i++ {
		shift := float64(i) * cfg.StepSec

		// Count wins first; equal counts prefer the tighter alignment
		// (smaller residual), remaining ties keep the first shift found.
		count, resid := countMatches(emgTimes, external, shift, cfg.TolSec)
		if count > bestCount || (count == bestCount && resid < bestResid) {
			bestCount = count
			bestResid = resid
			bestShift = shift
		}
	}

	if bestCount < cfg.MinMatches {
		return Result{}, fmt.Errorf("%w: best shift %.3f s matched %d of %d events, need %d",
			ErrSkipped, bestShift, bestCount, len(events), cfg.MinMatches)
	}

	kept := matchedEvents(events, emgTimes, external, bestShift, cfg.TolSec)

	return Result{
		Events:   kept,
		ShiftSec: bestShift,
		Matches:  len(kept),
	}, nil
}

// countMatches greedily pairs shifted EMG times with external times using
// two pointers; both sequences must be ascending. It returns the match count
// and the summed absolute residual of the matched pairs.
func countMatches(emg, external []float64, shift, tol float64) (int, float64) {
	count := 0
	resid := 0.0
	i, j := 0, 0

	for i < len(emg) && j < len(external) {
		d := emg[i] + shift - external[j]

		switch {
		case math.Abs(d) <= tol:
			count++
			resid += math.Abs(d)
			i++
			j++
		case d < 0:
			i++
		default:
			j++
		}
	}

	return count, resid
}

// matchedEvents repeats the greedy pairing at the chosen shift and returns
// the matched EMG event indices.
func matchedEvents(events []int, emg, external []float64, shift, tol float64) []int {
	var kept []int

	i, j := 0, 0
	for i < len(emg) && j < len(external) {
		d := emg[i] + shift - external[j]

		switch {
		case math.Abs(d) <= tol:
			kept = append(kept, events[i])
			i++
			j++
		case d < 0:
			i++
		default:
			j++
		}
	}

	return kept
}
