// Package zerophase applies biquad filters forward and backward so the group
// delay of the two passes cancels, leaving an approximately zero-phase
// response at the cost of doubled magnitude roll-off.
//
// The reversal technique uses no explicit padding: it assumes the input is
// long relative to the filter's settling time. Short inputs produce boundary
// artifacts, which is why [Condition] enforces a minimum input duration.
package zerophase

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-gait/dsp/biquad"
)

var (
	ErrInvalidSampleRate  = errors.New("zerophase: sample rate must be positive")
	ErrInvalidCutoff      = errors.New("zerophase: cutoff must be positive")
	ErrCutoffAboveNyquist = errors.New("zerophase: cutoff must be below half the sample rate")
	ErrTooShort           = errors.New("zerophase: input too short for stable filtering")
)

// MinDurationSec is the minimum input duration accepted by [Condition].
const MinDurationSec = 2.0

// FiltFilt applies the section forward, reverses the output, applies it again
// with fresh state, and reverses back. The result has the same length as x;
// x itself is not modified.
func FiltFilt(x []float64, c biquad.Coefficients) []float64 {
	out := append([]float64(nil), x...)

	s := biquad.NewSection(c)
	s.ProcessBlock(out)

	reverse(out)
	s.Reset()
	s.ProcessBlock(out)
	reverse(out)

	return out
}

// Lowpass runs a zero-phase lowpass at cutoffHz over x.
func Lowpass(x []float64, cutoffHz, sampleRate float64) ([]float64, error) {
	if err := validate(cutoffHz, sampleRate, len(x)); err != nil {
		return nil, err
	}

	return FiltFilt(x, biquad.Lowpass(cutoffHz, biquad.DefaultQ, sampleRate)), nil
}

// Highpass runs a zero-phase highpass at cutoffHz over x.
func Highpass(x []float64, cutoffHz, sampleRate float64) ([]float64, error) {
	if err := validate(cutoffHz, sampleRate, len(x)); err != nil {
		return nil, err
	}

	return FiltFilt(x, biquad.Highpass(cutoffHz, biquad.DefaultQ, sampleRate)), nil
}

// Condition removes motion artifact and high-frequency noise from x: an
// optional zero-phase highpass at highpassHz followed by an optional
// zero-phase lowpass at lowpassHz. A cutoff of 0 disables that band edge.
// The input is not modified; the returned slice is always a fresh copy.
func Condition(x []float64, sampleRate, highpassHz, lowpassHz float64) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidSampleRate, sampleRate)
	}

	out := append([]float64(nil), x...)

	var err error

	if highpassHz != 0 {
		out, err = Highpass(out, highpassHz, sampleRate)
		if err != nil {
			return nil, err
		}
	}

	if lowpassHz != 0 {
		out, err = Lowpass(out, lowpassHz, sampleRate)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func validate(cutoffHz, sampleRate float64, n int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidSampleRate, sampleRate)
	}

	if cutoffHz <= 0 {
		return fmt.Errorf("%w: got %g Hz", ErrInvalidCutoff, cutoffHz)
	}

	if cutoffHz >= sampleRate/2 {
		return fmt.Errorf("%w: cutoff %g Hz, Nyquist %g Hz (lower the cutoff or record at a higher rate)",
			ErrCutoffAboveNyquist, cutoffHz, sampleRate/2)
	}

	if minLen := int(MinDurationSec * sampleRate); n < minLen {
		return fmt.Errorf("%w: got %d samples, need at least %d (%.0f s at %g Hz)",
			ErrTooShort, n, minLen, MinDurationSec, sampleRate)
	}

	return nil
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
