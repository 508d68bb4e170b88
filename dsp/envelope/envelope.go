// Package envelope turns a conditioned EMG signal into a smooth,
// non-negative activation envelope: full-wave rectification followed by a
// centered moving RMS.
package envelope

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-gait/dsp/zerophase"
)

var ErrInvalidWindow = errors.New("envelope: RMS window must be positive")

// Rectify returns |x| elementwise as a new slice.
func Rectify(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Abs(v)
	}

	return out
}

// WindowSamples converts a window length in milliseconds to samples,
// rounding to nearest with a minimum of one sample.
func WindowSamples(sampleRate, ms float64) int {
	win := int(math.Round(sampleRate * ms / 1000))
	if win < 1 {
		win = 1
	}

	return win
}

// MovingRMS computes a centered moving RMS of length win over x. At the
// boundaries the window is clipped to the signal, shortening its effective
// length rather than zero-padding. A prefix sum of squares keeps the total
// cost O(n) independent of win.
//
// A single non-finite input sample poisons the prefix sum from that point
// on; callers gate non-finite content before reaching this stage.
func MovingRMS(x []float64, win int) ([]float64, error) {
	if win < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, win)
	}

	n := len(x)
	if n == 0 {
		return []float64{}, nil
	}

	sq := make([]float64, n)
	vecmath.MulBlock(sq, x, x)

	prefix := make([]float64, n+1)
	for i, v := range sq {
		prefix[i+1] = prefix[i] + v
	}

	half := win / 2

	out := make([]float64, n)
	for i := range out {
		lo := i - half
		hi := lo + win

		if lo < 0 {
			lo = 0
		}

		if hi > n {
			hi = n
		}

		out[i] = math.Sqrt((prefix[hi] - prefix[lo]) / float64(hi-lo))
	}

	return out, nil
}

// Extract produces the activation envelope of a raw EMG channel: mean
// removal, zero-phase band conditioning (optional highpass then optional
// lowpass), rectification, and centered moving RMS over rmsMs milliseconds.
func Extract(x []float64, sampleRate, highpassHz, lowpassHz, rmsMs float64) ([]float64, error) {
	centered := removeMean(x)

	conditioned, err := zerophase.Condition(centered, sampleRate, highpassHz, lowpassHz)
	if err != nil {
		return nil, err
	}

	return MovingRMS(Rectify(conditioned), WindowSamples(sampleRate, rmsMs))
}

func removeMean(x []float64) []float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}

	mean := 0.0
	if len(x) > 0 {
		mean = sum / float64(len(x))
	}

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - mean
	}

	return out
}
