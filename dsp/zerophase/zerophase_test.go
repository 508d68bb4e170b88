package zerophase

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-gait/dsp/biquad"
	"github.com/cwbudde/algo-gait/internal/testutil"
)

func TestFiltFilt_PreservesLengthAndInput(t *testing.T) {
	x := testutil.DeterministicSine(10, 1000, 1, 4000)
	orig := append([]float64(nil), x...)

	got := FiltFilt(x, biquad.Lowpass(100, biquad.DefaultQ, 1000))

	if len(got) != len(x) {
		t.Fatalf("length: got %d, want %d", len(got), len(x))
	}

	for i := range x {
		if x[i] != orig[i] {
			t.Fatalf("input mutated at index %d", i)
		}
	}
}

// A passband sinusoid must come through with near-zero phase shift: the peak
// positions of the filtered signal stay within one sample of the input's.
func TestFiltFilt_ZeroPhaseInPassband(t *testing.T) {
	const (
		fs   = 1000.0
		freq = 5.0
	)

	x := testutil.DeterministicSine(freq, fs, 1, 8000)
	y := FiltFilt(x, biquad.Lowpass(100, biquad.DefaultQ, fs))

	// Compare peak locations away from the boundaries.
	period := int(fs / freq)
	for center := 2 * period; center+2*period < len(x); center += period {
		xPeak := argmax(x[center-period/2 : center+period/2])
		yPeak := argmax(y[center-period/2 : center+period/2])

		if diff := xPeak - yPeak; diff < -1 || diff > 1 {
			t.Fatalf("peak near %d shifted by %d samples", center, diff)
		}
	}
}

func TestHighpass_RemovesDC(t *testing.T) {
	const fs = 1000.0

	x := make([]float64, 8000)
	sine := testutil.DeterministicSine(50, fs, 1, len(x))
	for i := range x {
		x[i] = 2.5 + sine[i]
	}

	y, err := Highpass(x, 10, fs)
	if err != nil {
		t.Fatalf("Highpass: %v", err)
	}

	// Mean over the interior should be near zero once DC is gone.
	var sum float64

	interior := y[1000 : len(y)-1000]
	for _, v := range interior {
		sum += v
	}

	if mean := sum / float64(len(interior)); math.Abs(mean) > 0.05 {
		t.Errorf("residual DC after highpass: %g", mean)
	}
}

func TestLowpass_AttenuatesStopband(t *testing.T) {
	const fs = 1000.0

	x := testutil.DeterministicSine(400, fs, 1, 8000)

	y, err := Lowpass(x, 50, fs)
	if err != nil {
		t.Fatalf("Lowpass: %v", err)
	}

	in := rms(x[1000 : len(x)-1000])
	out := rms(y[1000 : len(y)-1000])

	// Forward-backward doubling gives well over 40 dB at 3 octaves.
	if out > in*0.01 {
		t.Errorf("stopband rms %g, want < 1%% of input rms %g", out, in)
	}
}

func TestCondition_CutoffAboveNyquistFails(t *testing.T) {
	x := make([]float64, 4000)

	_, err := Condition(x, 1000, 50, 600)
	if !errors.Is(err, ErrCutoffAboveNyquist) {
		t.Fatalf("got %v, want ErrCutoffAboveNyquist", err)
	}
}

func TestCondition_TooShortFails(t *testing.T) {
	x := make([]float64, 100) // well under 2 s at 1 kHz

	_, err := Condition(x, 1000, 50, 450)
	if !errors.Is(err, ErrTooShort) {
		t.Fatalf("got %v, want ErrTooShort", err)
	}
}

func TestCondition_ZeroCutoffsDisableBands(t *testing.T) {
	x := testutil.DeterministicSine(20, 1000, 1, 4000)

	got, err := Condition(x, 1000, 0, 0)
	if err != nil {
		t.Fatalf("Condition: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, got, x, 0)

	// Returned slice is a copy, not an alias.
	got[0] = 42
	if x[0] == 42 {
		t.Fatal("Condition aliases its input")
	}
}

func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}

	return best
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(x)))
}
