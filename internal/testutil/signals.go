package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-vecmath"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// GaussianBurstTrain synthesizes an EMG-like activation envelope: a flat
// baseline with Gaussian bursts of the given amplitude centered at
// burstTimes (seconds). widthSec is the full width at half maximum.
func GaussianBurstTrain(sampleRate, durationSec float64, burstTimes []float64, widthSec, amplitude, baseline float64) []float64 {
	n := int(math.Round(sampleRate * durationSec))

	out := make([]float64, n)
	for i := range out {
		out[i] = baseline
	}

	// FWHM -> Gaussian sigma.
	sigma := widthSec / (2 * math.Sqrt(2*math.Ln2))

	for _, tc := range burstTimes {
		burst := make([]float64, n)
		for i := range burst {
			dt := float64(i)/sampleRate - tc
			burst[i] = amplitude * math.Exp(-dt*dt/(2*sigma*sigma))
		}

		vecmath.AddBlockInPlace(out, burst)
	}

	return out
}

// EvenBurstTimes returns count burst centers spaced spacingSec apart,
// starting at startSec.
func EvenBurstTimes(startSec, spacingSec float64, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = startSec + spacingSec*float64(i)
	}
	return out
}

// AddNoise adds deterministic noise in-place and returns the signal.
func AddNoise(x []float64, seed int64, amplitude float64) []float64 {
	vecmath.AddBlockInPlace(x, DeterministicNoise(seed, amplitude, len(x)))
	return x
}

// TimeVector returns n timestamps spaced 1/sampleRate apart starting at 0.
func TimeVector(sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / sampleRate
	}
	return out
}
