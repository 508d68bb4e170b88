// Package spectral provides a one-sided magnitude spectrum and the
// frequency-domain summaries commonly used as EMG signal-quality probes:
// mean frequency, median frequency, and band-power ratios.
package spectral

import (
	"errors"
	"fmt"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
)

var ErrInvalid = errors.New("spectral: invalid input")

// Spectrum is a one-sided magnitude spectrum with bins 0 (DC) through
// Nyquist. The frequency of bin i is i*BinHz.
type Spectrum struct {
	Magnitude []float64
	BinHz     float64
}

// Compute zero-pads x to the next power of 2, runs a forward FFT, and
// returns the one-sided magnitude spectrum. No analysis window is applied;
// the summaries below are broadband and tolerate rectangular leakage.
func Compute(x []float64, sampleRate float64) (Spectrum, error) {
	if sampleRate <= 0 {
		return Spectrum{}, fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalid, sampleRate)
	}

	if len(x) < 2 {
		return Spectrum{}, fmt.Errorf("%w: need at least 2 samples, got %d", ErrInvalid, len(x))
	}

	fftSize := nextPowerOf2(len(x))

	inData := make([]complex128, fftSize)
	for i, v := range x {
		inData[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Spectrum{}, fmt.Errorf("spectral: fft plan: %w", err)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, inData); err != nil {
		return Spectrum{}, fmt.Errorf("spectral: fft: %w", err)
	}

	binCount := fftSize/2 + 1

	mag := make([]float64, binCount)
	for i := range mag {
		mag[i] = cmplx.Abs(out[i])
	}

	return Spectrum{
		Magnitude: mag,
		BinHz:     sampleRate / float64(fftSize),
	}, nil
}

// MeanFrequency returns the power-weighted mean frequency in Hz, the
// centroid of the squared-magnitude spectrum. Returns 0 for an all-zero
// spectrum.
func (s Spectrum) MeanFrequency() float64 {
	total := 0.0
	weighted := 0.0

	for i, v := range s.Magnitude {
		p := v * v
		total += p
		weighted += float64(i) * s.BinHz * p
	}

	if total == 0 {
		return 0
	}

	return weighted / total
}

// MedianFrequency returns the frequency in Hz below which half of the
// spectral power lies, resolved to the first bin whose cumulative power
// reaches half the total. Returns 0 for an all-zero spectrum.
func (s Spectrum) MedianFrequency() float64 {
	total := 0.0
	for _, v := range s.Magnitude {
		total += v * v
	}

	if total == 0 {
		return 0
	}

	half := total / 2

	cum := 0.0
	for i, v := range s.Magnitude {
		cum += v * v
		if cum >= half {
			return float64(i) * s.BinHz
		}
	}

	return float64(len(s.Magnitude)-1) * s.BinHz
}

// BandPowerRatio returns the fraction of total spectral power whose bin
// frequency lies in [loHz, hiHz]. Returns 0 for an all-zero spectrum or an
// empty band.
func (s Spectrum) BandPowerRatio(loHz, hiHz float64) float64 {
	total := 0.0
	band := 0.0

	for i, v := range s.Magnitude {
		p := v * v
		total += p

		f := float64(i) * s.BinHz
		if f >= loHz && f <= hiHz {
			band += p
		}
	}

	if total == 0 {
		return 0
	}

	return band / total
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
