// Package biquad provides the second-order IIR filter primitives used by the
// EMG conditioning stage.
//
// A [Section] implements Direct Form II Transposed processing for a single
// second-order section defined by [Coefficients]. [Lowpass] and [Highpass]
// design RBJ-cookbook coefficient sets; with the default quality factor
// 1/sqrt(2) a single section realizes the maximally flat (Butterworth)
// pole pair that the zero-phase conditioning stage cascades.
package biquad
