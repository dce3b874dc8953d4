package dsp

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides the Fourier transforms the pipeline consumes.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the forward transform using mjibson/go-dsp.
// Handles all sizes, including non-power-of-2.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputeInverse computes the inverse transform
func (f *FFT) ComputeInverse(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.IFFT(x)
}

// Magnitude returns the single-sided magnitude spectrum (bins 0..N/2)
// of a real-input transform.
func (f *FFT) Magnitude(spectrum []complex128) []float64 {
	if len(spectrum) == 0 {
		return []float64{}
	}

	half := len(spectrum)/2 + 1
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}
