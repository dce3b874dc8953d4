package dsp

import (
	"fmt"
	"math"
)

// Bandpass is a biquad bandpass filter used to confine analysis to the
// band where music-box fundamentals live.
//
// Coefficients follow Robert Bristow-Johnson's cookbook formulas:
// https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
type Bandpass struct {
	sampleRate int
	centerFreq float64
	qFactor    float64

	b0, b1, b2 float64
	a1, a2     float64

	// Direct form II delay line
	w1, w2 float64
}

// NewBandpass creates a bandpass filter from explicit band edges.
// The center frequency is the geometric mean of the edges.
func NewBandpass(sampleRate int, lowHz, highHz float64) (*Bandpass, error) {
	nyquist := float64(sampleRate) / 2.0
	if lowHz <= 0 || highHz <= lowHz {
		return nil, fmt.Errorf("invalid band edges %.1f..%.1f Hz", lowHz, highHz)
	}
	if highHz >= nyquist {
		return nil, fmt.Errorf("upper band edge %.1f Hz must be below Nyquist (%.1f Hz)", highHz, nyquist)
	}

	center := math.Sqrt(lowHz * highHz)
	bp := &Bandpass{
		sampleRate: sampleRate,
		centerFreq: center,
		qFactor:    center / (highHz - lowHz),
	}
	bp.computeCoefficients()
	return bp, nil
}

func (bp *Bandpass) computeCoefficients() {
	w0 := 2.0 * math.Pi * bp.centerFreq / float64(bp.sampleRate)
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}

	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2.0 * bp.qFactor)

	a0 := 1.0 + alpha
	bp.b0 = alpha / a0
	bp.b1 = 0.0
	bp.b2 = -alpha / a0
	bp.a1 = -2.0 * cosW0 / a0
	bp.a2 = (1.0 - alpha) / a0
}

// Process filters a single sample (direct form II).
func (bp *Bandpass) Process(input float64) float64 {
	w := input - bp.a1*bp.w1 - bp.a2*bp.w2
	output := bp.b0*w + bp.b1*bp.w1 + bp.b2*bp.w2

	bp.w2 = bp.w1
	bp.w1 = w

	return output
}

// ProcessBuffer filters an entire buffer into a new slice.
func (bp *Bandpass) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = bp.Process(sample)
	}
	return output
}

// Reset clears the filter's delay line. Call between unrelated signals.
func (bp *Bandpass) Reset() {
	bp.w1, bp.w2 = 0.0, 0.0
}
