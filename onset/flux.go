// Package onset flags transient note attacks frame by frame.
package onset

import (
	"github.com/sgrandin/tinewheel/dsp"
)

// FluxDetector is a streaming spectral-flux onset detector. It keeps the
// previous frame's magnitude spectrum and reports the positive spectral
// change of each new frame, normalized by the frame's total magnitude so
// the strength is level-independent.
type FluxDetector struct {
	fft       *dsp.FFT
	window    []float64
	threshold float64

	prevMag      []float64
	prevStrength float64
	primed       bool
}

// NewFluxDetector creates a detector for fixed-size frames. An onset is
// flagged when the normalized flux rises through the threshold.
func NewFluxDetector(frameSize int, threshold float64) *FluxDetector {
	return &FluxDetector{
		fft:       dsp.NewFFT(),
		window:    dsp.Hann(frameSize),
		threshold: threshold,
	}
}

// Process consumes the next frame and returns the onset strength in [0,1]
// together with the onset flag. Frames must arrive in signal order and
// match the configured frame size.
func (d *FluxDetector) Process(frame []float64) (strength float64, isOnset bool) {
	windowed := dsp.ApplyWindow(frame, d.window)
	mag := d.fft.Magnitude(d.fft.Compute(windowed))

	total := 0.0
	flux := 0.0
	for i, m := range mag {
		total += m
		prev := 0.0
		if d.primed && i < len(d.prevMag) {
			prev = d.prevMag[i]
		}
		if diff := m - prev; diff > 0 {
			flux += diff
		}
	}

	d.prevMag = mag
	primed := d.primed
	d.primed = true

	if total < 1e-9 {
		d.prevStrength = 0
		return 0, false
	}

	strength = flux / total

	// The very first frame has no reference spectrum; its flux is the
	// whole frame and would always fire.
	if !primed {
		d.prevStrength = strength
		return strength, false
	}

	// Rising-edge gate keeps a sustained loud note from re-triggering.
	isOnset = strength >= d.threshold && strength >= d.prevStrength
	d.prevStrength = strength
	return strength, isOnset
}

// Reset clears detector state. Call between unrelated signals.
func (d *FluxDetector) Reset() {
	d.prevMag = nil
	d.prevStrength = 0
	d.primed = false
}
