package dsp

import "math"

// Hann returns a Hann window of the given size.
//
// w[n] = 0.5 * (1 - cos(2*pi*n / (N-1)))
func Hann(size int) []float64 {
	window := make([]float64, size)
	if size == 1 {
		window[0] = 1.0
		return window
	}
	for i := range window {
		window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}

// ApplyWindow multiplies frame by window into a new slice.
// The two must have equal length.
func ApplyWindow(frame, window []float64) []float64 {
	out := make([]float64, len(frame))
	for i := range frame {
		out[i] = frame[i] * window[i]
	}
	return out
}

// RMS returns the root mean square of a frame, 0 for an empty frame.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}
