package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	w := 2.0 * math.Pi * freq / float64(sampleRate)
	for i := range out {
		out[i] = math.Sin(w * float64(i))
	}
	return out
}

func TestHannWindow(t *testing.T) {
	w := Hann(512)
	require.Len(t, w, 512)

	assert.InDelta(t, 0.0, w[0], 1e-12)
	assert.InDelta(t, 0.0, w[511], 1e-12)
	assert.InDelta(t, 1.0, w[255], 0.01)

	// Symmetry
	for i := 0; i < 256; i++ {
		assert.InDelta(t, w[i], w[511-i], 1e-12)
	}

	assert.Equal(t, []float64{1.0}, Hann(1))
}

func TestApplyWindow(t *testing.T) {
	frame := []float64{1, 1, 1, 1}
	window := []float64{0, 0.5, 0.5, 0}
	assert.Equal(t, []float64{0, 0.5, 0.5, 0}, ApplyWindow(frame, window))
	// Input untouched
	assert.Equal(t, []float64{1, 1, 1, 1}, frame)
}

func TestRMS(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.InDelta(t, 1.0, RMS([]float64{1, -1, 1, -1}), 1e-12)
	assert.InDelta(t, 1.0/math.Sqrt2, RMS(sine(100, 8000, 8000)), 0.01)
}

func TestFFTMagnitudePeak(t *testing.T) {
	const (
		n          = 512
		sampleRate = 44100
		bin        = 32
	)
	f := NewFFT()

	// A sinusoid exactly on a bin concentrates its energy there.
	freq := float64(bin) * float64(sampleRate) / float64(n)
	mag := f.Magnitude(f.Compute(sine(freq, sampleRate, n)))
	require.Len(t, mag, n/2+1)

	peak := 0
	for i, m := range mag {
		if m > mag[peak] {
			peak = i
		}
	}
	assert.Equal(t, bin, peak)
}

func TestFFTInverseRoundTrip(t *testing.T) {
	f := NewFFT()
	signal := sine(440, 44100, 256)

	spectrum := f.Compute(signal)
	back := f.ComputeInverse(spectrum)
	require.Len(t, back, len(signal))

	for i := range signal {
		assert.InDelta(t, signal[i], real(back[i]), 1e-9)
	}
}

func TestFFTEmptyInput(t *testing.T) {
	f := NewFFT()
	assert.Empty(t, f.Compute(nil))
	assert.Empty(t, f.ComputeInverse(nil))
	assert.Empty(t, f.Magnitude(nil))
}

func TestBandpassPassesBandRejectsOutside(t *testing.T) {
	const sampleRate = 44100

	bp, err := NewBandpass(sampleRate, 60, 2000)
	require.NoError(t, err)

	inBand := bp.ProcessBuffer(sine(440, sampleRate, sampleRate))
	bp.Reset()
	below := bp.ProcessBuffer(sine(20, sampleRate, sampleRate))

	// Steady-state comparison: skip the transient at the start.
	assert.Greater(t, RMS(inBand[sampleRate/4:]), 2.0*RMS(below[sampleRate/4:]))
}

func TestBandpassRejectsBadEdges(t *testing.T) {
	_, err := NewBandpass(44100, 0, 2000)
	assert.Error(t, err)

	_, err = NewBandpass(44100, 2000, 60)
	assert.Error(t, err)

	_, err = NewBandpass(44100, 60, 30000)
	assert.Error(t, err)
}
