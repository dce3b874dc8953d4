package onset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFrameSize  = 512
	testSampleRate = 44100
)

func toneFrame(freq, amplitude float64, startSample int) []float64 {
	out := make([]float64, testFrameSize)
	w := 2.0 * math.Pi * freq / float64(testSampleRate)
	for i := range out {
		out[i] = amplitude * math.Sin(w*float64(startSample+i))
	}
	return out
}

func silentFrame() []float64 {
	return make([]float64, testFrameSize)
}

func TestFluxDetectorFiresOnAttack(t *testing.T) {
	d := NewFluxDetector(testFrameSize, 0.3)

	// A few silent frames, then a loud tone.
	for i := 0; i < 4; i++ {
		_, isOnset := d.Process(silentFrame())
		assert.False(t, isOnset)
	}

	strength, isOnset := d.Process(toneFrame(440, 0.8, 0))
	assert.True(t, isOnset)
	assert.Greater(t, strength, 0.3)
}

func TestFluxDetectorQuietDuringSustain(t *testing.T) {
	d := NewFluxDetector(testFrameSize, 0.3)

	d.Process(silentFrame())
	_, isOnset := d.Process(toneFrame(440, 0.8, 0))
	require.True(t, isOnset)

	// A held note has almost no positive flux frame to frame.
	for i := 1; i < 10; i++ {
		strength, isOnset := d.Process(toneFrame(440, 0.8, i*testFrameSize))
		assert.False(t, isOnset, "frame %d", i)
		assert.Less(t, strength, 0.3, "frame %d", i)
	}
}

func TestFluxDetectorFirstFrameNeverFires(t *testing.T) {
	d := NewFluxDetector(testFrameSize, 0.3)

	// Without a reference spectrum the whole frame would count as flux.
	strength, isOnset := d.Process(toneFrame(440, 0.8, 0))
	assert.False(t, isOnset)
	assert.Greater(t, strength, 0.9)
}

func TestFluxDetectorStepUpInLevel(t *testing.T) {
	d := NewFluxDetector(testFrameSize, 0.3)

	d.Process(silentFrame())
	// Quiet lead-in, then a much louder strike of the same pitch.
	for i := 0; i < 4; i++ {
		d.Process(toneFrame(440, 0.02, i*testFrameSize))
	}

	strength, isOnset := d.Process(toneFrame(440, 0.8, 4*testFrameSize))
	assert.True(t, isOnset)
	assert.Greater(t, strength, 0.3)
}

func TestFluxDetectorSilenceProducesNothing(t *testing.T) {
	d := NewFluxDetector(testFrameSize, 0.3)

	for i := 0; i < 8; i++ {
		strength, isOnset := d.Process(silentFrame())
		assert.Zero(t, strength)
		assert.False(t, isOnset)
	}
}

func TestFluxDetectorReset(t *testing.T) {
	d := NewFluxDetector(testFrameSize, 0.3)

	d.Process(silentFrame())
	d.Process(toneFrame(440, 0.8, 0))

	d.Reset()

	// Back to the unprimed state: first frame never fires.
	_, isOnset := d.Process(toneFrame(880, 0.8, 0))
	assert.False(t, isOnset)
}
