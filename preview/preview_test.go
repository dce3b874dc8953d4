package preview

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrandin/tinewheel/score"
	"github.com/sgrandin/tinewheel/vocab"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(vocab.Standard(), DefaultParams())
	require.NoError(t, err)
	return r
}

func peakOf(samples []float64) float64 {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

func TestRenderLengthAndPeak(t *testing.T) {
	r := newTestRenderer(t)
	params := DefaultParams()

	seq := score.Sequence{
		{Time: 0.0, Pitch: "C4"},
		{Time: 0.5, Pitch: "E5"},
	}

	samples, err := r.Render(seq, 1.0)
	require.NoError(t, err)

	// One second plus the ringing tail of a tone started at the end.
	toneLen := int(params.ToneDuration.Seconds() * float64(params.SampleRate))
	assert.Len(t, samples, params.SampleRate+toneLen)

	assert.InDelta(t, 0.95, peakOf(samples), 1e-9)
}

func TestRenderDeterministicForSeed(t *testing.T) {
	seq := score.Sequence{{Time: 0.1, Pitch: "A4"}, {Time: 0.6, Pitch: "C5"}}

	first, err := newTestRenderer(t).Render(seq, 1.0)
	require.NoError(t, err)
	second, err := newTestRenderer(t).Render(seq, 1.0)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// A different seed jitters the partial phases.
	params := DefaultParams()
	params.Seed = 42
	other, err := NewRenderer(vocab.Standard(), params)
	require.NoError(t, err)
	third, err := other.Render(seq, 1.0)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestRenderEmptySequenceIsSilence(t *testing.T) {
	r := newTestRenderer(t)

	samples, err := r.Render(nil, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, samples)
	assert.Zero(t, peakOf(samples))
}

func TestRenderSkipsUnknownPitch(t *testing.T) {
	r := newTestRenderer(t)

	samples, err := r.Render(score.Sequence{{Time: 0.0, Pitch: "C#4"}}, 0.5)
	require.NoError(t, err)
	assert.Zero(t, peakOf(samples))
}

func TestRenderEventPastDurationIsDropped(t *testing.T) {
	r := newTestRenderer(t)

	// Start sample beyond the buffer: skipped, not a panic.
	samples, err := r.Render(score.Sequence{{Time: 10.0, Pitch: "C4"}}, 0.5)
	require.NoError(t, err)
	assert.Zero(t, peakOf(samples))
}

func TestRenderRejectsNonPositiveDuration(t *testing.T) {
	r := newTestRenderer(t)
	_, err := r.Render(nil, 0)
	assert.Error(t, err)
}

func TestRenderWAV(t *testing.T) {
	r := newTestRenderer(t)
	path := filepath.Join(t.TempDir(), "preview.wav")

	seq := score.Sequence{{Time: 0.0, Pitch: "G5"}}
	require.NoError(t, r.RenderWAV(path, seq, 0.5))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 1, buf.Format.NumChannels)
	assert.Equal(t, 44100, buf.Format.SampleRate)
	assert.NotEmpty(t, buf.Data)
}

func TestNewRendererValidation(t *testing.T) {
	_, err := NewRenderer(nil, DefaultParams())
	assert.Error(t, err)

	params := DefaultParams()
	params.SampleRate = 0
	_, err = NewRenderer(vocab.Standard(), params)
	assert.Error(t, err)

	params = DefaultParams()
	params.ToneDuration = 0
	_, err = NewRenderer(vocab.Standard(), params)
	assert.Error(t, err)
}
