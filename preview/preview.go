// Package preview renders a finished note sequence to an audible WAV
// file with a synthesized music-box voice. It is a cosmetic collaborator:
// nothing downstream consumes its output, and its phase jitter is seeded
// so a given seed always produces the same file.
package preview

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/floats"

	"github.com/sgrandin/tinewheel/logging"
	"github.com/sgrandin/tinewheel/score"
	"github.com/sgrandin/tinewheel/vocab"
)

// Params configures the preview voice.
type Params struct {
	SampleRate   int           `json:"sample_rate"`
	ToneDuration time.Duration `json:"tone_duration"`
	ReverbDelay  time.Duration `json:"reverb_delay"`
	ReverbGain   float64       `json:"reverb_gain"`
	Seed         int64         `json:"seed"`
}

// DefaultParams returns the default preview voice.
func DefaultParams() Params {
	return Params{
		SampleRate:   44100,
		ToneDuration: 250 * time.Millisecond,
		ReverbDelay:  30 * time.Millisecond,
		ReverbGain:   0.3,
		Seed:         1,
	}
}

// Renderer synthesizes tine voices and mixes a sequence down to mono.
type Renderer struct {
	params Params
	vocab  *vocab.Vocabulary
	log    logging.Logger
}

// NewRenderer creates a renderer for the given vocabulary.
func NewRenderer(v *vocab.Vocabulary, params Params) (*Renderer, error) {
	if v == nil {
		return nil, fmt.Errorf("vocabulary is required")
	}
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", params.SampleRate)
	}
	if params.ToneDuration <= 0 {
		return nil, fmt.Errorf("tone duration must be positive")
	}
	return &Renderer{
		params: params,
		vocab:  v,
		log:    logging.WithFields(logging.Fields{"component": "preview"}),
	}, nil
}

// Render mixes the sequence into a mono buffer of totalDuration seconds
// plus ringing tail, peak-normalized to 0.95. Events with pitches outside
// the vocabulary are skipped. An empty sequence renders silence.
func (r *Renderer) Render(seq score.Sequence, totalDuration float64) ([]float64, error) {
	if totalDuration <= 0 {
		return nil, fmt.Errorf("total duration must be positive, got %g", totalDuration)
	}

	sr := r.params.SampleRate
	toneLen := int(r.params.ToneDuration.Seconds() * float64(sr))
	buf := make([]float64, int(totalDuration*float64(sr))+toneLen)

	rng := rand.New(rand.NewSource(r.params.Seed))

	// One voice per distinct pitch, synthesized once and reused.
	tones := make(map[string][]float64)
	for _, name := range seq.Pitches() {
		freq, ok := r.vocab.Frequency(name)
		if !ok {
			continue
		}
		tones[name] = r.synthesizeTone(freq, rng)
	}

	for _, e := range seq.Sorted() {
		tone, ok := tones[e.Pitch]
		if !ok {
			continue
		}
		start := int(e.Time * float64(sr))
		if start < 0 || start >= len(buf) {
			continue
		}
		end := start + len(tone)
		if end > len(buf) {
			end = len(buf)
		}
		floats.Add(buf[start:end], tone[:end-start])
	}

	r.applyReverb(buf)

	if peak := floats.Norm(buf, math.Inf(1)); peak > 0 {
		floats.Scale(0.95/peak, buf)
	}

	return buf, nil
}

// RenderWAV renders the sequence and writes a mono 16-bit WAV to path.
func (r *Renderer) RenderWAV(path string, seq score.Sequence, totalDuration float64) error {
	samples, err := r.Render(seq, totalDuration)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, r.params.SampleRate, 16, 1, 1)
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: r.params.SampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		intBuf.Data[i] = int(s * 32767.0)
	}

	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", path, err)
	}

	r.log.Info("preview written", logging.Fields{
		"path":    path,
		"notes":   len(seq),
		"seconds": totalDuration,
	})
	return f.Close()
}

// Struck tines are slightly inharmonic: upper partials run progressively
// sharp of integer multiples, which is most of what makes the voice read
// as "music box" instead of organ.
var tinePartials = [...]struct {
	mult float64
	amp  float64
}{
	{1.000, 1.00},
	{2.002, 0.75},
	{3.004, 0.35},
	{4.008, 0.15},
	{5.015, 0.08},
	{6.025, 0.05},
	{7.040, 0.03},
	{8.060, 0.02},
}

// synthesizeTone renders one struck-tine voice: inharmonic partials with
// jittered phase, a short "ping" transient at the attack, an
// attack/two-stage-decay/release envelope, and a soft limiter.
func (r *Renderer) synthesizeTone(freq float64, rng *rand.Rand) []float64 {
	sr := float64(r.params.SampleRate)
	n := int(r.params.ToneDuration.Seconds() * sr)
	samples := make([]float64, n)

	for _, p := range tinePartials {
		phase := rng.Float64() * 0.2
		w := 2.0 * math.Pi * freq * p.mult / sr
		for i := range samples {
			samples[i] += p.amp * math.Sin(w*float64(i)+phase)
		}
	}

	// Attack transient.
	pingLen := min(int(0.015*sr), n)
	pingW := 2.0 * math.Pi * freq * 3.0 / sr
	for i := 0; i < pingLen; i++ {
		t := float64(i) / sr
		samples[i] += 0.4 * math.Sin(pingW*float64(i)) * math.Exp(-t*150.0)
	}

	r.applyEnvelope(samples)

	for i, s := range samples {
		samples[i] = math.Tanh(s * 0.8)
	}
	return samples
}

// applyEnvelope shapes a tone in place: fast smooth attack, a quick
// initial decay into a much gentler resonant decay, then release.
func (r *Renderer) applyEnvelope(samples []float64) {
	sr := float64(r.params.SampleRate)
	n := len(samples)

	attack := min(int(0.003*sr), n)
	decay1 := int(0.040 * sr)
	decay2 := int(0.150 * sr)
	release := int(0.060 * sr)

	for i := 0; i < attack; i++ {
		samples[i] *= math.Pow(float64(i)/float64(attack), 0.7)
	}

	pos := attack
	pos = applyExpSegment(samples, pos, decay1, 0.0, 2.0)
	pos = applyExpSegment(samples, pos, decay2, 2.0, 3.0)
	applyExpSegment(samples, pos, release, 3.0, 4.0)
}

// applyExpSegment multiplies samples[pos:pos+length] by exp(-x) with x
// running linearly from from to to, returning the next position.
func applyExpSegment(samples []float64, pos, length int, from, to float64) int {
	if length <= 0 || pos >= len(samples) {
		return pos
	}
	end := min(pos+length, len(samples))
	for i := pos; i < end; i++ {
		x := from + (to-from)*float64(i-pos)/float64(length)
		samples[i] *= math.Exp(-x)
	}
	return end
}

// applyReverb adds a single feedback delay, cheap and stable.
func (r *Renderer) applyReverb(buf []float64) {
	delay := int(r.params.ReverbDelay.Seconds() * float64(r.params.SampleRate))
	if delay <= 0 || delay >= len(buf) || r.params.ReverbGain <= 0 {
		return
	}
	for i := delay; i < len(buf); i++ {
		buf[i] += r.params.ReverbGain * buf[i-delay]
	}
}
