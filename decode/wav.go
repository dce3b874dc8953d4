// Package decode loads input audio for analysis and hands back mono
// float samples: WAV natively, any other format through an ffmpeg
// subprocess.
package decode

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/sgrandin/tinewheel/logging"
)

// Audio is decoded input audio, mixed down to mono and clamped to the
// requested analysis window.
type Audio struct {
	Samples    []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channel count before mixdown
	Duration   time.Duration `json:"duration"` // after clamping
	Path       string        `json:"path"`
}

// WAVFile decodes a WAV file, averages multi-channel input to mono, and
// truncates to at most maxTime seconds (0 = no limit). A missing or
// undecodable file is fatal and propagated.
func WAVFile(path string, maxTime float64) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	format := buf.Format
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("missing format information in %s", path)
	}

	channels := format.NumChannels
	sampleRate := format.SampleRate
	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	scale := math.Pow(2, float64(bitDepth-1))

	// Interleaved ints -> mono float64 in [-1, 1].
	frames := len(buf.Data) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch])
		}
		mono[i] = sum / (float64(channels) * scale)
	}

	if maxTime > 0 {
		limit := int(maxTime * float64(sampleRate))
		if limit < len(mono) {
			mono = mono[:limit]
		}
	}

	duration := time.Duration(float64(len(mono)) / float64(sampleRate) * float64(time.Second))
	logging.Info("decoded audio", logging.Fields{
		"path":        path,
		"sample_rate": sampleRate,
		"channels":    channels,
		"duration_s":  duration.Seconds(),
	})

	return &Audio{
		Samples:    mono,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   duration,
		Path:       path,
	}, nil
}
