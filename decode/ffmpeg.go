package decode

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sgrandin/tinewheel/logging"
)

// FFmpegConfig controls how non-WAV input is decoded through an ffmpeg
// subprocess. The subprocess resamples and mixes down in one pass, so
// the analysis always sees mono PCM at TargetSampleRate.
type FFmpegConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"`
	FFmpegPath       string        `json:"ffmpeg_path"` // path to ffmpeg binary
	Timeout          time.Duration `json:"timeout"`     // per-invocation limit
}

// DefaultFFmpegConfig returns the default ffmpeg decode configuration.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		TargetSampleRate: 44100,
		FFmpegPath:       "ffmpeg", // assume in PATH
		Timeout:          30 * time.Second,
	}
}

// Validate checks the configuration before a subprocess is launched.
func (c FFmpegConfig) Validate() error {
	if c.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive: %d", c.TargetSampleRate)
	}
	if c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg path must not be empty")
	}
	return nil
}

// File decodes an audio file of any format ffmpeg understands. WAV is
// decoded natively so a missing ffmpeg binary never blocks the common
// case; everything else (MP3, FLAC, OGG, ...) goes through the ffmpeg
// subprocess. maxTime truncates the result to at most that many seconds
// (0 = no limit).
func File(ctx context.Context, path string, maxTime float64, cfg FFmpegConfig) (*Audio, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return WAVFile(path, maxTime)
	}
	return FFmpegFile(ctx, path, maxTime, cfg)
}

// FFmpegFile decodes a file by piping raw little-endian float64 mono PCM
// out of an ffmpeg subprocess. The subprocess inherits ctx and is also
// bounded by cfg.Timeout when positive.
func FFmpegFile(ctx context.Context, path string, maxTime float64, cfg FFmpegConfig) (*Audio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.WithFields(logging.Fields{
		"component": "decode",
		"path":      path,
	})

	args := []string{
		"-i", path,
		"-f", "f64le", // raw float64 little-endian
		"-acodec", "pcm_f64le",
		"-ac", "1", // mono mixdown
		"-ar", strconv.Itoa(cfg.TargetSampleRate),
	}
	if maxTime > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", maxTime))
	}
	args = append(args, "-v", "error", "pipe:1")

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cfg.FFmpegPath, args...)
	logger.Debug("running ffmpeg", logging.Fields{"args": strings.Join(args, " ")})

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			logger.Error(err, "ffmpeg decode failed", logging.Fields{
				"stderr": string(exitErr.Stderr),
			})
		}
		return nil, fmt.Errorf("ffmpeg decode of %s: %w", path, err)
	}

	samples := f64leSamples(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded from %s", path)
	}

	// ffmpeg already honors -t, but a fractional final packet can still
	// overshoot the limit by a few samples.
	if maxTime > 0 {
		limit := int(maxTime * float64(cfg.TargetSampleRate))
		if limit < len(samples) {
			samples = samples[:limit]
		}
	}

	duration := time.Duration(float64(len(samples)) / float64(cfg.TargetSampleRate) * float64(time.Second))
	logger.Info("decoded audio", logging.Fields{
		"sample_rate": cfg.TargetSampleRate,
		"duration_s":  duration.Seconds(),
	})

	return &Audio{
		Samples:    samples,
		SampleRate: cfg.TargetSampleRate,
		Channels:   1,
		Duration:   duration,
		Path:       path,
	}, nil
}

// f64leSamples reinterprets raw little-endian float64 bytes as samples.
// A trailing partial sample is discarded.
func f64leSamples(data []byte) []float64 {
	data = data[:len(data)-len(data)%8]
	if len(data) == 0 {
		return nil
	}

	samples := make([]float64, len(data)/8)
	for i := range samples {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}
	return samples
}
