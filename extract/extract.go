// Package extract turns a mono waveform into quantized, spacing-filtered
// note events ready for drum layout.
package extract

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/sgrandin/tinewheel/dsp"
	"github.com/sgrandin/tinewheel/logging"
	"github.com/sgrandin/tinewheel/onset"
	"github.com/sgrandin/tinewheel/pitch"
	"github.com/sgrandin/tinewheel/score"
	"github.com/sgrandin/tinewheel/vocab"
)

// Params configures the extraction pipeline. Every threshold the
// reference mechanism cares about is a named field here.
type Params struct {
	SampleRate int `json:"sample_rate"`

	// FrameSize is the analysis frame and hop length in samples.
	// Frames do not overlap.
	FrameSize int `json:"frame_size"`

	// MaxTime bounds analysis; frames starting after it are dropped.
	MaxTime float64 `json:"max_time"`

	// MinTimeBetweenNotes is the per-pitch re-strike interval in
	// seconds, set by how long a tine needs to ring down.
	MinTimeBetweenNotes float64 `json:"min_time_between_notes"`

	// OnsetThreshold is the normalized spectral-flux level that counts
	// as an attack.
	OnsetThreshold float64 `json:"onset_threshold"`

	// StabilityThreshold is the maximum std dev (Hz) across the pitch
	// history for a candidate to count as a held note rather than
	// vibrato, glide or noise.
	StabilityThreshold float64 `json:"stability_threshold"`

	// HistorySize is the depth of the rolling fused-pitch history.
	HistorySize int `json:"history_size"`

	// FusionToleranceHz is the maximum disagreement between the two
	// estimators at which their results are averaged.
	FusionToleranceHz float64 `json:"fusion_tolerance_hz"`

	// BandLowHz/BandHighHz bound the pre-analysis bandpass to the range
	// where playable fundamentals live.
	BandLowHz  float64 `json:"band_low_hz"`
	BandHighHz float64 `json:"band_high_hz"`

	// SqueezeTo, when positive, rescales the finished sequence so its
	// last event lands on this duration.
	SqueezeTo float64 `json:"squeeze_to,omitempty"`
}

// DefaultParams returns the extraction defaults for the reference
// mechanism.
func DefaultParams(sampleRate int) Params {
	return Params{
		SampleRate:          sampleRate,
		FrameSize:           512,
		MaxTime:             20.0,
		MinTimeBetweenNotes: 0.15,
		OnsetThreshold:      0.3,
		StabilityThreshold:  9.0,
		HistorySize:         3,
		FusionToleranceHz:   50.0,
		BandLowHz:           60.0,
		BandHighHz:          2000.0,
	}
}

// FrameEstimate is one frame's raw analysis output: the fused frequency
// estimate and the onset measurement, stamped with the frame start time.
type FrameEstimate struct {
	Time          float64 `json:"time"`
	Frequency     float64 `json:"frequency"`
	OnsetStrength float64 `json:"onset_strength"`
	Onset         bool    `json:"onset"`
}

// Extractor runs the frame loop: bandpass, dual pitch estimation, fusion,
// onset detection, stability filtering, quantization and temporal spacing.
type Extractor struct {
	params Params
	vocab  *vocab.Vocabulary

	yin    *pitch.YIN
	yinfft *pitch.YINFFT
	fuser  *pitch.Fuser

	log logging.Logger
}

// New creates an extractor for the given vocabulary and parameters.
func New(v *vocab.Vocabulary, params Params) (*Extractor, error) {
	if v == nil {
		return nil, fmt.Errorf("vocabulary is required")
	}
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", params.SampleRate)
	}
	if params.FrameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", params.FrameSize)
	}
	if params.HistorySize < 1 {
		return nil, fmt.Errorf("history size must be at least 1, got %d", params.HistorySize)
	}

	est := pitch.DefaultParams(params.SampleRate)
	est.MinFreq = params.BandLowHz
	est.MaxFreq = params.BandHighHz

	return &Extractor{
		params: params,
		vocab:  v,
		yin:    pitch.NewYINWithParams(est),
		yinfft: pitch.NewYINFFTWithParams(est),
		fuser:  pitch.NewFuser(params.FusionToleranceHz),
		log:    logging.WithFields(logging.Fields{"component": "extract"}),
	}, nil
}

// Frames runs the per-frame analysis stage and returns the raw estimates.
// Samples are peak-normalized and band-limited first. The last partial
// frame and frames starting past MaxTime are excluded.
func (e *Extractor) Frames(ctx context.Context, samples []float64) ([]FrameEstimate, error) {
	frameSize := e.params.FrameSize
	if len(samples) < frameSize {
		return []FrameEstimate{}, nil
	}

	prepared, err := e.prepare(samples)
	if err != nil {
		return nil, err
	}

	flux := onset.NewFluxDetector(frameSize, e.params.OnsetThreshold)
	sr := float64(e.params.SampleRate)

	var frames []FrameEstimate
	for start := 0; start+frameSize <= len(prepared); start += frameSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frameTime := float64(start) / sr
		if e.params.MaxTime > 0 && frameTime > e.params.MaxTime {
			break
		}

		frame := prepared[start : start+frameSize]

		// The two estimators are independent until fusion. The spectral
		// estimate is primary: it wins when the two disagree.
		a := e.yinfft.Estimate(frame)
		b := e.yin.Estimate(frame)
		fused := e.fuser.Fuse(a, b)

		strength, isOnset := flux.Process(frame)

		frames = append(frames, FrameEstimate{
			Time:          frameTime,
			Frequency:     fused,
			OnsetStrength: strength,
			Onset:         isOnset,
		})
	}

	return frames, nil
}

// Extract produces the quantized, spacing-filtered note sequence for the
// waveform, squeezed to Params.SqueezeTo when requested. A waveform in
// which no stable notes are found yields an empty sequence, not an error.
func (e *Extractor) Extract(ctx context.Context, samples []float64) (score.Sequence, error) {
	frames, err := e.Frames(ctx, samples)
	if err != nil {
		return nil, err
	}

	events := e.buildNotes(frames)

	if e.params.SqueezeTo > 0 && len(events) > 0 {
		e.log.Info("squeezing sequence", logging.Fields{
			"from_s": events.MaxTime(),
			"to_s":   e.params.SqueezeTo,
		})
		events = score.Squeeze(events, e.params.SqueezeTo)
	}

	e.log.Info("extraction finished", logging.Fields{
		"frames": len(frames),
		"notes":  len(events),
	})
	return events, nil
}

// buildNotes walks the frame estimates in order, applying the stability
// window, vocabulary quantization and the re-strike spacing rule.
func (e *Extractor) buildNotes(frames []FrameEstimate) score.Sequence {
	history := make([]float64, 0, e.params.HistorySize)
	spacing := score.NewSpacingFilter(e.params.MinTimeBetweenNotes)

	events := make(score.Sequence, 0)
	for _, f := range frames {
		// Rolling history of fused estimates; zero (unvoiced) frames
		// enter it too and break stability, as they should.
		history = append(history, f.Frequency)
		if len(history) > e.params.HistorySize {
			history = history[1:]
		}

		if !f.Onset || len(history) < e.params.HistorySize {
			continue
		}

		if stat.PopStdDev(history, nil) >= e.params.StabilityThreshold {
			e.log.Debug("unstable pitch at onset", logging.Fields{"time": f.Time})
			continue
		}

		avg := stat.Mean(history, nil)
		name, ok := e.vocab.Nearest(avg)
		if !ok {
			// Out-of-vocabulary pitch: routine drop.
			continue
		}

		if !spacing.Accept(f.Time, name) {
			continue
		}

		e.log.Debug("note detected", logging.Fields{
			"time":  f.Time,
			"pitch": name,
			"freq":  avg,
		})
		events = append(events, score.Event{Time: f.Time, Pitch: name})
	}

	return events
}

// prepare peak-normalizes the samples and applies the bandpass.
func (e *Extractor) prepare(samples []float64) ([]float64, error) {
	peak := 0.0
	for _, s := range samples {
		if a := s; a < 0 {
			if -a > peak {
				peak = -a
			}
		} else if a > peak {
			peak = a
		}
	}

	out := make([]float64, len(samples))
	if peak > 0 {
		for i, s := range samples {
			out[i] = s / peak
		}
	}

	bp, err := dsp.NewBandpass(e.params.SampleRate, e.params.BandLowHz, e.params.BandHighHz)
	if err != nil {
		return nil, fmt.Errorf("configuring bandpass: %w", err)
	}
	return bp.ProcessBuffer(out), nil
}
