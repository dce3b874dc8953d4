// Package pitch provides per-frame fundamental frequency estimators and
// the fusion rule that combines two independent estimates.
package pitch

import "math"

// Estimate is one frame's fundamental frequency estimate.
// Frequency 0 means the frame was judged unvoiced or silent.
type Estimate struct {
	Frequency  float64 `json:"frequency"`  // Hz, 0 = no pitch
	Confidence float64 `json:"confidence"` // 0-1
}

// Estimator estimates the fundamental frequency of a single audio frame.
type Estimator interface {
	Estimate(frame []float64) Estimate
}

// Params contains the parameters shared by the frame estimators.
type Params struct {
	SampleRate int     `json:"sample_rate"`
	Threshold  float64 `json:"threshold"`  // CMNDF acceptance threshold
	MinFreq    float64 `json:"min_freq"`   // Hz
	MaxFreq    float64 `json:"max_freq"`   // Hz
	SilenceDB  float64 `json:"silence_db"` // frames below this RMS level are unvoiced
}

// DefaultParams returns estimator defaults tuned for music-box material.
func DefaultParams(sampleRate int) Params {
	return Params{
		SampleRate: sampleRate,
		Threshold:  0.15,
		MinFreq:    60.0,
		MaxFreq:    2000.0,
		SilenceDB:  -60.0,
	}
}

// lagBounds converts the frequency range to an inclusive lag search range,
// clamped to what the frame length can resolve.
func (p Params) lagBounds(halfN int) (minTau, maxTau int) {
	minTau = 1
	if p.MaxFreq > 0 {
		minTau = int(float64(p.SampleRate) / p.MaxFreq)
		if minTau < 1 {
			minTau = 1
		}
	}
	maxTau = halfN - 1
	if p.MinFreq > 0 {
		if t := int(float64(p.SampleRate) / p.MinFreq); t < maxTau {
			maxTau = t
		}
	}
	return minTau, maxTau
}

// silent reports whether the frame RMS falls below the silence gate.
func (p Params) silent(frame []float64) bool {
	sum := 0.0
	for _, s := range frame {
		sum += s * s
	}
	if len(frame) == 0 {
		return true
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	return 20.0*math.Log10(rms+1e-12) < p.SilenceDB
}

// searchCMNDF finds the first local minimum of the cumulative mean
// normalized difference function below the threshold and refines the lag
// by parabolic interpolation. Returns frequency 0 when nothing qualifies.
func (p Params) searchCMNDF(cmndf []float64) Estimate {
	minTau, maxTau := p.lagBounds(len(cmndf))

	for tau := minTau; tau <= maxTau && tau < len(cmndf); tau++ {
		if cmndf[tau] >= p.Threshold {
			continue
		}
		// Walk down to the bottom of this dip.
		for tau+1 < len(cmndf) && cmndf[tau+1] < cmndf[tau] {
			tau++
		}

		period := parabolicInterpolation(cmndf, tau)
		freq := float64(p.SampleRate) / period
		if freq < p.MinFreq || freq > p.MaxFreq {
			return Estimate{}
		}

		conf := 1.0 - cmndf[tau]
		if conf < 0 {
			conf = 0
		}
		return Estimate{Frequency: freq, Confidence: conf}
	}

	return Estimate{}
}

// parabolicInterpolation refines a discrete minimum to sub-sample accuracy.
func parabolicInterpolation(values []float64, idx int) float64 {
	if idx <= 0 || idx >= len(values)-1 {
		return float64(idx)
	}

	left := values[idx-1]
	mid := values[idx]
	right := values[idx+1]

	denom := left - 2.0*mid + right
	if denom == 0 {
		return float64(idx)
	}

	offset := 0.5 * (left - right) / denom
	if offset > 0.5 || offset < -0.5 {
		return float64(idx)
	}
	return float64(idx) + offset
}
