package pitch

import (
	"github.com/sgrandin/tinewheel/dsp"
)

// YINFFT is a spectral variant of YIN that computes the difference
// function from an FFT autocorrelation instead of the O(n²) time-domain
// sum. The two estimators fail differently on inharmonic attacks, which
// is what makes fusing them worthwhile.
//
// Reference: Brossier, P. (2006). "Automatic annotation of musical audio
// for interactive applications", ch. 3.
type YINFFT struct {
	params Params
	fft    *dsp.FFT
}

// NewYINFFT creates a YinFFT estimator with default parameters.
func NewYINFFT(sampleRate int) *YINFFT {
	return NewYINFFTWithParams(DefaultParams(sampleRate))
}

// NewYINFFTWithParams creates a YinFFT estimator with custom parameters.
func NewYINFFTWithParams(params Params) *YINFFT {
	return &YINFFT{params: params, fft: dsp.NewFFT()}
}

// Estimate returns the frame's fundamental frequency, or a zero estimate
// for silent or aperiodic frames.
func (y *YINFFT) Estimate(frame []float64) Estimate {
	n := len(frame)
	halfN := n / 2
	if halfN < 2 || y.params.silent(frame) {
		return Estimate{}
	}

	// Autocorrelation via FFT: pad to 2n to avoid circular wrap.
	padded := make([]float64, 2*n)
	copy(padded, frame)

	spectrum := y.fft.Compute(padded)
	for i, c := range spectrum {
		re := real(c)
		im := imag(c)
		spectrum[i] = complex(re*re+im*im, 0)
	}
	acorr := y.fft.ComputeInverse(spectrum)

	r0 := real(acorr[0])
	if r0 <= 0 {
		return Estimate{}
	}

	// Square difference approximated from the autocorrelation,
	// then the usual cumulative mean normalization.
	diff := make([]float64, halfN)
	for tau := 1; tau < halfN; tau++ {
		d := 2.0 * (r0 - real(acorr[tau]))
		if d < 0 {
			d = 0
		}
		diff[tau] = d
	}

	cmndf := make([]float64, halfN)
	cmndf[0] = 1.0
	runningSum := 0.0
	for tau := 1; tau < halfN; tau++ {
		runningSum += diff[tau]
		if runningSum == 0 {
			cmndf[tau] = 1.0
			continue
		}
		cmndf[tau] = diff[tau] * float64(tau) / runningSum
	}

	return y.params.searchCMNDF(cmndf)
}
