package pitch

// YIN is the time-domain YIN fundamental frequency estimator.
//
// Reference: de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental
// frequency estimator for speech and music"
type YIN struct {
	params Params
}

// NewYIN creates a YIN estimator with default parameters.
func NewYIN(sampleRate int) *YIN {
	return NewYINWithParams(DefaultParams(sampleRate))
}

// NewYINWithParams creates a YIN estimator with custom parameters.
func NewYINWithParams(params Params) *YIN {
	return &YIN{params: params}
}

// Estimate returns the frame's fundamental frequency, or a zero estimate
// for silent or aperiodic frames.
func (y *YIN) Estimate(frame []float64) Estimate {
	halfN := len(frame) / 2
	if halfN < 2 || y.params.silent(frame) {
		return Estimate{}
	}

	// Difference function
	diff := make([]float64, halfN)
	for tau := 1; tau < halfN; tau++ {
		sum := 0.0
		for j := 0; j < halfN; j++ {
			delta := frame[j] - frame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	// Cumulative mean normalized difference function
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
