package pitch

// Fuser combines two independent frame estimates into one frequency.
type Fuser struct {
	// ToleranceHz is the maximum disagreement at which the two
	// estimates are still considered the same pitch and averaged.
	ToleranceHz float64
}

// NewFuser creates a fuser with the given agreement tolerance in Hz.
func NewFuser(toleranceHz float64) *Fuser {
	return &Fuser{ToleranceHz: toleranceHz}
}

// Fuse returns the averaged frequency when the estimates agree within the
// tolerance, otherwise whichever estimate is non-zero (preferring the
// first). Returns 0 when both are unvoiced.
func (f *Fuser) Fuse(a, b Estimate) float64 {
	fa, fb := a.Frequency, b.Frequency

	switch {
	case fa <= 0 && fb <= 0:
		return 0
	case fa <= 0:
		return fb
	case fb <= 0:
		return fa
	}

	d := fa - fb
	if d < 0 {
		d = -d
	}
	if d < f.ToleranceHz {
		return (fa + fb) / 2.0
	}
	return fa
}
