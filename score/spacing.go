package score

// SpacingFilter enforces the minimum re-strike interval per pitch: a tine
// must be allowed to ring before it is plucked again. Rejections are
// routine, not errors.
type SpacingFilter struct {
	minGap       float64
	lastAccepted map[string]float64
}

// NewSpacingFilter creates a filter with the given minimum gap in seconds
// between consecutive strikes of the same pitch.
func NewSpacingFilter(minGap float64) *SpacingFilter {
	return &SpacingFilter{
		minGap:       minGap,
		lastAccepted: make(map[string]float64),
	}
}

// Accept reports whether a strike of pitch at time t respects the minimum
// gap since the last accepted strike of the same pitch, and records it if
// so. Calls must arrive in non-decreasing time order.
func (f *SpacingFilter) Accept(t float64, pitch string) bool {
	last, seen := f.lastAccepted[pitch]
	if seen && t-last < f.minGap {
		return false
	}
	f.lastAccepted[pitch] = t
	return true
}

// Filter applies the spacing rule to a whole sequence in one pass,
// sorting the input by time first. The receiver's state is reset, so a
// filter may be reused across sequences.
func (f *SpacingFilter) Filter(s Sequence) Sequence {
	f.Reset()

	sorted := s.Sorted()
	out := make(Sequence, 0, len(sorted))
	for _, e := range sorted {
		if f.Accept(e.Time, e.Pitch) {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears the per-pitch last-accepted-time state.
func (f *SpacingFilter) Reset() {
	f.lastAccepted = make(map[string]float64)
}
