package score

// Squeeze rescales every timestamp so the last event lands exactly on
// targetDuration. The transform is affine: ordering and the ratios of
// inter-event gaps are preserved. The scale factor is deliberately not
// clamped at 1, so a short sequence is stretched; callers that only ever
// want to speed playback up must gate on MaxTime themselves.
//
// An empty sequence, or one whose maximum time is 0, is returned as an
// identical copy: there is nothing to scale and no division to blow up.
func Squeeze(s Sequence, targetDuration float64) Sequence {
	out := make(Sequence, len(s))
	copy(out, s)

	max := s.MaxTime()
	if len(s) == 0 || max <= 0 {
		return out
	}

	scale := targetDuration / max
	for i := range out {
		out[i].Time *= scale
	}
	return out
}
