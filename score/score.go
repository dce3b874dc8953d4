// Package score defines the timed note-event sequence that every pipeline
// stage exchanges, plus the temporal filters that act on it.
package score

import (
	"fmt"
	"sort"

	"github.com/sgrandin/tinewheel/vocab"
)

// Event is one note strike: a time in seconds and a vocabulary pitch name.
type Event struct {
	Time  float64 `json:"time"`
	Pitch string  `json:"pitch"`
}

// Sequence is an ordered list of note events. A sequence is not
// necessarily sorted by time until a consumer sorts it; stages that
// require time order call Sorted first.
type Sequence []Event

// Sorted returns a copy sorted by time. Events with equal times keep
// their relative order.
func (s Sequence) Sorted() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out
}

// MaxTime returns the largest timestamp, 0 for an empty sequence.
func (s Sequence) MaxTime() float64 {
	max := 0.0
	for _, e := range s {
		if e.Time > max {
			max = e.Time
		}
	}
	return max
}

// Pitches returns the distinct pitch names in order of first appearance.
func (s Sequence) Pitches() []string {
	seen := make(map[string]bool, len(s))
	var out []string
	for _, e := range s {
		if !seen[e.Pitch] {
			seen[e.Pitch] = true
			out = append(out, e.Pitch)
		}
	}
	return out
}

// Validate checks the sequence against the interchange contract: every
// pitch a vocabulary member, every time within [0, duration].
// A duration of 0 disables the upper bound check.
func (s Sequence) Validate(v *vocab.Vocabulary, duration float64) error {
	for i, e := range s {
		if !v.Contains(e.Pitch) {
			return fmt.Errorf("event %d: pitch %q not in vocabulary", i, e.Pitch)
		}
		if e.Time < 0 {
			return fmt.Errorf("event %d: negative time %.3f", i, e.Time)
		}
		if duration > 0 && e.Time > duration {
			return fmt.Errorf("event %d: time %.3f exceeds duration %.3f", i, e.Time, duration)
		}
	}
	return nil
}
