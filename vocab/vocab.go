// Package vocab holds the ordered set of pitches a music box can play and
// the conversions between pitch names, frequencies and drum lanes.
package vocab

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Equal temperament reference: A4 = 440 Hz = MIDI note 69.
const (
	refFrequency = 440.0
	refMIDI      = 69
)

var semitoneNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Vocabulary is the immutable, ordered set of playable pitch names.
// Index position determines a pitch's physical lane on the drum.
type Vocabulary struct {
	names []string
	freqs []float64
	midi  []int
	index map[string]int
}

// New builds a vocabulary from pitch names. Names must be valid
// (letter, optional '#', octave), distinct, and strictly ascending
// in frequency.
func New(names []string) (*Vocabulary, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("vocabulary must contain at least one pitch")
	}

	v := &Vocabulary{
		names: make([]string, len(names)),
		freqs: make([]float64, len(names)),
		midi:  make([]int, len(names)),
		index: make(map[string]int, len(names)),
	}

	for i, name := range names {
		m, err := NoteToMIDI(name)
		if err != nil {
			return nil, err
		}
		if i > 0 && m <= v.midi[i-1] {
			return nil, fmt.Errorf("vocabulary must be strictly ascending: %q does not follow %q", name, names[i-1])
		}
		if _, dup := v.index[name]; dup {
			return nil, fmt.Errorf("duplicate pitch %q in vocabulary", name)
		}
		v.names[i] = name
		v.midi[i] = m
		v.freqs[i] = midiToFreq(m)
		v.index[name] = i
	}

	return v, nil
}

// Standard returns the 18-tine vocabulary spanning C4..F6 that the
// reference mechanism is strung with.
func Standard() *Vocabulary {
	v, err := New([]string{
		"C4", "D4", "E4", "F4", "G4", "A4", "B4", "C5",
		"D5", "E5", "F5", "G5", "A5", "B5", "C6", "D6",
		"E6", "F6",
	})
	if err != nil {
		// The built-in table is valid by construction.
		panic(err)
	}
	return v
}

// Len returns the number of pitches (and lanes).
func (v *Vocabulary) Len() int {
	return len(v.names)
}

// Names returns a copy of the pitch names in lane order.
func (v *Vocabulary) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Contains reports whether name is a member of the vocabulary.
func (v *Vocabulary) Contains(name string) bool {
	_, ok := v.index[name]
	return ok
}

// IndexOf returns the lane index of a pitch name.
func (v *Vocabulary) IndexOf(name string) (int, bool) {
	i, ok := v.index[name]
	return i, ok
}

// Name returns the pitch name at lane index i.
func (v *Vocabulary) Name(i int) string {
	return v.names[i]
}

// Frequency returns the equal-tempered frequency of a member pitch.
func (v *Vocabulary) Frequency(name string) (float64, bool) {
	i, ok := v.index[name]
	if !ok {
		return 0, false
	}
	return v.freqs[i], true
}

// MIDINote returns the MIDI note number of a member pitch.
func (v *Vocabulary) MIDINote(name string) (int, bool) {
	i, ok := v.index[name]
	if !ok {
		return 0, false
	}
	return v.midi[i], true
}

// Nearest quantizes a frequency to the nearest equal-tempered pitch and
// returns its name if that pitch is a vocabulary member. Frequencies that
// are non-positive or that round to a pitch outside the vocabulary are
// rejected (ok=false), not errors: out-of-range estimates are routine.
func (v *Vocabulary) Nearest(freq float64) (string, bool) {
	if freq <= 0 {
		return "", false
	}

	m := int(math.Round(float64(refMIDI) + 12.0*math.Log2(freq/refFrequency)))
	if m < 0 || m > 127 {
		return "", false
	}

	name := midiToName(m)
	if !v.Contains(name) {
		return "", false
	}
	return name, true
}

// noteToFreq converts a pitch name (e.g. "A4") to its equal-tempered
// frequency in Hz.
func noteToFreq(name string) (float64, error) {
	m, err := NoteToMIDI(name)
	if err != nil {
		return 0, err
	}
	return midiToFreq(m), nil
}

// NoteToMIDI parses a pitch name like "C4" or "F#5" into a MIDI note
// number (C4 = 60).
func NoteToMIDI(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("invalid pitch name %q", name)
	}

	// Octave may be negative ("A-1"), so split at the first digit or '-'.
	split := -1
	for i, r := range name {
		if i > 0 && (r == '-' || (r >= '0' && r <= '9')) {
			split = i
			break
		}
	}
	if split < 1 {
		return 0, fmt.Errorf("invalid pitch name %q", name)
	}

	letter := name[:split]
	semitone := -1
	for i, s := range semitoneNames {
		if strings.EqualFold(s, letter) {
			semitone = i
			break
		}
	}
	if semitone < 0 {
		return 0, fmt.Errorf("invalid pitch letter in %q", name)
	}

	octave, err := strconv.Atoi(name[split:])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in %q", name)
	}

	m := (octave+1)*12 + semitone
	if m < 0 || m > 127 {
		return 0, fmt.Errorf("pitch %q out of MIDI range", name)
	}
	return m, nil
}

func midiToFreq(m int) float64 {
	return refFrequency * math.Pow(2, float64(m-refMIDI)/12.0)
}

func midiToName(m int) string {
	return fmt.Sprintf("%s%d", semitoneNames[m%12], m/12-1)
}
