package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardVocabulary(t *testing.T) {
	v := Standard()

	assert.Equal(t, 18, v.Len())
	assert.Equal(t, "C4", v.Name(0))
	assert.Equal(t, "F6", v.Name(17))

	// Strictly ascending in frequency
	prev := 0.0
	for _, name := range v.Names() {
		f, ok := v.Frequency(name)
		require.True(t, ok, name)
		assert.Greater(t, f, prev, name)
		prev = f
	}

	assert.True(t, v.Contains("A4"))
	assert.False(t, v.Contains("C#4"))
	assert.False(t, v.Contains("G6"))

	lane, ok := v.IndexOf("E5")
	require.True(t, ok)
	assert.Equal(t, 9, lane)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name  string
		notes []string
	}{
		{"empty", nil},
		{"duplicate", []string{"C4", "C4"}},
		{"descending", []string{"D4", "C4"}},
		{"invalid name", []string{"C4", "H4"}},
		{"no octave", []string{"C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.notes)
			assert.Error(t, err)
		})
	}
}

func TestNoteToFreq(t *testing.T) {
	tests := []struct {
		note string
		want float64
	}{
		{"A4", 440.0},
		{"C4", 261.626},
		{"F#5", 739.989},
		{"F6", 1396.913},
	}

	for _, tt := range tests {
		f, err := noteToFreq(tt.note)
		require.NoError(t, err, tt.note)
		assert.InDelta(t, tt.want, f, 0.01, tt.note)
	}

	_, err := noteToFreq("X4")
	assert.Error(t, err)
}

func TestNoteToMIDI(t *testing.T) {
	m, err := NoteToMIDI("C4")
	require.NoError(t, err)
	assert.Equal(t, 60, m)

	m, err = NoteToMIDI("A4")
	require.NoError(t, err)
	assert.Equal(t, 69, m)
}

func TestNearest(t *testing.T) {
	v := Standard()

	tests := []struct {
		freq   float64
		want   string
		wantOK bool
	}{
		{440.0, "A4", true},
		{443.0, "A4", true}, // slightly sharp, still rounds to A4
		{261.6, "C4", true},
		{1396.9, "F6", true},
		{466.16, "", false}, // A#4 is a semitone, not a tine
		{30.0, "", false},   // below the vocabulary
		{5000.0, "", false}, // above the vocabulary
		{0.0, "", false},
		{-100.0, "", false},
	}

	for _, tt := range tests {
		got, ok := v.Nearest(tt.freq)
		assert.Equal(t, tt.wantOK, ok, "freq %.2f", tt.freq)
		assert.Equal(t, tt.want, got, "freq %.2f", tt.freq)
	}
}

func TestMIDINote(t *testing.T) {
	v := Standard()

	m, ok := v.MIDINote("C4")
	require.True(t, ok)
	assert.Equal(t, 60, m)

	_, ok = v.MIDINote("C#4")
	assert.False(t, ok)
}
