package score

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/sgrandin/tinewheel/vocab"
)

// MIDI export settings. The tempo is nominal: event times are absolute
// seconds, so any fixed tempo reproduces them exactly.
const (
	midiTempoBPM = 120.0
	midiGate     = 250 * time.Millisecond // struck tines ring briefly
	midiVelocity = 96
	midiChannel  = 0
)

// WriteMIDI renders the sequence as a single-track standard MIDI file so
// an arrangement can be audited in any sequencer before a drum is built.
func WriteMIDI(w io.Writer, s Sequence, v *vocab.Vocabulary) error {
	ticks := smf.MetricTicks(960)

	type timedMsg struct {
		tick uint32
		off  bool
		msg  midi.Message
	}

	msgs := make([]timedMsg, 0, 2*len(s))
	for _, e := range s.Sorted() {
		key, ok := v.MIDINote(e.Pitch)
		if !ok {
			return fmt.Errorf("pitch %q not in vocabulary", e.Pitch)
		}

		at := time.Duration(e.Time * float64(time.Second))
		msgs = append(msgs,
			timedMsg{
				tick: ticks.Ticks(midiTempoBPM, at),
				msg:  midi.NoteOn(midiChannel, uint8(key), midiVelocity),
			},
			timedMsg{
				tick: ticks.Ticks(midiTempoBPM, at+midiGate),
				off:  true,
				msg:  midi.NoteOff(midiChannel, uint8(key)),
			},
		)
	}

	// Note-offs first at equal ticks, so a re-strike at exactly the gate
	// boundary is not swallowed.
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].off && !msgs[j].off
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(midiTempoBPM))

	last := uint32(0)
	for _, m := range msgs {
		tr.Add(m.tick-last, m.msg)
		last = m.tick
	}
	tr.Close(0)

	f := smf.New()
	f.TimeFormat = ticks
	if err := f.Add(tr); err != nil {
		return fmt.Errorf("building midi track: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi file: %w", err)
	}
	return nil
}

// ExportMIDI writes the sequence to a .mid file at path.
func ExportMIDI(path string, s Sequence, v *vocab.Vocabulary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteMIDI(f, s, v); err != nil {
		return err
	}
	return f.Close()
}
