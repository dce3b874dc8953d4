// Command tinewheel turns a song (an audio recording, or a text
// description arranged by a language-model oracle) into a music-box
// drum build plan.
//
// Usage:
//
//	tinewheel -input song.wav -out build
//	tinewheel -input song.mp3 -squeeze 45 -out build   # analyze 45s, squeeze into one rotation
//	tinewheel -text "Frère Jacques" -out build
//
// The output directory receives plan.json (drum configuration plus pin
// placements for the geometry kernel) and, unless disabled, preview.wav
// and notes.mid.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sgrandin/tinewheel/decode"
	"github.com/sgrandin/tinewheel/extract"
	"github.com/sgrandin/tinewheel/geometry"
	"github.com/sgrandin/tinewheel/layout"
	"github.com/sgrandin/tinewheel/logging"
	"github.com/sgrandin/tinewheel/oracle"
	"github.com/sgrandin/tinewheel/preview"
	"github.com/sgrandin/tinewheel/score"
	"github.com/sgrandin/tinewheel/vocab"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	inputFile := flag.String("input", "", "Input audio file to extract notes from (WAV natively, other formats via ffmpeg)")
	inputText := flag.String("text", "", "Name or description of the song to arrange")
	outputDir := flag.String("out", "build", "Output directory")
	squeeze := flag.Float64("squeeze", 0, "Analyze this many seconds of audio and squeeze them into one rotation")
	faceted := flag.Bool("faceted", false, "Use the faceted-drive/tapered-bore drum preset")
	withPreview := flag.Bool("preview", true, "Write a synthesized preview WAV")
	withMIDI := flag.Bool("midi", true, "Write the note sequence as a MIDI file")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if *verbose {
		logging.SetLevel(logging.DebugLevel)
	}

	if (*inputFile == "") == (*inputText == "") {
		return fmt.Errorf("specify exactly one of -input or -text")
	}

	cfg := geometry.PresetBevelDrive()
	if *faceted {
		cfg = geometry.PresetFacetedDrive()
	}

	v := vocab.Standard()
	ctx := context.Background()

	var (
		events score.Sequence
		err    error
	)
	if *inputFile != "" {
		events, err = extractNotes(ctx, v, cfg, *inputFile, *squeeze)
	} else {
		events, err = composeNotes(ctx, v, cfg, *inputText)
	}
	if err != nil {
		return err
	}

	if err := events.Validate(v, cfg.RotationSeconds); err != nil {
		return fmt.Errorf("note sequence violates contract: %w", err)
	}
	if len(events) == 0 {
		logging.Warn("no usable notes detected; the drum will be silent")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	layoutParams, err := cfg.LayoutParams(v.Len())
	if err != nil {
		return err
	}
	engine, err := layout.NewEngine(v, layoutParams)
	if err != nil {
		return err
	}
	pins := engine.Place(events)

	plan, err := geometry.NewBuildPlan(cfg, pins)
	if err != nil {
		return err
	}
	planPath := filepath.Join(*outputDir, "plan.json")
	if err := plan.ExportJSON(planPath); err != nil {
		return err
	}
	logging.Info("build plan written", logging.Fields{"path": planPath, "pins": len(pins)})

	if *withMIDI {
		midiPath := filepath.Join(*outputDir, "notes.mid")
		if err := score.ExportMIDI(midiPath, events, v); err != nil {
			return err
		}
		logging.Info("midi written", logging.Fields{"path": midiPath})
	}

	if *withPreview {
		renderer, err := preview.NewRenderer(v, preview.DefaultParams())
		if err != nil {
			return err
		}
		previewPath := filepath.Join(*outputDir, "preview.wav")
		if err := renderer.RenderWAV(previewPath, events, cfg.RotationSeconds); err != nil {
			return err
		}
	}

	return nil
}

// extractNotes runs the audio pipeline. Without -squeeze, analysis stops
// at one rotation; with it, the requested span is analyzed and then
// squeezed to fit one rotation.
func extractNotes(ctx context.Context, v *vocab.Vocabulary, cfg geometry.DrumConfig, path string, squeeze float64) (score.Sequence, error) {
	maxTime := cfg.RotationSeconds
	if squeeze > 0 {
		maxTime = squeeze
	}

	audio, err := decode.File(ctx, path, maxTime, decode.DefaultFFmpegConfig())
	if err != nil {
		return nil, err
	}

	params := extract.DefaultParams(audio.SampleRate)
	params.MaxTime = maxTime
	if squeeze > 0 {
		params.SqueezeTo = cfg.RotationSeconds
	}

	ex, err := extract.New(v, params)
	if err != nil {
		return nil, err
	}
	return ex.Extract(ctx, audio.Samples)
}

// composeNotes asks the oracle for an arrangement. Oracle failures fail
// closed to an empty sequence inside the client.
func composeNotes(ctx context.Context, v *vocab.Vocabulary, cfg geometry.DrumConfig, description string) (score.Sequence, error) {
	client, err := oracle.NewClient(v, oracle.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return client.Compose(ctx, description, cfg.RotationSeconds)
}
