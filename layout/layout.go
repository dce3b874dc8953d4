// Package layout places timed note events onto the rotating drum as
// angular pin positions, one lane per vocabulary pitch.
package layout

import (
	"fmt"
	"math"

	"github.com/sgrandin/tinewheel/logging"
	"github.com/sgrandin/tinewheel/score"
	"github.com/sgrandin/tinewheel/vocab"
)

// Params describes the rotation and the physical pin/lane geometry the
// placement must respect.
type Params struct {
	// RotationSeconds is the time for one full drum rotation; an event
	// at this time maps back to angle 0.
	RotationSeconds float64 `json:"rotation_seconds"`

	// DrumRadius is the pin-circle radius, same unit as PinWidth.
	DrumRadius float64 `json:"drum_radius"`

	// PinWidth and PinHeight are the pin footprint along the drum
	// circumference and axis.
	PinWidth  float64 `json:"pin_width"`
	PinHeight float64 `json:"pin_height"`

	// ArcSafetyFactor widens the arc a pin is considered to occupy when
	// deriving the minimum angular spacing.
	ArcSafetyFactor float64 `json:"arc_safety_factor"`

	// LaneWidth is the axial pitch between lanes; LaneZOffset is where
	// lane 0 starts above the drum base.
	LaneWidth   float64 `json:"lane_width"`
	LaneZOffset float64 `json:"lane_z_offset"`

	// MinAngleSpacingDeg overrides the derived same-pitch angular
	// spacing when positive.
	MinAngleSpacingDeg float64 `json:"min_angle_spacing_deg,omitempty"`
}

// DefaultParams returns layout parameters for the reference drum.
func DefaultParams() Params {
	return Params{
		RotationSeconds: 20.0,
		DrumRadius:      6.5,
		PinWidth:        16.0 / 18.0 / 2.0, // half a lane
		PinHeight:       16.0 / 18.0 / 2.0,
		ArcSafetyFactor: 1.2,
		LaneWidth:       16.0 / 18.0,
		LaneZOffset:     2.8, // base ring + vertical clearance
	}
}

// MinAngleSpacing returns the minimum angular distance in degrees between
// two pins of the same pitch: either the explicit override or the arc the
// pin occupies (widened by the safety factor) converted to degrees at the
// drum radius. This is a spatial constraint, distinct from the temporal
// re-strike interval applied during extraction.
func (p Params) MinAngleSpacing() float64 {
	if p.MinAngleSpacingDeg > 0 {
		return p.MinAngleSpacingDeg
	}
	return (p.PinWidth * p.ArcSafetyFactor / p.DrumRadius) * 180.0 / math.Pi
}

// Validate rejects geometry the placement math cannot work with. The
// same-pitch-only collision rule leans on lanes being disjoint, so a lane
// narrower than a pin is refused here.
func (p Params) Validate() error {
	if p.RotationSeconds <= 0 {
		return fmt.Errorf("rotation duration must be positive, got %g", p.RotationSeconds)
	}
	if p.DrumRadius <= 0 {
		return fmt.Errorf("drum radius must be positive, got %g", p.DrumRadius)
	}
	if p.PinWidth <= 0 {
		return fmt.Errorf("pin width must be positive, got %g", p.PinWidth)
	}
	if p.LaneWidth < p.PinWidth {
		return fmt.Errorf("lane width %g is narrower than pin width %g: adjacent lanes would collide", p.LaneWidth, p.PinWidth)
	}
	return nil
}

// Pin is one physical actuator position on the drum. Pins are never
// mutated after creation.
type Pin struct {
	AngleDeg float64 `json:"angle_deg"` // [0, 360)
	Lane     int     `json:"lane"`
	ZCenter  float64 `json:"z_center"`
	Pitch    string  `json:"pitch"`
	Time     float64 `json:"time"`
}

// Engine converts a note sequence into pin descriptors.
type Engine struct {
	params Params
	vocab  *vocab.Vocabulary
	log    logging.Logger
}

// NewEngine creates a layout engine for the given vocabulary and geometry.
func NewEngine(v *vocab.Vocabulary, params Params) (*Engine, error) {
	if v == nil {
		return nil, fmt.Errorf("vocabulary is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		params: params,
		vocab:  v,
		log:    logging.WithFields(logging.Fields{"component": "layout"}),
	}, nil
}

// Place maps each event to an angle and lane, greedily dropping events
// whose angle falls within the minimum spacing of the previous pin for
// the same pitch. Earlier events win ties. The pass is deterministic:
// input is sorted by time (stable) and per-pitch state is only ever read
// for the current event's pitch.
//
// Only same-pitch collisions are checked; distinct pitches occupy
// disjoint lanes and never mask each other.
func (e *Engine) Place(events score.Sequence) []Pin {
	minSpacing := e.params.MinAngleSpacing()
	lastAngle := make(map[string]float64)

	pins := make([]Pin, 0, len(events))
	dropped := 0

	for _, ev := range events.Sorted() {
		lane, ok := e.vocab.IndexOf(ev.Pitch)
		if !ok {
			// Unknown pitch: routine drop, the sequence contract is
			// enforced upstream.
			dropped++
			continue
		}

		angle := math.Mod(ev.Time/e.params.RotationSeconds*360.0, 360.0)
		if angle < 0 {
			angle += 360.0
		}

		if prev, seen := lastAngle[ev.Pitch]; seen {
			if angularDistance(angle, prev) < minSpacing {
				dropped++
				continue
			}
		}

		pins = append(pins, Pin{
			AngleDeg: angle,
			Lane:     lane,
			ZCenter:  e.params.LaneZOffset + e.params.LaneWidth*float64(lane) + e.params.PinWidth/2.0,
			Pitch:    ev.Pitch,
			Time:     ev.Time,
		})
		lastAngle[ev.Pitch] = angle
	}

	e.log.Info("layout complete", logging.Fields{
		"pins":            len(pins),
		"dropped":         dropped,
		"min_spacing_deg": minSpacing,
	})
	return pins
}

// angularDistance returns the circular distance between two angles in
// degrees, in [0, 180].
func angularDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180.0 {
		d = 360.0 - d
	}
	return d
}
