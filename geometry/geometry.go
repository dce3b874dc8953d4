// Package geometry describes the drum the pins are placed on. The solid
// modeling itself is an external collaborator behind the Kernel
// interface; this package owns the single parameterized configuration
// that used to be scattered across near-identical CAD builders.
package geometry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sgrandin/tinewheel/layout"
)

// CogStyle selects the drive-cog tooth form.
type CogStyle string

const (
	// CogBevel is the trapezoidal, filleted tooth of the original large
	// drive cog.
	CogBevel CogStyle = "bevel"
	// CogFaceted is the rectangular, fully filleted tooth of the small
	// pinion cog.
	CogFaceted CogStyle = "faceted"
)

// BoreStyle selects the center-bore profile.
type BoreStyle string

const (
	BoreStraight BoreStyle = "straight"
	BoreTapered  BoreStyle = "tapered"
)

// DrumConfig enumerates every dimension of the drum assembly. All
// lengths are millimeters, durations seconds.
type DrumConfig struct {
	RotationSeconds float64 `json:"rotation_seconds"`

	// Main body
	DrumDiameter  float64   `json:"drum_diameter"`
	DrumHeight    float64   `json:"drum_height"`
	WallThickness float64   `json:"wall_thickness"`
	BoreStyle     BoreStyle `json:"bore_style"`
	BoreDiameter  float64   `json:"bore_diameter"`
	BoreTaperDeg  float64   `json:"bore_taper_deg,omitempty"`

	// Tine comb the drum plays against
	TotalTineWidth float64 `json:"total_tine_width"`

	// Pins
	PinRadialBump     float64 `json:"pin_radial_bump"`
	PinVerticalOffset float64 `json:"pin_vertical_offset"`
	ArcSafetyFactor   float64 `json:"arc_safety_factor"`

	// Base ring
	BaseRingHeight float64 `json:"base_ring_height"`
	BaseRingOD     float64 `json:"base_ring_od"`
	BaseRingID     float64 `json:"base_ring_id"`

	// Drive cogs
	DriveCogStyle  CogStyle `json:"drive_cog_style"`
	DriveCogBaseD  float64  `json:"drive_cog_base_d"`
	DriveCogTeethD float64  `json:"drive_cog_teeth_d"`
	DriveCogTeeth  int      `json:"drive_cog_teeth"`
	DriveCogHeight float64  `json:"drive_cog_height"`

	PinionCogStyle  CogStyle `json:"pinion_cog_style"`
	PinionCogBaseD  float64  `json:"pinion_cog_base_d"`
	PinionCogTeethD float64  `json:"pinion_cog_teeth_d"`
	PinionCogTeeth  int      `json:"pinion_cog_teeth"`
	PinionCogHeight float64  `json:"pinion_cog_height"`
}

// DefaultDrumConfig returns the reference cassette dimensions.
func DefaultDrumConfig() DrumConfig {
	return DrumConfig{
		RotationSeconds: 20.0,

		DrumDiameter:  13.0,
		DrumHeight:    17.5,
		WallThickness: 4.0,
		BoreStyle:     BoreStraight,
		BoreDiameter:  5.0,

		TotalTineWidth: 16.0,

		PinRadialBump:     0.5,
		PinVerticalOffset: 1.0,
		ArcSafetyFactor:   1.2,

		BaseRingHeight: 1.8,
		BaseRingOD:     15.0,
		BaseRingID:     5.0,

		DriveCogStyle:  CogBevel,
		DriveCogBaseD:  17.0,
		DriveCogTeethD: 20.0,
		DriveCogTeeth:  46,
		DriveCogHeight: 1.8,

		PinionCogStyle:  CogFaceted,
		PinionCogBaseD:  5.0,
		PinionCogTeethD: 8.0,
		PinionCogTeeth:  12,
		PinionCogHeight: 1.5,
	}
}

// PresetBevelDrive is the default drum: bevel drive cog, straight bore.
func PresetBevelDrive() DrumConfig {
	return DefaultDrumConfig()
}

// PresetFacetedDrive is the variant with a faceted drive cog and tapered
// bore, matching the later spindle revisions.
func PresetFacetedDrive() DrumConfig {
	cfg := DefaultDrumConfig()
	cfg.DriveCogStyle = CogFaceted
	cfg.BoreStyle = BoreTapered
	cfg.BoreTaperDeg = 2.0
	return cfg
}

// Validate rejects dimensions that cannot form a drum.
func (c DrumConfig) Validate() error {
	if c.RotationSeconds <= 0 {
		return fmt.Errorf("rotation duration must be positive")
	}
	if c.DrumDiameter <= 0 || c.DrumHeight <= 0 {
		return fmt.Errorf("drum dimensions must be positive")
	}
	if c.WallThickness <= 0 || c.WallThickness >= c.DrumDiameter/2 {
		return fmt.Errorf("wall thickness %g out of range for diameter %g", c.WallThickness, c.DrumDiameter)
	}
	if c.TotalTineWidth <= 0 {
		return fmt.Errorf("total tine width must be positive")
	}
	if c.BoreStyle == BoreTapered && c.BoreTaperDeg <= 0 {
		return fmt.Errorf("tapered bore requires a positive taper angle")
	}
	if c.DriveCogTeeth <= 0 || c.PinionCogTeeth <= 0 {
		return fmt.Errorf("cog tooth counts must be positive")
	}
	return nil
}

// LayoutParams derives the placement parameters for a drum strung
// against laneCount tines: lane width splits the tine comb evenly and a
// pin is half a lane wide.
func (c DrumConfig) LayoutParams(laneCount int) (layout.Params, error) {
	if laneCount <= 0 {
		return layout.Params{}, fmt.Errorf("lane count must be positive, got %d", laneCount)
	}
	if err := c.Validate(); err != nil {
		return layout.Params{}, err
	}

	laneWidth := c.TotalTineWidth / float64(laneCount)
	return layout.Params{
		RotationSeconds: c.RotationSeconds,
		DrumRadius:      c.DrumDiameter / 2.0,
		PinWidth:        laneWidth / 2.0,
		PinHeight:       laneWidth / 2.0,
		ArcSafetyFactor: c.ArcSafetyFactor,
		LaneWidth:       laneWidth,
		LaneZOffset:     c.BaseRingHeight + c.PinVerticalOffset,
	}, nil
}

// BuildPlan is the complete input handed to a geometry kernel: the drum
// configuration plus every pin to raise on its surface.
type BuildPlan struct {
	Config DrumConfig   `json:"config"`
	Pins   []layout.Pin `json:"pins"`
}

// NewBuildPlan pairs a validated configuration with placed pins. An
// empty pin list is valid: a session that detects no usable notes still
// yields a buildable (silent) drum.
func NewBuildPlan(cfg DrumConfig, pins []layout.Pin) (*BuildPlan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pins == nil {
		pins = []layout.Pin{}
	}
	return &BuildPlan{Config: cfg, Pins: pins}, nil
}

// WriteJSON serializes the plan for an external kernel.
func (p *BuildPlan) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// ExportJSON writes the plan to a file at path.
func (p *BuildPlan) ExportJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := p.WriteJSON(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Kernel is the external solid-modeling collaborator. It owns pin
// solids, drum body, base ring and drive cogs; this repo only hands it
// the plan.
type Kernel interface {
	Build(ctx context.Context, plan *BuildPlan) error
}
