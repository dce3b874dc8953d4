package geometry

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrandin/tinewheel/layout"
)

func TestPresets(t *testing.T) {
	bevel := PresetBevelDrive()
	require.NoError(t, bevel.Validate())
	assert.Equal(t, CogBevel, bevel.DriveCogStyle)
	assert.Equal(t, BoreStraight, bevel.BoreStyle)

	faceted := PresetFacetedDrive()
	require.NoError(t, faceted.Validate())
	assert.Equal(t, CogFaceted, faceted.DriveCogStyle)
	assert.Equal(t, BoreTapered, faceted.BoreStyle)
	assert.Greater(t, faceted.BoreTaperDeg, 0.0)

	// Presets differ only in drive cog and bore.
	assert.Equal(t, bevel.DrumDiameter, faceted.DrumDiameter)
	assert.Equal(t, bevel.TotalTineWidth, faceted.TotalTineWidth)
}

func TestDrumConfigValidate(t *testing.T) {
	mutations := map[string]func(*DrumConfig){
		"zero rotation":     func(c *DrumConfig) { c.RotationSeconds = 0 },
		"zero diameter":     func(c *DrumConfig) { c.DrumDiameter = 0 },
		"wall too thick":    func(c *DrumConfig) { c.WallThickness = c.DrumDiameter },
		"zero tine width":   func(c *DrumConfig) { c.TotalTineWidth = 0 },
		"taper angle unset": func(c *DrumConfig) { c.BoreStyle = BoreTapered; c.BoreTaperDeg = 0 },
		"no drive teeth":    func(c *DrumConfig) { c.DriveCogTeeth = 0 },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultDrumConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLayoutParamsDerivation(t *testing.T) {
	cfg := DefaultDrumConfig()

	params, err := cfg.LayoutParams(18)
	require.NoError(t, err)
	require.NoError(t, params.Validate())

	laneWidth := cfg.TotalTineWidth / 18.0
	assert.Equal(t, cfg.RotationSeconds, params.RotationSeconds)
	assert.Equal(t, cfg.DrumDiameter/2, params.DrumRadius)
	assert.InDelta(t, laneWidth, params.LaneWidth, 1e-12)
	assert.InDelta(t, laneWidth/2, params.PinWidth, 1e-12)
	assert.Equal(t, cfg.BaseRingHeight+cfg.PinVerticalOffset, params.LaneZOffset)

	_, err = cfg.LayoutParams(0)
	assert.Error(t, err)

	bad := cfg
	bad.DrumDiameter = 0
	_, err = bad.LayoutParams(18)
	assert.Error(t, err)
}

func TestBuildPlanJSONRoundTrip(t *testing.T) {
	plan, err := NewBuildPlan(PresetFacetedDrive(), []layout.Pin{
		{AngleDeg: 7.2, Lane: 9, ZCenter: 11.3, Pitch: "E5", Time: 0.4},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, plan.WriteJSON(&buf))

	var decoded BuildPlan
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *plan, decoded)
	assert.Equal(t, CogFaceted, decoded.Config.DriveCogStyle)
}

func TestNewBuildPlanEmptyPins(t *testing.T) {
	plan, err := NewBuildPlan(DefaultDrumConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, plan.Pins)
	assert.Empty(t, plan.Pins)

	// nil pins must serialize as [], not null.
	var buf bytes.Buffer
	require.NoError(t, plan.WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"pins": []`)
}

func TestNewBuildPlanRejectsBadConfig(t *testing.T) {
	cfg := DefaultDrumConfig()
	cfg.RotationSeconds = -1
	_, err := NewBuildPlan(cfg, nil)
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	plan, err := NewBuildPlan(DefaultDrumConfig(), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, plan.ExportJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded BuildPlan
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, plan.Config, decoded.Config)
}
