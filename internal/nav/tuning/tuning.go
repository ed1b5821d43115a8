// Package tuning loads the navigation knobs from YAML. Zero values fall
// back to the built-in defaults, so a partial file is fine.
package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pathcraft.ai/internal/nav"
)

type Tuning struct {
	PollIntervalMs int     `yaml:"poll_interval_ms"`
	StuckSamples   int     `yaml:"stuck_samples"`
	MinMoveBlocks  float64 `yaml:"min_move_blocks"`

	MoveDeadlineS    int     `yaml:"move_deadline_s"`
	SegmentDeadlineS int     `yaml:"segment_deadline_s"`
	EscapeDeadlineS  int     `yaml:"escape_deadline_s"`
	DirectRange      float64 `yaml:"direct_range"`

	ExploreRadius int `yaml:"explore_radius"`
	ExploreNodes  int `yaml:"explore_nodes"`
	MaxDrop       int `yaml:"max_drop"`

	VerticalMaxSteps   int `yaml:"vertical_max_steps"`
	VerticalNoProgress int `yaml:"vertical_no_progress"`
	SurfaceScan        int `yaml:"surface_scan"`
	SkylightMin        int `yaml:"skylight_min"`

	AquaticAttempts int `yaml:"aquatic_attempts"`
	AquaticBudgetS  int `yaml:"aquatic_budget_s"`
	ShoreRadius     int `yaml:"shore_radius"`

	BlockPlaceDelayMs int `yaml:"block_place_delay_ms"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Params overlays the tuning file onto the built-in defaults.
func (t Tuning) Params() nav.Params {
	p := nav.DefaultParams()
	if t.PollIntervalMs > 0 {
		p.PollInterval = time.Duration(t.PollIntervalMs) * time.Millisecond
	}
	if t.StuckSamples > 0 {
		p.StuckSamples = t.StuckSamples
	}
	if t.MinMoveBlocks > 0 {
		p.MinMove = t.MinMoveBlocks
	}
	if t.MoveDeadlineS > 0 {
		p.MoveDeadline = time.Duration(t.MoveDeadlineS) * time.Second
	}
	if t.SegmentDeadlineS > 0 {
		p.SegmentDeadline = time.Duration(t.SegmentDeadlineS) * time.Second
	}
	if t.EscapeDeadlineS > 0 {
		p.EscapeDeadline = time.Duration(t.EscapeDeadlineS) * time.Second
	}
	if t.DirectRange > 0 {
		p.DirectRange = t.DirectRange
	}
	if t.ExploreRadius > 0 {
		p.ExploreRadius = t.ExploreRadius
	}
	if t.ExploreNodes > 0 {
		p.ExploreNodes = t.ExploreNodes
	}
	if t.MaxDrop > 0 {
		p.MaxDrop = t.MaxDrop
	}
	if t.VerticalMaxSteps > 0 {
		p.VerticalMaxSteps = t.VerticalMaxSteps
	}
	if t.VerticalNoProgress > 0 {
		p.VerticalNoProgress = t.VerticalNoProgress
	}
	if t.SurfaceScan > 0 {
		p.SurfaceScan = t.SurfaceScan
	}
	if t.SkylightMin > 0 {
		p.SkylightMin = t.SkylightMin
	}
	if t.AquaticAttempts > 0 {
		p.AquaticAttempts = t.AquaticAttempts
	}
	if t.AquaticBudgetS > 0 {
		p.AquaticBudget = time.Duration(t.AquaticBudgetS) * time.Second
	}
	if t.ShoreRadius > 0 {
		p.ShoreRadius = t.ShoreRadius
	}
	if t.BlockPlaceDelayMs > 0 {
		p.PlaceDelay = time.Duration(t.BlockPlaceDelayMs) * time.Millisecond
	}
	return p
}
