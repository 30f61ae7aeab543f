// Package publish implements the per-tick publication phase (spec.md §4.7):
// HUD field computation, lane-departure-warning flags, cadence-gated
// message packaging, and persisted-param storage.
package publish

import (
	"math"

	"github.com/openctrl/controlsd/internal/carstate"
	"github.com/openctrl/controlsd/internal/config"
)

// HUDInput bundles what HUD field computation needs each tick.
type HUDInput struct {
	CS               carstate.CarState
	Active           bool
	VCruiseKph       float64
	LeadVisible      bool
	SaturatedSteer   bool
	LaneDepartureLeft  bool
	LaneDepartureRight bool
	LdwEnabled         bool
}

// ComputeHUD derives the HudControl fields published on CarControl, per
// spec.md §4.7: set-speed display, visibility flags, the active visual
// alert, and lane-departure flags (only asserted when LDW is enabled and
// the blinker on that side is off).
func ComputeHUD(in HUDInput) carstate.HudControl {
	hud := carstate.HudControl{
		SetSpeed:     in.VCruiseKph * kphToMs,
		SpeedVisible: in.Active,
		LanesVisible: in.Active,
		LeadVisible:  in.LeadVisible && in.Active,
	}

	if in.LdwEnabled {
		hud.LeftLaneDepart = in.LaneDepartureLeft && !in.CS.LeftBlinker
		hud.RightLaneDepart = in.LaneDepartureRight && !in.CS.RightBlinker
	}

	switch {
	case in.SaturatedSteer:
		hud.VisualAlert = "steerSaturated"
	case hud.LeftLaneDepart || hud.RightLaneDepart:
		hud.VisualAlert = "ldw"
	default:
		hud.VisualAlert = "none"
	}

	return hud
}

const kphToMs = 1.0 / 3.6

// ApplyRoadLimit caps the display set-speed at a posted speed limit when the
// limit is valid and at least roadCfg.MinApplyKph; a lower or invalid limit
// leaves the set-speed unchanged.
func ApplyRoadLimit(setSpeedKph float64, roadCfg config.RoadLimit, applyKph float64, valid bool) float64 {
	if !valid || applyKph < roadCfg.MinApplyKph {
		return setSpeedKph
	}
	return math.Min(setSpeedKph, applyKph)
}
