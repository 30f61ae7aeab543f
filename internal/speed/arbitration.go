package speed

import (
	"math"

	"github.com/openctrl/controlsd/internal/config"
)

// RoadLimitInput is the road-speed-limit provider's advisory for this tick.
type RoadLimitInput struct {
	Valid       bool
	ApplyKph    float64
}

// LeadInput is the radar lead's kinematics for this tick, if any.
type LeadInput struct {
	Valid bool
	DRel  float64
	VRel  float64
}

// ArbitrationResult reports the composed values a publisher/HUD needs in
// addition to the persisted State fields.
type ArbitrationResult struct {
	Target float64 // pre-smoothing composed target, m/s
}

// Arbitrate runs the full per-tick composition from spec.md §4.5: curve
// clamp, then road-limit clamp, then lead clamp, then smoothing into
// self.max_speed_clu. Only runs when CS.adaptiveCruise holds, matching
// "Runs only when CS.adaptiveCruise" in spec.md §4.5 — callers should skip
// calling Arbitrate at all otherwise and leave MaxSpeedCLU untouched aside
// from the disengage-snap handled inside Smooth.
func (s *State) Arbitrate(vEgoMs float64, adaptiveCruise bool, road RoadLimitInput, lead LeadInput, cfg config.Curve, roadCfg config.RoadLimit, leadCfg config.Lead, cruiseCfg config.Cruise) ArbitrationResult {
	vCruiseMs := s.VCruiseKph / 3.6

	target := vCruiseMs
	if cfg.Enabled {
		target = math.Min(vCruiseMs, s.CurveSpeedMs)
	}

	wasSlowingDown := s.SlowingDownAlert
	if road.Valid && road.ApplyKph >= roadCfg.MinApplyKph {
		limitMs := road.ApplyKph / 3.6
		if limitMs < target {
			target = limitMs
		}
		s.SlowingDownAlert = true
		s.SlowingDownSound = !wasSlowingDown
	} else {
		s.SlowingDownAlert = false
		s.SlowingDownSound = false
	}

	wasLeadLimited := s.LimitedLead
	if lead.Valid {
		leadSpeed := LeadSafeSpeed(lead.DRel, lead.VRel, vEgoMs, leadCfg, cruiseCfg.MinSetSpeedClu)
		if leadSpeed >= cruiseCfg.MinSetSpeedClu && leadSpeed < target {
			target = leadSpeed
			s.LimitedLead = true
			if !wasLeadLimited {
				// Rising edge: seed the displayed set-speed to avoid a
				// visual jump, per spec.md §4.5.
				s.MaxSpeedCLU = vEgoMs + 3
			}
		} else {
			s.LimitedLead = false
		}
	} else {
		s.LimitedLead = false
	}

	s.Smooth(target, adaptiveCruise, cruiseCfg)
	return ArbitrationResult{Target: target}
}
