// Package speed implements cruise-speed arbitration: operator set-speed
// updates from buttons, curvature-derived speed limiting, lead-vehicle
// safe speed, and the per-tick composition into a smoothed display/limit
// set-speed (spec.md §4.5).
//
// The button-hold-timer and per-tick numeric-smoothing shapes are grounded
// on internal/risk/cooldown.go's per-symbol timer map and
// internal/risk/drawdown.go's single-value size-multiplier smoothing,
// respectively.
package speed

import (
	"math"

	"github.com/openctrl/controlsd/internal/config"
)

// ButtonTimers tracks how long each cruise button has been held, driving
// accelerated set-speed increments on a fixed cadence the way a held
// button repeats (spec.md §4.5).
type ButtonTimers struct {
	held map[string]int // button name -> ticks held
}

// NewButtonTimers returns an empty timer set.
func NewButtonTimers() *ButtonTimers {
	return &ButtonTimers{held: map[string]int{}}
}

const (
	buttonFastCadenceTicks = 10 // ticks between accelerated increments once held past buttonFastAfterTicks
	buttonFastAfterTicks   = 50 // ticks held before the accelerated cadence kicks in
)

// Update advances hold timers given this tick's pressed set, returning the
// buttons that should fire an increment this tick (on press, and then on
// the fast cadence once held long enough).
func (b *ButtonTimers) Update(pressed map[string]bool) []string {
	var fire []string
	for name, isPressed := range pressed {
		if !isPressed {
			delete(b.held, name)
			continue
		}
		ticks, was := b.held[name]
		b.held[name] = ticks + 1
		switch {
		case !was:
			fire = append(fire, name)
		case ticks+1 > buttonFastAfterTicks && (ticks+1-buttonFastAfterTicks)%buttonFastCadenceTicks == 0:
			fire = append(fire, name)
		}
	}
	// clear timers for buttons no longer reported at all
	for name := range b.held {
		if _, ok := pressed[name]; !ok {
			delete(b.held, name)
		}
	}
	return fire
}

// State is the cruise arbitration state that lives across ticks (spec.md
// §3 SpeedState).
type State struct {
	VCruiseKph     float64
	VCruiseKphLast float64
	MaxSpeedCLU    float64
	CurveSpeedMs   float64
	LimitedLead    bool
	SlowingDownAlert bool
	SlowingDownSound bool

	buttons *ButtonTimers
}

// New returns a fresh speed state seeded at the minimum cruise speed.
func New(cfg config.Cruise) *State {
	return &State{
		VCruiseKph:   cfg.Min,
		MaxSpeedCLU:  255,
		CurveSpeedMs: 255,
		buttons:      NewButtonTimers(),
	}
}

// InitializeVCruise seeds v_cruise_kph on an ENABLE transition out of
// disabled, from (vEgo, buttonEvents, v_cruise_kph_last), per spec.md
// §4.4. If the operator pressed accel/decel as part of the engaging
// button press, that nudges the seed by one delta; otherwise it falls back
// to the last value, floored at the current road speed.
func InitializeVCruise(vEgoMs float64, buttonEvents []string, vCruiseKphLast float64, cfg config.Cruise) float64 {
	vEgoKph := vEgoMs * 3.6
	seed := vCruiseKphLast
	if seed <= 0 {
		seed = vEgoKph
	}
	for _, b := range buttonEvents {
		switch b {
		case "accelCruise":
			seed += delta(cfg)
		case "decelCruise":
			seed -= delta(cfg)
		}
	}
	if seed < vEgoKph {
		seed = vEgoKph
	}
	return clamp(seed, cfg.Min, cfg.Max)
}

func delta(cfg config.Cruise) float64 {
	if cfg.IsMetric {
		return cfg.DeltaKm
	}
	return cfg.DeltaMi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// UpdateFromButtons applies held accelCruise/decelCruise button presses to
// v_cruise_kph, enforcing invariant #6 ([V_CRUISE_MIN, V_CRUISE_MAX]).
// Runs only when CS.AdaptiveCruise holds (spec.md §4.5).
func (s *State) UpdateFromButtons(pressed map[string]bool, cfg config.Cruise) {
	for _, b := range s.buttons.Update(pressed) {
		switch b {
		case "accelCruise":
			s.VCruiseKph += delta(cfg)
		case "decelCruise":
			s.VCruiseKph -= delta(cfg)
		}
	}
	s.VCruiseKph = clamp(s.VCruiseKph, cfg.Min, cfg.Max)
}

// UpdateFromRegen nudges v_cruise_kph toward the current road speed while
// the regen paddle/pedal is held, per spec.md §4.5.
func (s *State) UpdateFromRegen(vEgoMs float64, cfg config.Cruise) {
	vEgoKph := vEgoMs * 3.6
	s.VCruiseKph = clamp(vEgoKph, cfg.Min, cfg.Max)
}

// ForceFromPCM overrides v_cruise_kph to the configured PCM-forced value
// when stock PCM cruise is enabled and no operator button/regen input took
// precedence this tick (spec.md §4.5: "Else if stock PCM cruise is
// enabled, force v_cruise_kph = 30").
func (s *State) ForceFromPCM(cfg config.Cruise) {
	s.VCruiseKph = clamp(cfg.PCMForcedKph, cfg.Min, cfg.Max)
}

// EndTick snapshots v_cruise_kph into v_cruise_kph_last for next tick's
// InitializeVCruise seed, and clamps once more for safety.
func (s *State) EndTick(cfg config.Cruise) {
	s.VCruiseKph = clamp(s.VCruiseKph, cfg.Min, cfg.Max)
	s.VCruiseKphLast = s.VCruiseKph
}

// Smooth applies the single-pole low-pass from spec.md §3: "max_speed_clu
// evolves by first-order low-pass when adaptiveCruise: x ← x + 0.01·(target
// − x); snaps to target when cruise is disengaged or x ≤ 0." The
// coefficient is config.Cruise.SmoothingPerTick: 0.01 by default, and a
// loaded YAML file can override it (smoothing_per_tick).
func (s *State) Smooth(target float64, adaptiveCruise bool, cfg config.Cruise) {
	if !adaptiveCruise || s.MaxSpeedCLU <= 0 || math.IsNaN(s.MaxSpeedCLU) {
		s.MaxSpeedCLU = target
		return
	}
	s.MaxSpeedCLU += cfg.SmoothingPerTick * (target - s.MaxSpeedCLU)
}
