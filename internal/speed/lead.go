package speed

import "github.com/openctrl/controlsd/internal/config"

// LeadSafeSpeed implements spec.md §4.5's lead-vehicle safe-speed formula:
// given a radar lead with (dRel, vRel), returns a display/limit set-speed
// clamp in CLU, or 0 if no clamp applies.
//
// The `* 0.001` attenuation in the accel term is kept as-is per spec.md
// §9's resolution of that Open Question (treated as intentional
// display-speed throttling, not a physical-unit bug).
func LeadSafeSpeed(dRel, vRel, vEgoMs float64, cfg config.Lead, minSetSpeedClu float64) float64 {
	if vRel >= -1 {
		return 0
	}
	d := dRel - 5
	threshold := -vRel * 24
	if !(d > 0 && d < threshold) {
		return 0
	}
	t := d / vRel
	accel := -(vRel / t) * cfg.SpeedConvToClu * 0.001
	if accel >= 0 {
		return 0
	}
	candidate := vEgoMs + accel
	if candidate < minSetSpeedClu {
		return minSetSpeedClu
	}
	return candidate
}
