package actuation

import "math"

// LongitudinalInput bundles what the longitudinal accel bound computation
// needs each tick.
type LongitudinalInput struct {
	VEgo         float64
	SetSpeedMs   float64
	ForceDecel   bool
	MaxAccel     float64
	MinAccel     float64
}

// LongitudinalOutput carries the bounded accel request and the long-control
// state tag published on CarControl.
type LongitudinalOutput struct {
	Accel            float64
	LongControlState string
}

const (
	LongOff        = "off"
	LongPID        = "pid"
	LongStopping   = "stopping"
	LongStarting   = "starting"
)

// ComputeLongitudinal clamps a speed-error-driven accel request to the
// vehicle's configured accel bounds, and forces full braking when
// ForceDecel is set (the supervisor sets it while soft-disabling).
func ComputeLongitudinal(active bool, in LongitudinalInput) LongitudinalOutput {
	if !active {
		return LongitudinalOutput{Accel: 0, LongControlState: LongOff}
	}
	if in.ForceDecel {
		return LongitudinalOutput{Accel: in.MinAccel, LongControlState: LongStopping}
	}

	errMs := in.SetSpeedMs - in.VEgo
	accel := clip(errMs*0.4, in.MinAccel, in.MaxAccel)

	state := LongPID
	if math.Abs(in.VEgo) < 0.3 && accel > 0 {
		state = LongStarting
	} else if accel < -1.5 {
		state = LongStopping
	}
	return LongitudinalOutput{Accel: accel, LongControlState: state}
}
