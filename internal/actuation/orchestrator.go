package actuation

import (
	"math"

	"github.com/openctrl/controlsd/internal/carstate"
	"github.com/openctrl/controlsd/internal/observ"
)

// SaturationConfig configures the saturation detector's thresholds, per
// spec.md §4.6.
type SaturationConfig struct {
	AngleErrorThresholdDeg float64 // 2.5
	CountThreshold         int     // 100 consecutive ticks
}

func DefaultSaturationConfig() SaturationConfig {
	return SaturationConfig{AngleErrorThresholdDeg: 2.5, CountThreshold: 100}
}

// Orchestrator wires a lateral controller, the longitudinal bound
// computation, the joystick debug passthrough, and the saturation/
// finiteness guards into one per-tick Actuate call, grounded on the
// teacher's RiskGate-evaluation loop (internal/risk/manager.go) that walks
// a small set of gates and folds their verdicts into one decision.
type Orchestrator struct {
	lateral LateralController
	satCfg  SaturationConfig

	satCount int
}

// NewOrchestrator builds an Orchestrator around the given lateral
// controller variant.
func NewOrchestrator(lateral LateralController, satCfg SaturationConfig) *Orchestrator {
	return &Orchestrator{lateral: lateral, satCfg: satCfg}
}

// JoystickInput carries debug joystick passthrough axes, when active.
type JoystickInput struct {
	Active     bool
	SteerAxis  float64 // [-1, 1]
	GasAxis    float64 // [-1, 1]
	BrakeAxis  float64 // [0, 1]
}

// ActuateInput bundles everything Actuate needs for one tick.
type ActuateInput struct {
	Active       bool
	CS           carstate.CarState
	Lateral      LateralParams
	Long         LongitudinalInput
	Joystick     JoystickInput
	DriverSteering bool
}

// Actuate runs the full per-tick actuation orchestration and returns the
// bounded, finiteness-guarded actuator command along with whether steering
// is currently saturated.
func (o *Orchestrator) Actuate(in ActuateInput) (carstate.Actuators, bool) {
	var steer, angleDeg float64
	var debug LateralDebug

	if in.Joystick.Active {
		steer = clip(in.Joystick.SteerAxis, -1, 1)
		angleDeg = steer * 45
	} else {
		steer, angleDeg, debug = o.lateral.Update(in.Active, in.Lateral)
	}

	longOut := ComputeLongitudinal(in.Active, in.Long)
	if in.Joystick.Active {
		accel := in.Joystick.GasAxis - in.Joystick.BrakeAxis
		longOut = LongitudinalOutput{Accel: clip(accel, in.Long.MinAccel, in.Long.MaxAccel), LongControlState: LongPID}
	}

	saturated := o.updateSaturation(in.Active, in.DriverSteering, in.CS.SteeringAngleDeg, angleDeg, debug)

	steer = guardFinite(steer, "actuators.steer")
	angleDeg = guardFinite(angleDeg, "actuators.steeringAngleDeg")
	accel := guardFinite(longOut.Accel, "actuators.accel")

	return carstate.Actuators{
		Accel:            accel,
		Steer:            steer,
		SteeringAngleDeg: angleDeg,
		LongControlState: carstate.LongControlState(longOut.LongControlState),
	}, saturated
}

// updateSaturation implements the saturation detector from spec.md §4.6:
// accumulates consecutive ticks where the commanded angle diverges from the
// measured angle by more than the threshold, unless the driver is actively
// pressing the wheel (which is expected to produce divergence).
func (o *Orchestrator) updateSaturation(active, driverSteering bool, measuredAngleDeg, commandedAngleDeg float64, debug LateralDebug) bool {
	if !active || driverSteering {
		o.satCount = 0
		return false
	}
	diff := math.Abs(commandedAngleDeg - measuredAngleDeg)
	if diff > o.satCfg.AngleErrorThresholdDeg || debug.Saturated {
		o.satCount++
	} else {
		o.satCount = 0
	}
	return o.satCount > o.satCfg.CountThreshold
}

// guardFinite replaces a NaN or infinite actuator value with 0 and logs the
// fault, per spec.md §4.6 invariant #4 — this condition is never surfaced
// as a Go error, since it must not interrupt the hot path.
func guardFinite(v float64, field string) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		observ.Log("non_finite_actuator", map[string]any{"field": field})
		return 0
	}
	return v
}
