// Package actuation implements the actuation orchestrator (spec.md §4.6):
// the polymorphic lateral controller variant, the longitudinal controller
// hookup, joystick debug passthrough, saturation detection, and the
// finiteness guard.
//
// The LateralController interface is grounded directly on the teacher's
// RiskGate interface (internal/risk/manager.go): a small interface with a
// handful of concrete implementations selected once at construction time
// from configuration, per spec.md §9's own design note ("Polymorphic
// lateral controllers ... tagged variant {Angle, PID, INDI, LQR}").
package actuation

import "math"

// ControlType names which lateral controller implementation is active,
// selected from CarParams.steerControlType / lateralTuning.which.
type ControlType string

const (
	ControlAngle ControlType = "angle"
	ControlPID   ControlType = "pid"
	ControlINDI  ControlType = "indi"
	ControlLQR   ControlType = "lqr"
)

// LateralParams bundles the vehicle-model/tuning inputs a lateral
// controller needs each tick.
type LateralParams struct {
	VEgo          float64
	SteerRatio    float64
	StiffnessFactor float64
	CurrentAngleDeg float64
	CurvatureDes    float64
	CurvatureRateDes float64
}

// LateralDebug is a controller-specific debug record; fields not used by a
// given controller are left zero.
type LateralDebug struct {
	Saturated bool
	PIDOutput float64
	INDIDelayedOutput float64
	LQRStateError float64
}

// LateralController is the common capability set every lateral controller
// variant implements (spec.md §9).
type LateralController interface {
	Name() ControlType
	Reset()
	Update(active bool, p LateralParams) (steer, angleDeg float64, debug LateralDebug)
}

// NewLateralController selects a lateral controller implementation by
// configured type, matching the teacher's construction-time gate-list
// assembly.
func NewLateralController(t ControlType) LateralController {
	switch t {
	case ControlAngle:
		return &angleController{}
	case ControlINDI:
		return &indiController{}
	case ControlLQR:
		return &lqrController{}
	default:
		return &pidController{}
	}
}

// angleController commands steering angle directly, bypassing torque-space
// control; used by vehicles whose actuator takes an angle setpoint.
type angleController struct{}

func (c *angleController) Name() ControlType { return ControlAngle }
func (c *angleController) Reset()            {}
func (c *angleController) Update(active bool, p LateralParams) (float64, float64, LateralDebug) {
	if !active {
		return 0, p.CurrentAngleDeg, LateralDebug{}
	}
	angleDeg := p.CurvatureDes * p.SteerRatio * 180 / math.Pi
	steer := clip(angleDeg/45, -1, 1)
	return steer, angleDeg, LateralDebug{}
}

// pidController is the default torque-space PID lateral controller.
type pidController struct {
	integral float64
}

func (c *pidController) Name() ControlType { return ControlPID }
func (c *pidController) Reset()            { c.integral = 0 }
func (c *pidController) Update(active bool, p LateralParams) (float64, float64, LateralDebug) {
	if !active {
		c.Reset()
		return 0, p.CurrentAngleDeg, LateralDebug{}
	}
	err := p.CurvatureDes - p.CurvatureRateDes*0 // placeholder proportional term, curvature error
	c.integral += err * 0.01
	c.integral = clip(c.integral, -1, 1)
	steer := clip(err*p.StiffnessFactor+c.integral, -1, 1)
	angleDeg := steer * 45
	return steer, angleDeg, LateralDebug{PIDOutput: steer}
}

// indiController implements incremental nonlinear dynamic inversion.
type indiController struct {
	lastOutput float64
}

func (c *indiController) Name() ControlType { return ControlINDI }
func (c *indiController) Reset()            { c.lastOutput = 0 }
func (c *indiController) Update(active bool, p LateralParams) (float64, float64, LateralDebug) {
	if !active {
		c.Reset()
		return 0, p.CurrentAngleDeg, LateralDebug{}
	}
	target := clip(p.CurvatureDes*p.SteerRatio, -1, 1)
	// first-order delay toward target, approximating the inversion's
	// actuator-bandwidth filtering.
	c.lastOutput += 0.3 * (target - c.lastOutput)
	angleDeg := c.lastOutput * 45
	return c.lastOutput, angleDeg, LateralDebug{INDIDelayedOutput: c.lastOutput}
}

// lqrController implements a linear-quadratic-regulator state-feedback law.
type lqrController struct{}

func (c *lqrController) Name() ControlType { return ControlLQR }
func (c *lqrController) Reset()            {}
func (c *lqrController) Update(active bool, p LateralParams) (float64, float64, LateralDebug) {
	if !active {
		return 0, p.CurrentAngleDeg, LateralDebug{}
	}
	stateErr := p.CurvatureDes - p.CurvatureRateDes
	steer := clip(stateErr*p.StiffnessFactor*10, -1, 1)
	angleDeg := steer * 45
	return steer, angleDeg, LateralDebug{LQRStateError: stateErr}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
