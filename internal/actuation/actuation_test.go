package actuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openctrl/controlsd/internal/carstate"
)

func TestFiniteGuardReplacesNaNWithZero(t *testing.T) {
	require.Equal(t, 0.0, guardFinite(math.NaN(), "x"))
	require.Equal(t, 0.0, guardFinite(math.Inf(1), "x"))
	require.Equal(t, 1.5, guardFinite(1.5, "x"))
}

// Scenario 6: an INDI controller fed a NaN curvature must never surface a
// NaN actuator value.
func TestOrchestratorGuardsNaNSteerOutput(t *testing.T) {
	o := NewOrchestrator(NewLateralController(ControlINDI), DefaultSaturationConfig())
	in := ActuateInput{
		Active: true,
		CS:     carstate.CarState{SteeringAngleDeg: 0},
		Lateral: LateralParams{
			VEgo:             20,
			SteerRatio:       15,
			StiffnessFactor:  1,
			CurvatureDes:     math.NaN(),
			CurvatureRateDes: 0,
		},
		Long: LongitudinalInput{VEgo: 20, SetSpeedMs: 22, MaxAccel: 2, MinAccel: -3},
	}
	act, _ := o.Actuate(in)
	require.False(t, math.IsNaN(act.Steer))
	require.False(t, math.IsNaN(act.SteeringAngleDeg))
	require.False(t, math.IsNaN(act.Accel))
}

func TestSaturationDetectorTripsAfterSustainedError(t *testing.T) {
	o := NewOrchestrator(NewLateralController(ControlAngle), SaturationConfig{AngleErrorThresholdDeg: 2.5, CountThreshold: 5})
	in := ActuateInput{
		Active: true,
		CS:     carstate.CarState{SteeringAngleDeg: 0},
		Lateral: LateralParams{
			VEgo:            20,
			SteerRatio:      15,
			StiffnessFactor: 1,
			CurvatureDes:    0.01,
		},
		Long: LongitudinalInput{VEgo: 20, SetSpeedMs: 20, MaxAccel: 2, MinAccel: -3},
	}
	var saturated bool
	for i := 0; i < 10; i++ {
		_, saturated = o.Actuate(in)
	}
	require.True(t, saturated)
}

func TestSaturationDetectorResetsWhenDriverSteers(t *testing.T) {
	o := NewOrchestrator(NewLateralController(ControlAngle), SaturationConfig{AngleErrorThresholdDeg: 2.5, CountThreshold: 5})
	in := ActuateInput{
		Active: true,
		CS:     carstate.CarState{SteeringAngleDeg: 0},
		Lateral: LateralParams{
			VEgo:            20,
			SteerRatio:      15,
			StiffnessFactor: 1,
			CurvatureDes:    0.01,
		},
		Long:           LongitudinalInput{VEgo: 20, SetSpeedMs: 20, MaxAccel: 2, MinAccel: -3},
		DriverSteering: true,
	}
	var saturated bool
	for i := 0; i < 10; i++ {
		_, saturated = o.Actuate(in)
	}
	require.False(t, saturated)
}

func TestLongitudinalForceDecelCommandsMinAccel(t *testing.T) {
	out := ComputeLongitudinal(true, LongitudinalInput{VEgo: 20, SetSpeedMs: 25, ForceDecel: true, MinAccel: -4, MaxAccel: 2})
	require.Equal(t, -4.0, out.Accel)
	require.Equal(t, LongStopping, out.LongControlState)
}

func TestLongitudinalInactiveIsOff(t *testing.T) {
	out := ComputeLongitudinal(false, LongitudinalInput{VEgo: 20, SetSpeedMs: 25, MinAccel: -4, MaxAccel: 2})
	require.Equal(t, 0.0, out.Accel)
	require.Equal(t, LongOff, out.LongControlState)
}

func TestJoystickPassthroughOverridesLateralController(t *testing.T) {
	o := NewOrchestrator(NewLateralController(ControlPID), DefaultSaturationConfig())
	in := ActuateInput{
		Active:  true,
		CS:      carstate.CarState{},
		Lateral: LateralParams{VEgo: 10},
		Long:    LongitudinalInput{VEgo: 10, SetSpeedMs: 10, MinAccel: -3, MaxAccel: 2},
		Joystick: JoystickInput{
			Active:    true,
			SteerAxis: 0.5,
			GasAxis:   0.8,
			BrakeAxis: 0,
		},
	}
	act, _ := o.Actuate(in)
	require.InDelta(t, 0.5, act.Steer, 1e-9)
	require.InDelta(t, 0.8, act.Accel, 1e-9)
}
