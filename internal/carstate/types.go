// Package carstate defines the per-tick input/output value types the
// supervisor passes between phases: CarState (sampled input) and
// CarControl (computed output), plus the small value types they're built
// from.
package carstate

import "time"

// ButtonEvent mirrors a single cruise-control button press reported on the
// vehicle bus this tick.
type ButtonEvent struct {
	Type      string // "accelCruise", "decelCruise", "cancel", "altButton1", ...
	Pressed   bool
}

// RawEvent is a structural passthrough event the vehicle interface attached
// directly to CarState (e.g. a DBC-decoded fault bit), before the
// supervisor's own event collector classifies it.
type RawEvent struct {
	Name string
}

// CarState is the immutable per-tick input snapshot produced by Sample. A
// fresh instance is built every tick; nothing mutates it afterward.
type CarState struct {
	Frame int64

	VEgo         float64 // m/s
	AEgo         float64 // m/s^2, longitudinal accel
	ALateral     float64 // m/s^2, lateral accel
	SteeringAngleDeg float64

	ButtonEvents []ButtonEvent

	LeftBlinker  bool
	RightBlinker bool
	LeftBlindspot  bool
	RightBlindspot bool

	CruiseEnabled bool // PCM cruise enabled
	CruiseSpeed   float64 // PCM cruise set-speed, m/s

	BrakePressed   bool
	SteeringPressed bool

	CANValid bool
	Events   []RawEvent

	RegenPressed   bool
	AdaptiveCruise bool
}

// LongControlState mirrors the longitudinal controller's own state machine
// (off / pid / stopping / starting), reported back for HUD/telemetry only;
// the supervisor does not interpret it.
type LongControlState string

// Actuators is the per-tick actuator command computed in the Actuation
// phase. Every numeric field here must be finite by the time Publish runs;
// see guardFinite in internal/actuation.
type Actuators struct {
	Accel            float64
	Steer            float64 // [-1, 1] normalized
	SteeringAngleDeg float64
	LongControlState LongControlState
}

// HudControl is the dashboard-facing half of CarControl.
type HudControl struct {
	SetSpeed       float64 // m/s
	SpeedVisible   bool
	LanesVisible   bool
	LeadVisible    bool
	VisualAlert    string
	LeftLaneDepart  bool
	RightLaneDepart bool
}

// CruiseControl is the vehicle-bus-facing half of CarControl that concerns
// PCM cruise cancellation.
type CruiseControl struct {
	Cancel bool
}

// CarControl is the per-tick output. A new instance is built every tick;
// publish.Publisher keeps the last one (LastControl). It is not passed to
// the bus adapter: busio.BusAdapter has no method that accepts it.
type CarControl struct {
	Frame int64

	Enabled bool
	Active  bool

	Actuators     Actuators
	CruiseControl CruiseControl
	HudControl    HudControl

	ForceDecel bool
}

// Snapshot is a generic alive/fresh wrapper around a subscription's last
// received value. Nothing in this repository constructs one; the Sample
// phase reads busio.Frame fields directly.
type Snapshot[T any] struct {
	Value     T
	Timestamp time.Time
	Valid     bool
}
