// Package fsm implements the engagement finite-state machine (spec.md
// §3, §4.4): disabled / preEnabled / enabled / softDisabling, advanced
// once per tick from the event set the event collector produced this
// tick.
//
// Grounded on the teacher's graduated circuit-breaker state machine
// (internal/risk/circuitbreaker.go): a small enum of severity states, a
// single authoritative setState mutator, and a tick-counted cooldown
// window (there: coolingOffUntil wall-clock deadline; here:
// soft_disable_timer tick countdown, since spec.md's invariant #3 is
// exact-tick, not wall-clock).
package fsm

import (
	"github.com/openctrl/controlsd/internal/events"
)

// State is one of the four engagement states named in spec.md §3.
type State string

const (
	Disabled      State = "disabled"
	PreEnabled    State = "preEnabled"
	Enabled       State = "enabled"
	SoftDisabling State = "softDisabling"
)

// SoftDisableTicks is SOFT_DISABLE_TIME / DT_CTRL from spec.md §3: 3s at
// 100Hz.
const SoftDisableTicks = 300

// Machine holds the engagement state across ticks. Everything else
// spec.md §3 calls "Counters across ticks" / "SpeedState" is owned by the
// caller (internal/speed), not by the machine, so fsm stays free of a
// dependency on speed arbitration.
type Machine struct {
	state            State
	softDisableTimer int
}

// New returns a machine in the initial disabled state (spec.md §3: "Initial
// disabled. No terminal state.").
func New() *Machine {
	return &Machine{state: Disabled}
}

// State returns the current engagement state.
func (m *Machine) State() State { return m.state }

// Enabled implements the invariant "enabled ⇔ state ∈ {preEnabled, enabled,
// softDisabling}" (spec.md §3, invariant #1).
func (m *Machine) Enabled() bool {
	return m.state == PreEnabled || m.state == Enabled || m.state == SoftDisabling
}

// Active implements the invariant "active ⇔ state ∈ {enabled,
// softDisabling}" (spec.md §3, invariant #1).
func (m *Machine) Active() bool {
	return m.state == Enabled || m.state == SoftDisabling
}

// SoftDisableTimer exposes the tick countdown for telemetry/tests.
func (m *Machine) SoftDisableTimer() int { return m.softDisableTimer }

// TransitionResult records the alert types that should be attached this
// tick as a side effect of the transition evaluation (spec.md §4.4:
// "attach ENABLE alert", "attach WARNING", etc), and whether a fresh
// ENABLE transition out of disabled happened — the caller uses that flag
// to seed v_cruise_kph per spec.md §4.4.
type TransitionResult struct {
	Attached    []events.AlertType
	Entered     bool // true if state changed this tick
	From        State
	To          State
	DidEnable   bool // disabled -> {preEnabled, enabled} happened this tick
}

// Step advances the machine by exactly one tick given the event set
// collected this tick, per the evaluation order in spec.md §4.4.
func (m *Machine) Step(active *events.Set) TransitionResult {
	from := m.state
	res := TransitionResult{From: from}

	if m.state != Disabled {
		switch {
		case active.Any(events.UserDisable):
			m.enter(Disabled)
			res.Attached = append(res.Attached, events.UserDisable)
		case active.Any(events.ImmediateDisable):
			m.enter(Disabled)
			res.Attached = append(res.Attached, events.ImmediateDisable)
		default:
			m.stepNonDisabled(active, &res)
		}
	} else {
		m.stepDisabled(active, &res)
	}

	if m.state == SoftDisabling && m.softDisableTimer > 0 {
		m.softDisableTimer--
	}

	if m.Active() {
		res.Attached = append(res.Attached, events.Warning)
	}

	res.To = m.state
	res.Entered = res.To != from
	return res
}

func (m *Machine) stepNonDisabled(active *events.Set, res *TransitionResult) {
	switch m.state {
	case Enabled:
		if active.Any(events.SoftDisable) {
			m.enter(SoftDisabling)
			m.softDisableTimer = SoftDisableTicks
			res.Attached = append(res.Attached, events.SoftDisable)
		}
	case SoftDisabling:
		if !active.Any(events.SoftDisable) {
			m.enter(Enabled)
		} else if m.softDisableTimer > 0 {
			res.Attached = append(res.Attached, events.SoftDisable)
		} else {
			m.enter(Disabled)
		}
	case PreEnabled:
		if !active.Any(events.PreEnable) {
			m.enter(Enabled)
		} else {
			res.Attached = append(res.Attached, events.PreEnable)
		}
	}
}

func (m *Machine) stepDisabled(active *events.Set, res *TransitionResult) {
	if !active.Any(events.Enable) {
		return
	}
	if active.Any(events.NoEntry) {
		res.Attached = append(res.Attached, events.NoEntry)
		return
	}
	if active.Any(events.PreEnable) {
		m.enter(PreEnabled)
	} else {
		m.enter(Enabled)
	}
	res.Attached = append(res.Attached, events.Enable)
	res.DidEnable = true
}

func (m *Machine) enter(s State) {
	m.state = s
	if s != SoftDisabling {
		m.softDisableTimer = 0
	}
}
