// Package events implements the per-tick event/alert pipeline: the event
// kind catalog, the alert-type taxonomy each kind carries, the EventSet
// collection rebuilt fresh every tick, and the full event-collection phase
// (spec.md §4.3).
package events

// AlertType classifies the engagement-state-machine transition class an
// event can trigger. See spec.md §3 and the error-handling taxonomy in §7.
type AlertType string

const (
	Enable            AlertType = "ENABLE"
	PreEnable         AlertType = "PRE_ENABLE"
	NoEntry           AlertType = "NO_ENTRY"
	Warning           AlertType = "WARNING"
	UserDisable       AlertType = "USER_DISABLE"
	SoftDisable       AlertType = "SOFT_DISABLE"
	ImmediateDisable  AlertType = "IMMEDIATE_DISABLE"
	Permanent         AlertType = "PERMANENT"
)

// Kind is one entry in the event catalog.
type Kind string

const (
	KindStartup                Kind = "startup"
	KindControlsInitializing   Kind = "controlsInitializing"

	// Hardware/resource
	KindLowBattery      Kind = "lowBattery"
	KindOverheat        Kind = "overheat"
	KindOutOfSpace      Kind = "outOfSpace"
	KindLowMemory       Kind = "lowMemory"
	KindFanStuck        Kind = "fanStuck"

	// Calibration
	KindCalibrationIncomplete Kind = "calibrationIncomplete"
	KindCalibrationInvalid    Kind = "calibrationInvalid"

	// Lane change
	KindPreLaneChangeLeft  Kind = "preLaneChangeLeft"
	KindPreLaneChangeRight Kind = "preLaneChangeRight"
	KindLaneChangeBlocked  Kind = "laneChangeBlocked"
	KindLaneChange         Kind = "laneChange"

	// Bus & comms
	KindCANError         Kind = "canError"
	KindRelayMalfunction Kind = "relayMalfunction"
	KindUSBError         Kind = "usbError"
	KindCommIssue        Kind = "commIssue"
	KindControlsMismatch Kind = "controlsMismatch"

	// Planner/perception
	KindRadarFault          Kind = "radarFault"
	KindPlannerError        Kind = "plannerError"
	KindSensorDataInvalid   Kind = "sensorDataInvalid"
	KindPosenetInvalid      Kind = "posenetInvalid"
	KindDeviceFalling       Kind = "deviceFalling"
	KindModeldLagging       Kind = "modeldLagging"
	KindLocalizerMalfunction Kind = "localizerMalfunction"
	KindCameraMalfunction   Kind = "cameraMalfunction"

	KindFCW Kind = "fcw"
	KindLDW Kind = "ldw"

	KindSteerSaturated Kind = "steerSaturated"

	KindCruiseMismatch Kind = "cruiseMismatch"

	KindSlowingDownSpeed      Kind = "slowingDownSpeed"
	KindSlowingDownSpeedSound Kind = "slowingDownSpeedSound"

	KindProcessNotRunning Kind = "processNotRunning"

	// User-initiated
	KindButtonEnable Kind = "buttonEnable"
	KindButtonCancel Kind = "buttonCancel"
	KindBrakeHold    Kind = "brakeHold"
)

// catalog maps every kind to the set of alert types it carries. This is the
// single source of truth §4.3/§4.4/§7 are built on. Modeled on the
// teacher's RiskGate-priority table (internal/risk/manager.go) — a static
// lookup consulted once per item, not a cross-tick object.
var catalog = map[Kind]map[AlertType]bool{
	KindStartup:              set(Permanent),
	KindControlsInitializing: set(NoEntry),

	KindLowBattery: set(SoftDisable, Warning),
	KindOverheat:   set(SoftDisable, Warning),
	KindOutOfSpace: set(Permanent, NoEntry),
	KindLowMemory:  set(Permanent, NoEntry),
	KindFanStuck:   set(Permanent),

	KindCalibrationIncomplete: set(NoEntry, SoftDisable),
	KindCalibrationInvalid:    set(NoEntry, ImmediateDisable),

	KindPreLaneChangeLeft:  set(PreEnable, Warning),
	KindPreLaneChangeRight: set(PreEnable, Warning),
	KindLaneChangeBlocked:  set(Warning),
	KindLaneChange:         set(Warning),

	KindCANError:         set(SoftDisable, NoEntry),
	KindRelayMalfunction: set(ImmediateDisable, NoEntry),
	KindUSBError:         set(NoEntry, Permanent),
	KindCommIssue:        set(SoftDisable, NoEntry),
	KindControlsMismatch: set(ImmediateDisable, NoEntry),

	KindRadarFault:           set(SoftDisable, NoEntry),
	KindPlannerError:         set(ImmediateDisable, NoEntry),
	KindSensorDataInvalid:    set(SoftDisable, NoEntry),
	KindPosenetInvalid:       set(SoftDisable),
	KindDeviceFalling:        set(Warning),
	KindModeldLagging:        set(SoftDisable, Warning),
	KindLocalizerMalfunction: set(SoftDisable, NoEntry),
	KindCameraMalfunction:    set(SoftDisable, NoEntry),

	KindFCW: set(Warning),
	KindLDW: set(Warning),

	KindSteerSaturated: set(Warning),

	KindCruiseMismatch: set(SoftDisable, Warning),

	KindSlowingDownSpeed:      set(Warning),
	KindSlowingDownSpeedSound: set(Warning),

	KindProcessNotRunning: set(SoftDisable, NoEntry),

	KindButtonEnable: set(Enable),
	KindButtonCancel: set(UserDisable),
	KindBrakeHold:    set(UserDisable),
}

func set(types ...AlertType) map[AlertType]bool {
	m := make(map[AlertType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// AlertTypes returns the alert-type set a kind carries. Unknown kinds carry
// none, matching the catalog's closed-world default.
func AlertTypes(k Kind) map[AlertType]bool {
	return catalog[k]
}
