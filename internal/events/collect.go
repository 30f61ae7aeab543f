package events

import (
	"time"

	"github.com/openctrl/controlsd/internal/carstate"
)

// PandaState is the narrow slice of a safety-processor status the event
// collector needs: whether it currently permits actuation and which
// safety mode/param it reports, for the controlsMismatch cross-check.
type PandaState struct {
	ControlsAllowed bool
	SafetyModel     string
	SafetyParam     int
	SafetyModeOK    bool // false if in an ignored mode (silent, noOutput)
	FaultRelay      bool
	Valid           bool
}

// SafetyConfig is the configured expectation for one panda, from
// config.SafetyConfig.
type SafetyConfig struct {
	SafetyModel string
	SafetyParam int
}

// LaneChangeState mirrors the lateral planner's laneChangeState
// subscription.
type LaneChangeState string

const (
	LaneChangeNone      LaneChangeState = ""
	LaneChangePre       LaneChangeState = "preLaneChange"
	LaneChangeStarting  LaneChangeState = "laneChangeStarting"
	LaneChangeFinishing LaneChangeState = "laneChangeFinishing"
)

// Inputs bundles every per-tick source the event collector reads, matching
// spec.md §4.3's source list one field at a time. Built fresh each tick by
// the supervisor from the Sample phase's snapshots.
type Inputs struct {
	Now time.Time

	CS carstate.CarState

	DriverMonitoringEvents []string

	// Hardware/resource
	LowBatteryDischarging bool
	ThermalRed            bool
	FreeDiskPct           float64
	MemoryUsagePct        float64
	MemoryThresholdPct    float64
	FanRPM                float64
	FanDesiredPct         float64
	FanStuckSeconds       float64

	// Calibration: "uncalibrated" | "calibrated" | other status string
	CalibrationStatus string

	// Lane change (lateral planner subscription)
	LaneChangeState     LaneChangeState
	LaneChangeDirection string // "left" | "right"

	// Bus & comms
	CANRcvError        bool
	RelayMalfunction   bool
	PandaStatesValid   bool
	Pandas             []PandaState
	SafetyConfigs      []SafetyConfig
	SubscriptionsAlive bool
	MismatchCounter    int64

	// Planner/perception
	RadarError          bool
	MPCSolutionValid    bool
	SensorsOK           bool
	SensorsOKStaleFor   time.Duration
	PosenetOK           bool
	DeviceStable        bool
	FrameDropPerc       float64
	ExcessiveResets     bool
	CameraPacketsMissing bool

	// FCW
	PlannerFCWActive   bool
	ModelHardBrake     bool
	StockLongBraking   bool // aEgo < -1.5 already commanded by stock long

	// Cruise mismatch (non-replay)
	IsReplay              bool
	SupervisorEnabled     bool
	CruiseMismatchForSecs float64

	// Speed-limit advisory
	SlowingDownActive     bool
	SlowingDownJustEntered bool

	// Manager
	MissingProcesses []string

	Initialized bool
	Startup     bool
}

// Collect rebuilds the event set from scratch for one tick, per spec.md
// §4.3. It is pure of prior-tick state except for the explicitly-passed
// MismatchCounter and CruiseMismatchForSecs, which the supervisor persists
// itself (spec.md §9 design note).
func Collect(out *Set, in Inputs) {
	out.Clear()

	out.AddFromMsg(carstateEventNames(in.CS.Events))
	out.AddFromMsg(in.DriverMonitoringEvents)

	if in.Startup {
		out.Add(KindStartup)
	}
	if !in.Initialized {
		out.Add(KindControlsInitializing)
	}

	collectHardware(out, in)
	collectCalibration(out, in)
	collectLaneChange(out, in)
	collectBusAndComms(out, in)
	collectPlannerPerception(out, in)
	collectFCW(out, in)
	collectCruiseMismatch(out, in)
	collectSpeedAdvisory(out, in)
	collectManager(out, in)
}

func carstateEventNames(raw []carstate.RawEvent) []string {
	names := make([]string, 0, len(raw))
	for _, e := range raw {
		names = append(names, e.Name)
	}
	return names
}

func collectHardware(out *Set, in Inputs) {
	if in.LowBatteryDischarging {
		out.Add(KindLowBattery)
	}
	if in.ThermalRed {
		out.Add(KindOverheat)
	}
	if in.FreeDiskPct < 7.0 {
		out.Add(KindOutOfSpace)
	}
	if in.MemoryThresholdPct > 0 && in.MemoryUsagePct > in.MemoryThresholdPct {
		out.Add(KindLowMemory)
	}
	if in.FanRPM == 0 && in.FanDesiredPct > 50 && in.FanStuckSeconds >= 5.0 {
		out.Add(KindFanStuck)
	}
}

func collectCalibration(out *Set, in Inputs) {
	switch in.CalibrationStatus {
	case "", "calibrated":
		return
	case "uncalibrated":
		out.Add(KindCalibrationIncomplete)
	default:
		out.Add(KindCalibrationInvalid)
	}
}

// collectLaneChange classifies the lateral planner's laneChangeState: a
// blindspot on the side the plan is turning into blocks the change;
// otherwise preLaneChange announces the direction, and
// starting/finishing both collapse to the single in-progress event.
func collectLaneChange(out *Set, in Inputs) {
	switch in.LaneChangeState {
	case LaneChangePre:
		blocked := (in.LaneChangeDirection == "left" && in.CS.LeftBlindspot) ||
			(in.LaneChangeDirection == "right" && in.CS.RightBlindspot)
		switch {
		case blocked:
			out.Add(KindLaneChangeBlocked)
		case in.LaneChangeDirection == "left":
			out.Add(KindPreLaneChangeLeft)
		case in.LaneChangeDirection == "right":
			out.Add(KindPreLaneChangeRight)
		}
	case LaneChangeStarting, LaneChangeFinishing:
		out.Add(KindLaneChange)
	}
}

func collectBusAndComms(out *Set, in Inputs) {
	if in.CANRcvError || !in.CS.CANValid {
		out.Add(KindCANError)
	}
	if in.RelayMalfunction {
		out.Add(KindRelayMalfunction)
	}
	if !in.PandaStatesValid {
		out.Add(KindUSBError)
	}
	if !in.SubscriptionsAlive {
		out.Add(KindCommIssue)
	}
	if mismatchedSafetyConfig(in.Pandas, in.SafetyConfigs) || in.MismatchCounter > 200 {
		out.Add(KindControlsMismatch)
	}
	for _, p := range in.Pandas {
		if p.FaultRelay {
			out.Add(KindRelayMalfunction)
		}
	}
}

func mismatchedSafetyConfig(pandas []PandaState, want []SafetyConfig) bool {
	if len(want) == 0 {
		return false
	}
	for i, p := range pandas {
		if i >= len(want) {
			return true
		}
		if p.SafetyModel != want[i].SafetyModel || p.SafetyParam != want[i].SafetyParam {
			return true
		}
	}
	return false
}

func collectPlannerPerception(out *Set, in Inputs) {
	if in.RadarError {
		out.Add(KindRadarFault)
	}
	if !in.MPCSolutionValid {
		out.Add(KindPlannerError)
	}
	if !in.SensorsOK && in.SensorsOKStaleFor >= 5*time.Second {
		out.Add(KindSensorDataInvalid)
	}
	if !in.PosenetOK {
		out.Add(KindPosenetInvalid)
	}
	if !in.DeviceStable {
		out.Add(KindDeviceFalling)
	}
	if in.FrameDropPerc > 20 {
		out.Add(KindModeldLagging)
	}
	if in.ExcessiveResets {
		out.Add(KindLocalizerMalfunction)
	}
	if in.CameraPacketsMissing {
		out.Add(KindCameraMalfunction)
	}
}

func collectFCW(out *Set, in Inputs) {
	if !in.SupervisorEnabled {
		return
	}
	if in.PlannerFCWActive {
		out.Add(KindFCW)
		return
	}
	if in.ModelHardBrake && !in.CS.BrakePressed && !in.StockLongBraking {
		out.Add(KindFCW)
	}
}

func collectCruiseMismatch(out *Set, in Inputs) {
	if in.IsReplay {
		return
	}
	if in.CS.CruiseEnabled && !in.SupervisorEnabled && in.CruiseMismatchForSecs > 3.0 {
		out.Add(KindCruiseMismatch)
	}
}

func collectSpeedAdvisory(out *Set, in Inputs) {
	if in.SlowingDownJustEntered {
		out.Add(KindSlowingDownSpeedSound)
	}
	if in.SlowingDownActive {
		out.Add(KindSlowingDownSpeed)
	}
}

func collectManager(out *Set, in Inputs) {
	if len(in.MissingProcesses) > 0 {
		out.Add(KindProcessNotRunning)
	}
}
