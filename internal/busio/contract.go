// Package busio defines the vehicle-bus adapter contract and the channel
// liveness tracker, grounded on the teacher's quotes-provider adapter
// (internal/adapters/quotes.go / mock.go / sim.go / health.go): a small
// interface with a handful of concrete implementations (mock, simulated,
// live) and a per-source health tracker sitting alongside it.
package busio

import (
	"context"
	"time"

	"github.com/openctrl/controlsd/internal/carstate"
	"github.com/openctrl/controlsd/internal/events"
)

// dtCtrl mirrors the supervisor's 100Hz tick period, used to translate the
// consecutive-miss counter into the same staleness window as Alive's
// elapsed-time check.
const dtCtrl = 10 * time.Millisecond

// Channel names the logical subscription streams the supervisor depends on
// each tick, mirroring the teacher's per-provider naming in provider_manager.go.
type Channel string

const (
	ChannelCarState     Channel = "carState"
	ChannelRadarState   Channel = "radarState"
	ChannelModelV2      Channel = "modelV2"
	ChannelDriverMon    Channel = "driverMonitoringState"
	ChannelPandaStates  Channel = "pandaStates"
	ChannelDeviceState  Channel = "deviceState"
	ChannelLiveCalib    Channel = "liveCalibration"
	ChannelLongState    Channel = "longitudinalPlan"
)

// AllChannels lists every channel the supervisor requires to consider
// itself initialized, per spec.md §4.1's readiness gate.
var AllChannels = []Channel{
	ChannelCarState, ChannelRadarState, ChannelModelV2, ChannelDriverMon,
	ChannelPandaStates, ChannelDeviceState, ChannelLiveCalib, ChannelLongState,
}

// Frame bundles the one-tick snapshot an adapter hands the supervisor's
// Sample phase.
type Frame struct {
	CS          carstate.CarState
	LeadDRel    float64
	LeadVRel    float64
	LeadValid   bool
	Path        []PathPoint
	Initialized bool
	Valid       map[Channel]bool

	RoadLimit  RoadLimitStatus
	LaneChange LaneChangeStatus
	Health     FrameHealth
}

// PathPoint is one planner-predicted trajectory sample in vehicle frame.
type PathPoint struct {
	X, Y float64
}

// RoadLimitStatus is the road-speed-limit advisory provider's output for
// this tick, sourced the way the sampled subscriptions feed every other
// Frame field.
type RoadLimitStatus struct {
	Valid    bool
	ApplyKph float64
}

// LaneChangeStatus mirrors the lateral planner's laneChangeState/
// laneChangeDirection subscription.
type LaneChangeStatus struct {
	State     events.LaneChangeState
	Direction string // "left" | "right"
}

// FrameHealth bundles every subscription-derived health/perception field
// the event collector needs besides CarState itself — device, panda, and
// planner/perception status — mirroring the extra SubMaster subscriptions
// (deviceState, pandaStates, liveLocationKalman, modelV2, liveCalibration,
// managerState) a live adapter would poll alongside CarState.
type FrameHealth struct {
	LowBatteryDischarging bool
	ThermalRed            bool
	FreeDiskPct           float64
	MemoryUsagePct        float64
	MemoryThresholdPct    float64
	FanRPM                float64
	FanDesiredPct         float64
	FanStuckSeconds       float64

	CalibrationStatus string // "calibrated" | "uncalibrated" | other

	PandaStatesValid bool
	Pandas           []events.PandaState
	RadarError       bool

	MPCSolutionValid     bool
	SensorsOK            bool
	SensorsOKStaleFor    time.Duration
	PosenetOK            bool
	DeviceStable         bool
	FrameDropPerc        float64
	ExcessiveResets      bool
	CameraPacketsMissing bool

	ModelHardBrake   bool
	PlannerFCWActive bool

	MissingProcesses []string
}

// Healthy returns a FrameHealth with every subscription reporting nominal
// status, for adapters (mock, sim) that model a fully-functioning device
// rather than exercising fault injection.
func Healthy() FrameHealth {
	return FrameHealth{
		FreeDiskPct:        50,
		MemoryUsagePct:     30,
		MemoryThresholdPct: 65,
		FanRPM:             3000,
		FanDesiredPct:      30,
		CalibrationStatus:  "calibrated",
		PandaStatesValid:   true,
		Pandas:             []events.PandaState{{ControlsAllowed: true, SafetyModeOK: true, Valid: true}},
		MPCSolutionValid:   true,
		SensorsOK:          true,
		PosenetOK:          true,
		DeviceStable:       true,
	}
}

// BusAdapter is the capability every vehicle-bus source implements:
// produce one Frame per tick and report its own health.
type BusAdapter interface {
	Sample(ctx context.Context) (Frame, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Liveness tracks per-channel alive/stale state, grounded on the teacher's
// ProviderHealth (internal/adapters/health.go): each channel accumulates
// consecutive misses and flips to stale past a threshold (here, either
// threshold — elapsed time or consecutive misses — trips it), recovering
// only after a fresh sample resets both.
type Liveness struct {
	staleAfter           time.Duration
	maxConsecutiveMisses int
	lastSeen             map[Channel]time.Time
	consecutive          map[Channel]int
}

// NewLiveness builds a liveness tracker that considers a channel stale once
// staleAfter has elapsed since its last fresh sample, or once it has missed
// staleAfter worth of ticks in a row even if individual misses haven't yet
// aged past the deadline.
func NewLiveness(staleAfter time.Duration) *Liveness {
	return &Liveness{
		staleAfter:           staleAfter,
		maxConsecutiveMisses: int(staleAfter / dtCtrl),
		lastSeen:             make(map[Channel]time.Time),
		consecutive:          make(map[Channel]int),
	}
}

// Touch records a fresh sample for ch at now.
func (l *Liveness) Touch(ch Channel, now time.Time) {
	l.lastSeen[ch] = now
	l.consecutive[ch] = 0
}

// Miss records a tick where ch produced no fresh sample.
func (l *Liveness) Miss(ch Channel) {
	l.consecutive[ch]++
}

// Alive reports whether ch has been seen within staleAfter of now and hasn't
// accumulated too many consecutive misses in that window.
func (l *Liveness) Alive(ch Channel, now time.Time) bool {
	seen, ok := l.lastSeen[ch]
	if !ok {
		return false
	}
	if l.maxConsecutiveMisses > 0 && l.consecutive[ch] >= l.maxConsecutiveMisses {
		return false
	}
	return now.Sub(seen) <= l.staleAfter
}

// AllAlive reports whether every channel in AllChannels is currently alive.
func (l *Liveness) AllAlive(now time.Time) bool {
	for _, ch := range AllChannels {
		if !l.Alive(ch, now) {
			return false
		}
	}
	return true
}
