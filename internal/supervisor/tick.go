// Package supervisor drives the 100Hz control loop (spec.md §2/§9): the
// fixed five-phase tick order (Sample, UpdateEvents, StateTransition,
// StateControl, Publish), the initialized gate, and the cumulative-lag
// watchdog.
//
// Grounded on the teacher's consume loop in cmd/decision/main.go (the
// fixture/wire ingestion-then-evaluate-then-publish shape), generalized
// from a one-shot batch pass into a paced, indefinitely-running tick
// driver using golang.org/x/time/rate.Limiter for cadence instead of the
// teacher's HTTP polling interval.
package supervisor

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/openctrl/controlsd/internal/actuation"
	"github.com/openctrl/controlsd/internal/alertmgr"
	"github.com/openctrl/controlsd/internal/busio"
	"github.com/openctrl/controlsd/internal/carstate"
	"github.com/openctrl/controlsd/internal/config"
	"github.com/openctrl/controlsd/internal/events"
	"github.com/openctrl/controlsd/internal/fsm"
	"github.com/openctrl/controlsd/internal/observ"
	"github.com/openctrl/controlsd/internal/publish"
	"github.com/openctrl/controlsd/internal/speed"
)

const dtCtrl = 10 * time.Millisecond

// Supervisor owns every per-tick-persistent piece of state and runs the
// fixed phase order once per Step call.
type Supervisor struct {
	cfg config.Root

	adapter busio.BusAdapter
	live    *busio.Liveness

	machine   *fsm.Machine
	cruise    *speed.State
	orchestrator *actuation.Orchestrator
	alerts    *alertmgr.Manager
	publisher *publish.Publisher
	params    *publish.ParamStore

	eventSet *events.Set
	limiter  *rate.Limiter

	startedAt   time.Time
	initialized bool
	tickCount   int64
	cumLagMs    float64

	mismatchCounter     int64
	cruiseMismatchTicks int64

	simulation bool
}

// Deps bundles the constructed collaborators Supervisor needs; New does no
// I/O itself beyond what the caller's adapter/params construction already
// did.
type Deps struct {
	Config      config.Root
	Adapter     busio.BusAdapter
	Lateral     actuation.LateralController
	ParamStore  *publish.ParamStore
	Simulation  bool
}

// New builds a Supervisor in the Disabled state. The event set is allocated
// once here and reused every tick; Step still allocates some per-tick
// values (the button map, the safety-config slice, the attached-alert list,
// the curve path copy and the sorted event names).
func New(d Deps) *Supervisor {
	return &Supervisor{
		cfg:          d.Config,
		adapter:      d.Adapter,
		live:         busio.NewLiveness(3 * time.Second),
		machine:      fsm.New(),
		cruise:       speed.New(d.Config.Cruise),
		orchestrator: actuation.NewOrchestrator(d.Lateral, actuation.DefaultSaturationConfig()),
		alerts:       alertmgr.NewManager(d.Config.Alerts),
		publisher:    publish.NewPublisher(),
		params:       d.ParamStore,
		eventSet:     events.New(),
		limiter:      rate.NewLimiter(rate.Every(dtCtrl), 1),
		simulation:   d.Simulation,
		startedAt:    time.Now(),
	}
}

// Run blocks, driving Step once per tick until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		if _, err := s.Step(ctx); err != nil {
			return err
		}
	}
}

// StepResult reports this tick's published output, for tests and
// diagnostics.
type StepResult struct {
	Control   carstate.CarControl
	Alert     alertmgr.Alert
	HasAlert  bool
	Publish   publish.PublishResult
	State     fsm.State
}

// Step runs exactly one tick through the five fixed-order phases:
// Sample → UpdateEvents → StateTransition → StateControl → Publish.
func (s *Supervisor) Step(ctx context.Context) (StepResult, error) {
	tickStart := time.Now()
	s.tickCount++

	// Phase 1: Sample
	frame, err := s.adapter.Sample(ctx)
	if err != nil {
		observ.Log("sample_error", map[string]any{"error": err.Error()})
		frame.CS.CANValid = false
	}
	now := tickStart
	for ch, ok := range frame.Valid {
		if ok {
			s.live.Touch(ch, now)
		} else {
			s.live.Miss(ch)
		}
	}

	wasInitialized := s.initialized
	s.updateInitialized(now)
	if s.initialized && !wasInitialized && s.params != nil {
		if err := s.params.SaveControlsReady(true); err != nil {
			observ.Log("controls_ready_persist_error", map[string]any{"error": err.Error()})
		}
	}

	// Phase 2: UpdateEvents
	s.eventSet.Clear()
	s.collectEvents(frame, now)

	var result StepResult

	// Phase 3: StateTransition — gated on initialized only; there is no
	// read-only mode check.
	var trans fsm.TransitionResult
	if s.initialized {
		trans = s.machine.Step(s.eventSet)
		if trans.DidEnable {
			lastButtonNames := buttonNames(frame.CS.ButtonEvents)
			s.cruise.VCruiseKph = speed.InitializeVCruise(frame.CS.VEgo, lastButtonNames, s.cruise.VCruiseKphLast, s.cfg.Cruise)
		}
	}
	result.State = s.machine.State()

	// Phase 4: StateControl — actuation and cruise-speed arbitration.
	active := s.machine.Active()
	switch {
	case frame.CS.RegenPressed:
		s.cruise.UpdateFromRegen(frame.CS.VEgo, s.cfg.Cruise)
	case frame.CS.CruiseEnabled && !frame.CS.AdaptiveCruise:
		s.cruise.ForceFromPCM(s.cfg.Cruise)
	case frame.CS.AdaptiveCruise:
		pressed := make(map[string]bool, len(frame.CS.ButtonEvents))
		for _, b := range frame.CS.ButtonEvents {
			pressed[b.Type] = b.Pressed
		}
		s.cruise.UpdateFromButtons(pressed, s.cfg.Cruise)
	}
	s.runCruiseArbitration(frame, active)

	act, saturated := s.orchestrator.Actuate(actuation.ActuateInput{
		Active: active,
		CS:     frame.CS,
		Lateral: actuation.LateralParams{
			VEgo:            frame.CS.VEgo,
			SteerRatio:      15.0,
			StiffnessFactor: 1.0,
			CurrentAngleDeg: frame.CS.SteeringAngleDeg,
			CurvatureDes:    0,
		},
		Long: actuation.LongitudinalInput{
			VEgo:       frame.CS.VEgo,
			SetSpeedMs: s.cruise.MaxSpeedCLU,
			ForceDecel: s.machine.State() == fsm.SoftDisabling,
			MaxAccel:   2.0,
			MinAccel:   -4.0,
		},
		DriverSteering: frame.CS.SteeringPressed,
	})
	if saturated {
		s.eventSet.Add(events.KindSteerSaturated)
	}

	cc := carstate.CarControl{
		Frame:     frame.CS.Frame,
		Enabled:   s.machine.Enabled(),
		Active:    active,
		Actuators: act,
		CruiseControl: carstate.CruiseControl{
			Cancel: frame.CS.CruiseEnabled && (!s.machine.Enabled() || !frame.CS.AdaptiveCruise),
		},
		HudControl: publish.ComputeHUD(publish.HUDInput{
			CS:             frame.CS,
			Active:         active,
			VCruiseKph:     s.cruise.VCruiseKph,
			LeadVisible:    frame.LeadValid,
			SaturatedSteer: saturated,
			LdwEnabled:     s.cfg.LdwEnabled,
		}),
		ForceDecel: s.machine.State() == fsm.SoftDisabling,
	}

	// Phase 5: Publish
	attached := append([]events.AlertType{}, trans.Attached...)
	if a, ok := s.alerts.Select(s.eventSet, attached, now); ok && s.alerts.Emit(a, now) {
		result.Alert = a
		result.HasAlert = true
	}

	pubRes := s.publisher.Tick(cc, s.eventSet.Names())
	result.Control = cc
	result.Publish = pubRes
	if pubRes.PublishCarParams && s.params != nil {
		if err := s.params.SaveParams(publish.CarParamsCache{SteerRatio: 15.0}); err != nil {
			observ.Log("car_params_persist_error", map[string]any{"error": err.Error()})
		}
	}
	s.cruise.EndTick(s.cfg.Cruise)

	s.cumLagMs = s.cumLagMs*0.99 + float64(time.Since(tickStart).Microseconds())/1000.0*0.01
	observ.RecordTick(time.Since(tickStart), s.cumLagMs)

	return result, nil
}

// updateInitialized implements spec.md §4.1's readiness gate: every
// subscription alive-and-valid, OR 3.5s elapsed since start, OR running in
// simulation.
func (s *Supervisor) updateInitialized(now time.Time) {
	if s.initialized {
		return
	}
	if s.simulation {
		s.initialized = true
		return
	}
	if s.live.AllAlive(now) {
		s.initialized = true
		return
	}
	if now.Sub(s.startedAt) >= 3500*time.Millisecond {
		s.initialized = true
	}
}

func (s *Supervisor) runCruiseArbitration(frame busio.Frame, active bool) {
	if !frame.CS.AdaptiveCruise {
		return
	}
	road := speed.RoadLimitInput{Valid: frame.RoadLimit.Valid, ApplyKph: frame.RoadLimit.ApplyKph}
	var lead speed.LeadInput
	if frame.LeadValid {
		lead = speed.LeadInput{Valid: true, DRel: frame.LeadDRel, VRel: frame.LeadVRel}
	}
	if s.cfg.Curve.Enabled && len(frame.Path) > 0 && s.tickCount%int64(s.cfg.Curve.RecomputeEveryTicks) == 0 {
		pts := make([]speed.Point2D, len(frame.Path))
		for i, p := range frame.Path {
			pts[i] = speed.Point2D{X: p.X, Y: p.Y}
		}
		s.cruise.CurveSpeedMs = speed.RecomputeCurveSpeed(pts, frame.CS.VEgo, s.cfg.Curve)
	}
	s.cruise.Arbitrate(frame.CS.VEgo, active && frame.CS.AdaptiveCruise, road, lead, s.cfg.Curve, s.cfg.RoadLimit, s.cfg.Lead, s.cfg.Cruise)
}

// collectEvents builds this tick's events.Inputs from the sampled frame,
// the channel liveness tracker, and the cross-tick counters the supervisor
// itself persists (mismatchCounter, cruiseMismatchTicks), mirroring
// update_events's read of self.mismatch_counter/self.cruise_mismatch_counter
// set by the previous tick's data_sample/state_transition.
func (s *Supervisor) collectEvents(frame busio.Frame, now time.Time) {
	h := frame.Health
	enabled := s.machine.Enabled()

	s.updateMismatchCounters(h.Pandas, enabled)
	cruiseMismatch := frame.CS.CruiseEnabled && !enabled
	if cruiseMismatch && !s.cfg.Debug.Replay {
		s.cruiseMismatchTicks++
	} else {
		s.cruiseMismatchTicks = 0
	}

	safetyConfigs := make([]events.SafetyConfig, len(s.cfg.SafetyConfigs))
	for i, c := range s.cfg.SafetyConfigs {
		safetyConfigs[i] = events.SafetyConfig{SafetyModel: c.SafetyModel, SafetyParam: c.SafetyParam}
	}

	in := events.Inputs{
		Now:         now,
		CS:          frame.CS,
		Initialized: s.initialized,
		Startup:     s.tickCount <= 1,

		LowBatteryDischarging: h.LowBatteryDischarging,
		ThermalRed:            h.ThermalRed,
		FreeDiskPct:           h.FreeDiskPct,
		MemoryUsagePct:        h.MemoryUsagePct,
		MemoryThresholdPct:    h.MemoryThresholdPct,
		FanRPM:                h.FanRPM,
		FanDesiredPct:         h.FanDesiredPct,
		FanStuckSeconds:       h.FanStuckSeconds,

		CalibrationStatus: h.CalibrationStatus,

		LaneChangeState:     frame.LaneChange.State,
		LaneChangeDirection: frame.LaneChange.Direction,

		PandaStatesValid:   h.PandaStatesValid,
		Pandas:             h.Pandas,
		SafetyConfigs:      safetyConfigs,
		SubscriptionsAlive: s.live.AllAlive(now),
		MismatchCounter:    s.mismatchCounter,

		RadarError:           h.RadarError,
		MPCSolutionValid:     h.MPCSolutionValid,
		SensorsOK:            h.SensorsOK,
		SensorsOKStaleFor:    h.SensorsOKStaleFor,
		PosenetOK:            h.PosenetOK,
		DeviceStable:         h.DeviceStable,
		FrameDropPerc:        h.FrameDropPerc,
		ExcessiveResets:      h.ExcessiveResets,
		CameraPacketsMissing: h.CameraPacketsMissing,

		PlannerFCWActive: h.PlannerFCWActive,
		ModelHardBrake:   h.ModelHardBrake,

		IsReplay:              s.cfg.Debug.Replay,
		SupervisorEnabled:     enabled,
		CruiseMismatchForSecs: float64(s.cruiseMismatchTicks) * dtCtrl.Seconds(),

		SlowingDownActive:      s.cruise.SlowingDownAlert,
		SlowingDownJustEntered: s.cruise.SlowingDownSound,

		MissingProcesses: h.MissingProcesses,
	}
	events.Collect(s.eventSet, in)
}

// updateMismatchCounters tracks the controls-allowed/enabled agreement
// between the supervisor and the safety processor, mirroring
// data_sample's mismatch_counter accumulation: reset whenever disabled,
// incremented whenever a non-ignored-safety-mode panda disagrees while
// enabled.
func (s *Supervisor) updateMismatchCounters(pandas []events.PandaState, enabled bool) {
	if !enabled {
		s.mismatchCounter = 0
		return
	}
	for _, p := range pandas {
		if p.SafetyModeOK && !p.ControlsAllowed {
			s.mismatchCounter++
			return
		}
	}
}

func buttonNames(evs []carstate.ButtonEvent) []string {
	var out []string
	for _, e := range evs {
		if e.Pressed {
			out = append(out, e.Type)
		}
	}
	return out
}

// CumLagMs reports the exponentially-smoothed tick duration, for the
// liveness/health endpoint.
func (s *Supervisor) CumLagMs() float64 { return s.cumLagMs }
