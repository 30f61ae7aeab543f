package supervisor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openctrl/controlsd/internal/actuation"
	"github.com/openctrl/controlsd/internal/busio"
	"github.com/openctrl/controlsd/internal/carstate"
	"github.com/openctrl/controlsd/internal/config"
	"github.com/openctrl/controlsd/internal/fsm"
	"github.com/openctrl/controlsd/internal/publish"
)

func newTestSupervisor(t *testing.T, simulation bool) *Supervisor {
	dir := t.TempDir()
	store := publish.NewParamStore(filepath.Join(dir, "params.json"), filepath.Join(dir, "ready.json"))
	return New(Deps{
		Config:     config.Default(),
		Adapter:    busio.NewMockAdapter(),
		Lateral:    actuation.NewLateralController(actuation.ControlPID),
		ParamStore: store,
		Simulation: simulation,
	})
}

// Cold start: the mock adapter reports every channel valid, so the readiness
// gate trips on the first tick; with no ENABLE event the supervisor stays
// disabled and inactive.
func TestColdStartFirstTickStaysDisabled(t *testing.T) {
	s := newTestSupervisor(t, false)
	res, err := s.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, fsm.Disabled, res.State)
	require.False(t, res.Control.Active)
}

func TestSimulationModeInitializesImmediately(t *testing.T) {
	s := newTestSupervisor(t, true)
	_, err := s.Step(context.Background())
	require.NoError(t, err)
	require.True(t, s.initialized)
}

func TestInitializedAfterTimeoutEvenWithoutLiveSubscriptions(t *testing.T) {
	s := newTestSupervisor(t, false)
	s.adapter = &noValidAdapter{}
	s.startedAt = time.Now().Add(-4 * time.Second)
	_, err := s.Step(context.Background())
	require.NoError(t, err)
	require.True(t, s.initialized)
}

// Invariant #7: cruiseControl.cancel iff PCM cruise enabled AND (not
// supervisor-enabled OR not adaptive).
func TestCruiseCancelInvariant(t *testing.T) {
	s := newTestSupervisor(t, true)
	m := busio.NewMockAdapter()
	m.SetFrame(busio.Frame{
		CS:          carstate.CarState{CruiseEnabled: true, AdaptiveCruise: false},
		Initialized: true,
		Valid:       allChannelsValid(),
	})
	s.adapter = m
	res, err := s.Step(context.Background())
	require.NoError(t, err)
	require.True(t, res.Control.CruiseControl.Cancel)
}

// Scenario: cold start followed by an ENABLE button event reaches the
// enabled state through the real Step loop, matching spec.md §8.1. A
// healthy frame (busio.Healthy() plus an alive subscription set) must carry
// the supervisor through disabled -> enabled without any of the
// subscription-derived fault events firing.
func TestEnableReachesEnabledThroughRealLoop(t *testing.T) {
	s := newTestSupervisor(t, true)
	m := busio.NewMockAdapter()
	m.SetFrame(busio.Frame{
		CS: carstate.CarState{
			VEgo:           10,
			CANValid:       true,
			CruiseEnabled:  true,
			AdaptiveCruise: true,
		},
		Initialized: true,
		Valid:       allChannelsValid(),
		Health:      busio.Healthy(),
	})
	s.adapter = m

	_, err := s.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, fsm.Disabled, s.machine.State())

	m.SetFrame(busio.Frame{
		CS: carstate.CarState{
			VEgo:           10,
			CANValid:       true,
			CruiseEnabled:  true,
			AdaptiveCruise: true,
			Events:         []carstate.RawEvent{{Name: "buttonEnable"}},
		},
		Initialized: true,
		Valid:       allChannelsValid(),
		Health:      busio.Healthy(),
	})
	res, err := s.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, fsm.Enabled, res.State)
	require.True(t, s.machine.Enabled())
	require.True(t, res.Control.Active)
}

func TestTickRunsAllFivePhasesWithoutPanicking(t *testing.T) {
	s := newTestSupervisor(t, true)
	for i := 0; i < 10; i++ {
		_, err := s.Step(context.Background())
		require.NoError(t, err)
	}
}

type noValidAdapter struct{}

func (a *noValidAdapter) Sample(ctx context.Context) (busio.Frame, error) {
	return busio.Frame{Valid: map[busio.Channel]bool{}}, nil
}
func (a *noValidAdapter) HealthCheck(ctx context.Context) error { return nil }
func (a *noValidAdapter) Close() error                          { return nil }

func allChannelsValid() map[busio.Channel]bool {
	v := make(map[busio.Channel]bool, len(busio.AllChannels))
	for _, ch := range busio.AllChannels {
		v[ch] = true
	}
	return v
}
