package publish

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openctrl/controlsd/internal/carstate"
)

func TestComputeHUDSetSpeedConvertsKphToMs(t *testing.T) {
	hud := ComputeHUD(HUDInput{Active: true, VCruiseKph: 36})
	require.InDelta(t, 10.0, hud.SetSpeed, 1e-9)
}

func TestComputeHUDSuppressesLaneDepartWhenBlinkerOn(t *testing.T) {
	hud := ComputeHUD(HUDInput{
		Active:           true,
		LdwEnabled:       true,
		LaneDepartureLeft: true,
		CS:               carstate.CarState{LeftBlinker: true},
	})
	require.False(t, hud.LeftLaneDepart)
}

func TestComputeHUDSaturatedAlertTakesPriorityOverLDW(t *testing.T) {
	hud := ComputeHUD(HUDInput{
		Active:            true,
		LdwEnabled:        true,
		LaneDepartureLeft: true,
		SaturatedSteer:    true,
	})
	require.Equal(t, "steerSaturated", hud.VisualAlert)
}

// Invariant #8: CarEvents publishes on change or after 100 ticks, never more
// often than that while unchanged.
func TestPublisherCarEventsCadence(t *testing.T) {
	p := NewPublisher()
	r := p.Tick(carstate.CarControl{}, []string{"startup"})
	require.True(t, r.PublishCarEvents, "first tick always publishes")

	for i := 0; i < 99; i++ {
		r = p.Tick(carstate.CarControl{}, []string{"startup"})
		require.False(t, r.PublishCarEvents, "tick %d should not republish unchanged events", i)
	}
	r = p.Tick(carstate.CarControl{}, []string{"startup"})
	require.True(t, r.PublishCarEvents, "should republish at the 100-tick mark")
}

func TestPublisherCarEventsRepublishesOnChange(t *testing.T) {
	p := NewPublisher()
	p.Tick(carstate.CarControl{}, []string{"startup"})
	r := p.Tick(carstate.CarControl{}, []string{"startup", "fcw"})
	require.True(t, r.PublishCarEvents)
}

func TestPublisherCarParamsCadence(t *testing.T) {
	p := NewPublisher()
	r := p.Tick(carstate.CarControl{}, nil)
	require.True(t, r.PublishCarParams, "first tick always publishes params")
	for i := 0; i < 4999; i++ {
		r = p.Tick(carstate.CarControl{}, nil)
		require.False(t, r.PublishCarParams, "tick %d should not republish params early", i)
	}
	r = p.Tick(carstate.CarControl{}, nil)
	require.True(t, r.PublishCarParams, "should republish at the 5000-tick mark")
}

func TestParamStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewParamStore(filepath.Join(dir, "params.json"), filepath.Join(dir, "ready.json"))

	empty, err := store.LoadParams()
	require.NoError(t, err)
	require.Equal(t, CarParamsCache{}, empty)

	want := CarParamsCache{CarFingerprint: "TESTCAR", SteerRatio: 15.0, SafetyModel: "hyundai"}
	require.NoError(t, store.SaveParams(want))

	got, err := store.LoadParams()
	require.NoError(t, err)
	require.Equal(t, want.CarFingerprint, got.CarFingerprint)
	require.Equal(t, want.SteerRatio, got.SteerRatio)

	require.NoError(t, store.SaveControlsReady(true))
	ready, err := store.LoadControlsReady()
	require.NoError(t, err)
	require.True(t, ready.Ready)

	_, err = os.Stat(filepath.Join(dir, "params.json.tmp"))
	require.True(t, os.IsNotExist(err), "temp file should not be left behind")
}
