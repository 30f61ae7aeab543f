package busio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLivenessAliveAfterTouch(t *testing.T) {
	l := NewLiveness(200 * time.Millisecond)
	now := time.Now()
	l.Touch(ChannelCarState, now)
	require.True(t, l.Alive(ChannelCarState, now))
	require.True(t, l.Alive(ChannelCarState, now.Add(100*time.Millisecond)))
	require.False(t, l.Alive(ChannelCarState, now.Add(300*time.Millisecond)))
}

func TestLivenessUnseenChannelIsNotAlive(t *testing.T) {
	l := NewLiveness(time.Second)
	require.False(t, l.Alive(ChannelRadarState, time.Now()))
}

func TestLivenessAllAliveRequiresEveryChannel(t *testing.T) {
	l := NewLiveness(time.Second)
	now := time.Now()
	for _, ch := range AllChannels[:len(AllChannels)-1] {
		l.Touch(ch, now)
	}
	require.False(t, l.AllAlive(now))

	l.Touch(AllChannels[len(AllChannels)-1], now)
	require.True(t, l.AllAlive(now))
}

func TestMockAdapterSampleReturnsSeededFrame(t *testing.T) {
	m := NewMockAdapter()
	f, err := m.Sample(context.Background())
	require.NoError(t, err)
	require.True(t, f.CS.CANValid)
	require.True(t, f.Initialized)
}

func TestMockAdapterHealthCheckReflectsSetHealth(t *testing.T) {
	m := NewMockAdapter()
	require.NoError(t, m.HealthCheck(context.Background()))
	m.SetHealth(false)
	require.Error(t, m.HealthCheck(context.Background()))
}

func TestSimAdapterCurveScenarioProducesPath(t *testing.T) {
	s := NewSimAdapter(ScenarioConstantCurve, 20)
	f, err := s.Sample(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, f.Path)
}

func TestSimAdapterClosingLeadScenarioReportsLead(t *testing.T) {
	s := NewSimAdapter(ScenarioClosingLead, 20)
	f, err := s.Sample(context.Background())
	require.NoError(t, err)
	require.True(t, f.LeadValid)
	require.Less(t, f.LeadVRel, 0.0)
}

func TestSimAdapterNotInitializedOnFirstTick(t *testing.T) {
	s := NewSimAdapter(ScenarioStraightCruise, 20)
	f, err := s.Sample(context.Background())
	require.NoError(t, err)
	require.False(t, f.Initialized)
}
