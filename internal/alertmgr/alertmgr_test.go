package alertmgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openctrl/controlsd/internal/config"
	"github.com/openctrl/controlsd/internal/events"
)

func TestSelectPrefersHighestPriority(t *testing.T) {
	set := events.New()
	set.Add(events.KindCommIssue)       // SOFT_DISABLE, NO_ENTRY
	set.Add(events.KindControlsMismatch) // IMMEDIATE_DISABLE, NO_ENTRY

	m := NewManager(config.Default().Alerts)
	attached := []events.AlertType{events.SoftDisable, events.ImmediateDisable, events.NoEntry}
	a, ok := m.Select(set, attached, time.Now())
	require.True(t, ok)
	require.Equal(t, events.ImmediateDisable, a.Type)
}

func TestSelectReturnsFalseWhenNothingActive(t *testing.T) {
	set := events.New()
	m := NewManager(config.Default().Alerts)
	_, ok := m.Select(set, nil, time.Now())
	require.False(t, ok)
}

func TestEmitNeverSuppressesDisableTiers(t *testing.T) {
	cfg := config.Default().Alerts
	cfg.GlobalRatePerMin = 1
	cfg.Burst = 1
	m := NewManager(cfg)
	now := time.Now()

	a := Alert{Kind: events.KindControlsMismatch, Type: events.ImmediateDisable}
	for i := 0; i < 5; i++ {
		require.True(t, m.Emit(a, now.Add(time.Duration(i)*time.Millisecond)))
	}
}

func TestEmitRateLimitsWarnings(t *testing.T) {
	cfg := config.Default().Alerts
	cfg.GlobalRatePerMin = 60 // 1/sec
	cfg.Burst = 1
	m := NewManager(cfg)
	now := time.Now()

	a := Alert{Kind: events.KindSteerSaturated, Type: events.Warning}
	require.True(t, m.Emit(a, now))
	require.False(t, m.Emit(a, now.Add(10*time.Millisecond)))
	// The per-kind limiter (default 12/min) refills one token every 5s.
	require.True(t, m.Emit(a, now.Add(6*time.Second)))
}
