package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openctrl/controlsd/internal/events"
)

func withEvent(k events.Kind) *events.Set {
	s := events.New()
	s.Add(k)
	return s
}

func TestInvariantEnabledActive(t *testing.T) {
	m := New()
	require.False(t, m.Enabled())
	require.False(t, m.Active())

	m.Step(withEvent(events.KindButtonCancel)) // USER_DISABLE, no-op from disabled
	require.Equal(t, Disabled, m.State())

	// A tick with no events leaves the machine disabled and reports no
	// transition.
	res := m.Step(events.New())
	require.False(t, res.Entered)
}

func TestSoftDisableRecovery(t *testing.T) {
	m := &Machine{state: Enabled}
	res := m.Step(withEvent(events.KindCommIssue))
	require.Equal(t, SoftDisabling, m.State())
	// Reset to SoftDisableTicks on entry, then decremented once the same tick.
	require.Equal(t, SoftDisableTicks-1, m.SoftDisableTimer())
	require.True(t, res.Entered)

	// 298 more ticks with commIssue still active (299 total < 300)
	for i := 0; i < 298; i++ {
		m.Step(withEvent(events.KindCommIssue))
		require.Equal(t, SoftDisabling, m.State())
	}
	require.Equal(t, 1, m.SoftDisableTimer())

	// Event clears: back to enabled on the very next tick.
	m.Step(events.New())
	require.Equal(t, Enabled, m.State())
}

func TestSoftDisableTimeout(t *testing.T) {
	m := &Machine{state: Enabled}
	m.Step(withEvent(events.KindCommIssue)) // tick 1, timer = 300 (then ticks to 299)
	require.Equal(t, SoftDisabling, m.State())

	for i := 0; i < 299; i++ {
		m.Step(withEvent(events.KindCommIssue))
		require.Equal(t, SoftDisabling, m.State(), "tick %d", i+2)
	}
	require.Equal(t, 0, m.SoftDisableTimer())

	// 301st tick total since entry: still commIssue active, timer already 0.
	m.Step(withEvent(events.KindCommIssue))
	require.Equal(t, Disabled, m.State())
}

func TestActiveImpliesWarningAttached(t *testing.T) {
	m := &Machine{state: Enabled}
	res := m.Step(events.New())
	require.Contains(t, res.Attached, events.Warning)
}

func TestUserDisableFromAnyNonDisabled(t *testing.T) {
	for _, start := range []State{Enabled, SoftDisabling, PreEnabled} {
		m := &Machine{state: start}
		res := m.Step(withEvent(events.KindButtonCancel))
		require.Equal(t, Disabled, m.State())
		require.Contains(t, res.Attached, events.UserDisable)
	}
}

func TestImmediateDisableFromAnyNonDisabled(t *testing.T) {
	m := &Machine{state: Enabled}
	res := m.Step(withEvent(events.KindControlsMismatch))
	require.Equal(t, Disabled, m.State())
	require.Contains(t, res.Attached, events.ImmediateDisable)
}

func TestPreEnabledAdvancesWhenConditionClears(t *testing.T) {
	m := &Machine{state: PreEnabled}
	res := m.Step(events.New())
	require.Equal(t, Enabled, m.State())
	require.True(t, res.Entered)
}
