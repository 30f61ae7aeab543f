package alertmgr

import (
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/openctrl/controlsd/internal/config"
	"github.com/openctrl/controlsd/internal/events"
)

// Manager selects the single alert to surface each tick from the active
// EventSet and enforces global and per-kind rate limits, so a flapping
// condition cannot spam the HUD/speaker every tick. Grounded on the
// teacher's SlackClient rate-limiter, with golang.org/x/time/rate.Limiter
// token buckets in place of the teacher's hand-rolled
// map[string][]time.Time sliding window.
type Manager struct {
	global  *rate.Limiter
	perKind map[events.Kind]*rate.Limiter
	cfg     config.Alerts
}

// NewManager builds a Manager from the supervisor's alert-rate configuration.
func NewManager(cfg config.Alerts) *Manager {
	return &Manager{
		global:  rate.NewLimiter(rate.Limit(float64(cfg.GlobalRatePerMin)/60.0), cfg.Burst),
		perKind: make(map[events.Kind]*rate.Limiter),
		cfg:     cfg,
	}
}

func (m *Manager) limiterFor(k events.Kind) *rate.Limiter {
	l, ok := m.perKind[k]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(m.cfg.PerKindRatePerMin)/60.0), m.cfg.Burst)
		m.perKind[k] = l
	}
	return l
}

// Select picks the single highest-priority alert attached to the current
// EventSet's active alert types, breaking ties by which alert kind sorts
// first lexically so selection is deterministic across ticks, matching the
// total order required by spec.md §3 ("highest priority wins; ties broken
// deterministically").
func (m *Manager) Select(set *events.Set, attached []events.AlertType, now time.Time) (Alert, bool) {
	type candidate struct {
		kind events.Kind
		typ  events.AlertType
	}
	var candidates []candidate
	for _, t := range attached {
		for _, k := range set.Kinds(t) {
			candidates = append(candidates, candidate{kind: k, typ: t})
		}
	}
	if len(candidates) == 0 {
		return Alert{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := alertPriority(candidates[i].typ), alertPriority(candidates[j].typ)
		if pi != pj {
			return pi < pj
		}
		return candidates[i].kind < candidates[j].kind
	})

	best := candidates[0]
	return describe(best.kind, best.typ), true
}

// Emit reports whether the given alert is allowed to fire now under the
// global and per-kind rate limits. Alerts from the three disable tiers and
// PERMANENT are never suppressed, since throttling a disable/fault
// notification would hide a safety-relevant state change from the driver.
func (m *Manager) Emit(a Alert, now time.Time) bool {
	switch a.Type {
	case events.ImmediateDisable, events.UserDisable, events.SoftDisable, events.Permanent:
		return true
	}
	if !m.global.AllowN(now, 1) {
		return false
	}
	return m.limiterFor(a.Kind).AllowN(now, 1)
}

func alertPriority(t events.AlertType) int {
	switch t {
	case events.ImmediateDisable:
		return 0
	case events.UserDisable:
		return 1
	case events.SoftDisable:
		return 2
	case events.NoEntry:
		return 3
	case events.PreEnable, events.Enable:
		return 4
	case events.Warning:
		return 5
	case events.Permanent:
		return 6
	default:
		return 10
	}
}
