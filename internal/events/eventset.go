package events

import (
	"sort"
	"time"
)

// Event is one active event this tick: a catalog kind plus whatever extra
// context its alert rendering needs.
type Event struct {
	Kind Kind
}

// Alert is produced from an event for a given alert type, carrying just
// enough to drive HUD text/audio selection. Full alert-text composition
// lives in internal/alertmgr; this is the event pipeline's contribution to
// it.
type Alert struct {
	Kind      Kind
	Type      AlertType
	Priority  int
	Timestamp time.Time
}

// priority orders alert severity for cross-tick arbitration: lower number
// wins. Matches the ordering implied by spec.md §7 (immediate-disable
// classes outrank soft-disable, which outrank warnings).
func priority(t AlertType) int {
	switch t {
	case ImmediateDisable:
		return 0
	case UserDisable:
		return 1
	case SoftDisable:
		return 2
	case NoEntry:
		return 3
	case PreEnable, Enable:
		return 4
	case Warning:
		return 5
	case Permanent:
		return 6
	default:
		return 10
	}
}

// Set is the per-tick collection of active events. It is rebuilt from
// scratch every tick (spec.md §9 design note: "model the EventSet as
// constructed fresh each tick"); nothing here persists across ticks.
type Set struct {
	events []Event
}

// New returns an empty event set.
func New() *Set {
	return &Set{}
}

// Clear empties the set in place, letting the supervisor reuse its
// allocation tick over tick (spec.md §9: "pre-allocate all per-tick
// message buffers at construction; no heap allocation on the hot path").
func (s *Set) Clear() {
	s.events = s.events[:0]
}

// Add appends an event of the given kind if it isn't already present.
func (s *Set) Add(k Kind) {
	for _, e := range s.events {
		if e.Kind == k {
			return
		}
	}
	s.events = append(s.events, Event{Kind: k})
}

// AddFromMsg adds every name in a structural-passthrough event list
// (CarState.Events, driverMonitoringState.events) whose name matches a
// catalog kind. Unknown names are silently ignored, matching the spec's
// "structural passthrough" wording — upstream may emit kinds this
// supervisor doesn't classify yet.
func (s *Set) AddFromMsg(names []string) {
	for _, n := range names {
		k := Kind(n)
		if _, known := catalog[k]; known {
			s.Add(k)
		}
	}
}

// Any reports whether any active event carries the given alert type.
func (s *Set) Any(t AlertType) bool {
	for _, e := range s.events {
		if AlertTypes(e.Kind)[t] {
			return true
		}
	}
	return false
}

// Kinds returns the active event kinds carrying the given alert type, in
// deterministic (sorted) order, for transition-reason logging.
func (s *Set) Kinds(t AlertType) []Kind {
	var out []Kind
	for _, e := range s.events {
		if AlertTypes(e.Kind)[t] {
			out = append(out, e.Kind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Names returns every active event's kind name, sorted, for the
// events_prev change-detection publish gate (spec.md §4.7, invariant #8).
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, string(e.Kind))
	}
	sort.Strings(out)
	return out
}

// CreateAlerts produces one Alert per active event for each alert type in
// types, timestamped now, for the alert manager to arbitrate across.
func (s *Set) CreateAlerts(types []AlertType, now time.Time) []Alert {
	var out []Alert
	for _, e := range s.events {
		at := AlertTypes(e.Kind)
		for _, t := range types {
			if at[t] {
				out = append(out, Alert{Kind: e.Kind, Type: t, Priority: priority(t), Timestamp: now})
			}
		}
	}
	return out
}

// Len returns the number of active events.
func (s *Set) Len() int { return len(s.events) }
