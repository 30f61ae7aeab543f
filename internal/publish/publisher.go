package publish

import (
	"github.com/openctrl/controlsd/internal/carstate"
)

const (
	carEventsMinIntervalTicks = 100
	carParamsIntervalTicks    = 5000
)

// Publisher packages the per-tick outputs with the cadence gating spec.md
// §4.7 requires: CarEvents republishes only on change or after 100 ticks of
// silence (invariant #8), CarParams republishes every 5000 ticks
// regardless of change, and CarControl is retained as feedback every tick
// unconditionally. Grounded on the teacher's outbox.Outbox
// (internal/outbox/outbox.go): an append-only sink wrapped with its own
// cadence/dedup policy, here driven by tick count instead of a dedupe-time
// window.
type Publisher struct {
	lastEventNames    []string
	ticksSinceEvents  int
	ticksSinceParams  int
	lastControl       carstate.CarControl
	haveLastControl   bool
}

// NewPublisher returns a Publisher with its cadence counters pre-set to
// their full intervals, which forces a first-tick publish of both CarEvents
// and CarParams.
func NewPublisher() *Publisher {
	return &Publisher{ticksSinceEvents: carEventsMinIntervalTicks, ticksSinceParams: carParamsIntervalTicks}
}

// PublishResult reports which messages this tick actually produced.
type PublishResult struct {
	Control    carstate.CarControl
	EventNames []string
	PublishCarEvents bool
	PublishCarParams bool
}

// Tick runs one publish cycle. eventNames must be the sorted, deduplicated
// active-event-kind names for this tick (events.Set.Names()).
func (p *Publisher) Tick(control carstate.CarControl, eventNames []string) PublishResult {
	p.ticksSinceEvents++
	p.ticksSinceParams++

	changed := !namesEqual(p.lastEventNames, eventNames)
	publishEvents := changed || p.ticksSinceEvents >= carEventsMinIntervalTicks
	if publishEvents {
		p.lastEventNames = append(p.lastEventNames[:0], eventNames...)
		p.ticksSinceEvents = 0
	}

	publishParams := p.ticksSinceParams >= carParamsIntervalTicks
	if publishParams {
		p.ticksSinceParams = 0
	}

	p.lastControl = control
	p.haveLastControl = true

	return PublishResult{
		Control:          control,
		EventNames:       eventNames,
		PublishCarEvents: publishEvents,
		PublishCarParams: publishParams,
	}
}

// LastControl returns the most recently published CarControl. Nothing in
// this repository reads it back; it is not handed to the bus adapter.
func (p *Publisher) LastControl() (carstate.CarControl, bool) {
	return p.lastControl, p.haveLastControl
}

func namesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
