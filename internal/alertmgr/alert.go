// Package alertmgr implements the per-tick alert selection and rate
// limiting described in spec.md §3/§4.4: given the active AlertTypes on the
// current EventSet, select the single highest-priority alert to surface
// this tick and decide whether it may actually be emitted this tick.
//
// Grounded on the teacher's SlackClient (internal/alerts/slack.go): a
// dedupe/queue/rate-limit wrapper in front of an outbound notification,
// here repurposed to gate HUD/audible alert emission instead of outbound
// Slack messages.
package alertmgr

import (
	"time"

	"github.com/openctrl/controlsd/internal/events"
)

// AudibleKind names which sound accompanies an alert, when any.
type AudibleKind string

const (
	AudibleNone     AudibleKind = ""
	AudibleChime    AudibleKind = "chime"
	AudibleWarning  AudibleKind = "warningSoft"
	AudibleUrgent   AudibleKind = "warningImmediate"
	AudibleDisengage AudibleKind = "disengage"
)

// Size names the HUD alert banner size.
type Size string

const (
	SizeSmall Size = "small"
	SizeMid   Size = "mid"
	SizeFull  Size = "full"
)

// Alert is the fully-resolved alert to render this tick: text, audible
// kind, banner size, blink rate, and duration, per spec.md §3. Priority is
// not stored here; Manager.Select derives it from the alert type.
type Alert struct {
	Kind         events.Kind
	Type         events.AlertType
	Text1        string
	Text2        string
	Audible      AudibleKind
	Size         Size
	BlinkingRate float64 // Hz, 0 = solid
	Duration     time.Duration
}

// describe returns the display text and presentation for a given alert
// kind/type pairing. Unknown combinations fall back to a generic rendering
// so a newly-catalogued kind never panics the publisher.
func describe(kind events.Kind, t events.AlertType) Alert {
	a := Alert{Kind: kind, Type: t}
	switch t {
	case events.ImmediateDisable:
		a.Text1, a.Text2 = "TAKE CONTROL", "Immediately"
		a.Audible = AudibleUrgent
		a.Size = SizeFull
		a.BlinkingRate = 4
		a.Duration = 2 * time.Second
	case events.UserDisable:
		a.Text1 = "Disengaged"
		a.Audible = AudibleDisengage
		a.Size = SizeMid
		a.Duration = time.Second
	case events.SoftDisable:
		a.Text1, a.Text2 = "TAKE CONTROL", "Soft Disabling"
		a.Audible = AudibleWarning
		a.Size = SizeFull
		a.BlinkingRate = 2
		a.Duration = 2 * time.Second
	case events.NoEntry:
		a.Text1 = "Not Available"
		a.Audible = AudibleChime
		a.Size = SizeMid
		a.Duration = time.Second
	case events.Warning:
		a.Text1 = "Steer Unavailable Below Speed"
		a.Size = SizeSmall
		a.Duration = 500 * time.Millisecond
	case events.PreEnable, events.Enable:
		a.Text1 = "Engaged"
		a.Size = SizeSmall
		a.Duration = 500 * time.Millisecond
	case events.Permanent:
		a.Text1 = "Faulted"
		a.Audible = AudibleChime
		a.Size = SizeMid
		a.Duration = time.Second
	default:
		a.Text1 = string(kind)
		a.Size = SizeSmall
	}
	return a
}
